package role

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/frahmantamala/opsboard/internal/core/rbac"
)

const authzModel = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.act == p.act
`

// Authorizer answers role -> permission questions from an in-memory casbin
// enforcer kept in sync with the roles table.
type Authorizer struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
	ranks    map[string]int
	perms    map[string][]string
	logger   *slog.Logger
}

func NewAuthorizer(logger *slog.Logger) (*Authorizer, error) {
	m, err := model.NewModelFromString(authzModel)
	if err != nil {
		return nil, fmt.Errorf("authz: parse model: %w", err)
	}
	enf, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz: init enforcer: %w", err)
	}
	return &Authorizer{
		enforcer: enf,
		ranks:    make(map[string]int),
		perms:    make(map[string][]string),
		logger:   logger,
	}, nil
}

// NewSystemAuthorizer is preloaded with the built-in roles only.
func NewSystemAuthorizer(logger *slog.Logger) (*Authorizer, error) {
	a, err := NewAuthorizer(logger)
	if err != nil {
		return nil, err
	}
	for _, spec := range rbac.SystemRoles {
		if err := a.SetRole(spec.Name, spec.Rank, rbac.Strings(spec.Permissions)); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Load replaces every policy with the given roles.
func (a *Authorizer) Load(roles []*Role) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name := range a.ranks {
		if _, err := a.enforcer.RemoveFilteredPolicy(0, name); err != nil {
			return fmt.Errorf("authz: clear %s: %w", name, err)
		}
	}
	a.ranks = make(map[string]int, len(roles))
	a.perms = make(map[string][]string, len(roles))
	for _, r := range roles {
		if err := a.setLocked(r.Name, r.Rank, r.Permissions); err != nil {
			return err
		}
	}
	a.logger.Info("authorization policies loaded", "roles", len(roles))
	return nil
}

func (a *Authorizer) SetRole(name string, rank int, permissions []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.setLocked(name, rank, permissions)
}

func (a *Authorizer) setLocked(name string, rank int, permissions []string) error {
	if _, err := a.enforcer.RemoveFilteredPolicy(0, name); err != nil {
		return fmt.Errorf("authz: clear %s: %w", name, err)
	}
	rules := make([][]string, 0, len(permissions))
	for _, p := range permissions {
		rules = append(rules, []string{name, p})
	}
	if len(rules) > 0 {
		if _, err := a.enforcer.AddPolicies(rules); err != nil {
			return fmt.Errorf("authz: add %s: %w", name, err)
		}
	}
	a.ranks[name] = rank
	a.perms[name] = dedupe(permissions)
	return nil
}

func (a *Authorizer) RemoveRole(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.enforcer.RemoveFilteredPolicy(0, name); err != nil {
		return fmt.Errorf("authz: remove %s: %w", name, err)
	}
	delete(a.ranks, name)
	delete(a.perms, name)
	return nil
}

// Can reports whether role holds permission. Unknown roles hold nothing.
func (a *Authorizer) Can(role, permission string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ok, err := a.enforcer.Enforce(role, permission)
	if err != nil {
		a.logger.Error("authz enforce failed", "role", role, "permission", permission, "error", err)
		ok = false
	}
	recordDecision(permission, ok)
	return ok
}

func (a *Authorizer) Rank(role string) (int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.ranks[role]
	return r, ok
}

func (a *Authorizer) Permissions(role string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.perms[role]...)
}

func (a *Authorizer) Roles() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.ranks))
	for n := range a.ranks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
