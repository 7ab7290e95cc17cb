// Package visibility decides which users a given user may see and manage.
//
// Every function is a pure selector over the supplied user slice: inputs are
// never mutated and results keep the order of the input.
package visibility

import (
	"fmt"

	"github.com/frahmantamala/opsboard/internal/core/rbac"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
)

type Mode string

const (
	// ModeDirect limits a non-elevated user to their direct reports.
	ModeDirect Mode = "direct"
	// ModeTransitive follows supervisor chains down the whole reporting tree.
	ModeTransitive Mode = "transitive"
)

const DefaultMaxDepth = 32

type View string

const (
	ViewVisible    View = "visible"
	ViewManageable View = "manageable"
	ViewRanking    View = "ranking"
)

func ParseView(s string) (View, error) {
	switch View(s) {
	case "", ViewVisible:
		return ViewVisible, nil
	case ViewManageable, ViewRanking:
		return View(s), nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

type Resolver struct {
	mode     Mode
	maxDepth int
}

func NewResolver(mode Mode, maxDepth int) *Resolver {
	if mode != ModeTransitive {
		mode = ModeDirect
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{mode: mode, maxDepth: maxDepth}
}

func (r *Resolver) Mode() Mode {
	return r.mode
}

// Manageable returns every user current may manage. Elevated roles manage
// everyone else; other roles manage the users that report to them. current
// is never part of the result.
func (r *Resolver) Manageable(current coreuser.User, all []coreuser.User) []coreuser.User {
	out := make([]coreuser.User, 0)

	if rbac.Elevated(current.Role) {
		for _, u := range all {
			if u.ID != current.ID {
				out = append(out, u)
			}
		}
		return out
	}

	var byID map[string]*coreuser.User
	if r.mode == ModeTransitive {
		byID = index(all)
	}

	for _, u := range all {
		if u.ID == current.ID {
			continue
		}
		if r.reportsTo(u, current.ID, byID) {
			out = append(out, u)
		}
	}
	return out
}

// Ranking is the manageable view without Admins and Managers, who never
// appear on leaderboards.
func (r *Resolver) Ranking(current coreuser.User, all []coreuser.User) []coreuser.User {
	managed := r.Manageable(current, all)
	out := make([]coreuser.User, 0, len(managed))
	for _, u := range managed {
		if rbac.Elevated(u.Role) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// Visible is current followed by the manageable view, used by pages that
// show the caller's own data next to their team's.
func (r *Resolver) Visible(current coreuser.User, all []coreuser.User) []coreuser.User {
	managed := r.Manageable(current, all)
	out := make([]coreuser.User, 0, len(managed)+1)
	for _, u := range all {
		if u.ID == current.ID {
			out = append(out, u)
			break
		}
	}
	if len(out) == 0 {
		out = append(out, current)
	}
	return append(out, managed...)
}

func (r *Resolver) Resolve(view View, current coreuser.User, all []coreuser.User) []coreuser.User {
	switch view {
	case ViewManageable:
		return r.Manageable(current, all)
	case ViewRanking:
		return r.Ranking(current, all)
	default:
		return r.Visible(current, all)
	}
}

// CanManage reports whether target is in current's manageable view.
func (r *Resolver) CanManage(current coreuser.User, targetID string, all []coreuser.User) bool {
	if targetID == current.ID {
		return false
	}
	if rbac.Elevated(current.Role) {
		for _, u := range all {
			if u.ID == targetID {
				return true
			}
		}
		return false
	}

	byID := index(all)
	target, ok := byID[targetID]
	if !ok {
		return false
	}
	if r.mode == ModeDirect {
		byID = nil
	}
	return r.reportsTo(*target, current.ID, byID)
}

// IDs extracts ids preserving order.
func IDs(users []coreuser.User) []string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func (r *Resolver) reportsTo(u coreuser.User, managerID string, byID map[string]*coreuser.User) bool {
	if u.ReportsTo(managerID) {
		return true
	}
	if r.mode != ModeTransitive || u.SupervisorID == nil {
		return false
	}

	visited := map[string]struct{}{u.ID: {}}
	next := *u.SupervisorID
	for depth := 0; depth < r.maxDepth; depth++ {
		if next == managerID {
			return true
		}
		if _, seen := visited[next]; seen {
			return false
		}
		visited[next] = struct{}{}

		sup, ok := byID[next]
		if !ok || sup.SupervisorID == nil {
			return false
		}
		next = *sup.SupervisorID
	}
	return false
}

func index(all []coreuser.User) map[string]*coreuser.User {
	byID := make(map[string]*coreuser.User, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
	}
	return byID
}
