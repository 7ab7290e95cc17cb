package role

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/opsboard/internal"
	roleDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/role"
	"github.com/frahmantamala/opsboard/internal/core/rbac"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
)

type RepositoryAPI interface {
	List(ctx context.Context) ([]*roleDatamodel.Role, error)
	GetByID(ctx context.Context, id string) (*roleDatamodel.Role, error)
	GetByName(ctx context.Context, name string) (*roleDatamodel.Role, error)
	Create(ctx context.Context, role *roleDatamodel.Role) error
	Update(ctx context.Context, role *roleDatamodel.Role) error
	Delete(ctx context.Context, id string) error
	CountUsers(ctx context.Context, roleName string) (int64, error)
}

type Service struct {
	repo       RepositoryAPI
	authorizer *Authorizer
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, authorizer *Authorizer, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		authorizer: authorizer,
		logger:     logger,
	}
}

func (s *Service) Authorizer() *Authorizer {
	return s.authorizer
}

// EnsureSystemRoles inserts any missing built-in role. Existing rows are left
// alone.
func (s *Service) EnsureSystemRoles(ctx context.Context) error {
	for _, spec := range rbac.SystemRoles {
		existing, err := s.repo.GetByName(ctx, spec.Name)
		if err != nil {
			return fmt.Errorf("lookup role %s: %w", spec.Name, err)
		}
		if existing != nil {
			continue
		}
		r := NewSystemRole(uuid.New().String(), spec)
		if err := s.repo.Create(ctx, ToDataModel(r)); err != nil {
			return fmt.Errorf("create role %s: %w", spec.Name, err)
		}
		s.logger.Info("system role created", "role", spec.Name)
	}
	return nil
}

// LoadPolicies pushes every stored role into the authorizer.
func (s *Service) LoadPolicies(ctx context.Context) error {
	roles, err := s.List(ctx)
	if err != nil {
		return err
	}
	return s.authorizer.Load(roles)
}

func (s *Service) List(ctx context.Context) ([]*Role, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list roles", "error", err)
		return nil, internal.NewInternalError("failed to list roles", err)
	}
	roles := make([]*Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, FromDataModel(row))
	}
	return roles, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Role, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to get role", err)
	}
	if row == nil {
		return nil, internal.ErrRoleNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) Permissions() []string {
	return rbac.Strings(rbac.AllPermissions)
}

func (s *Service) Create(ctx context.Context, actor *coreuser.Principal, dto *CreateRoleDTO) (*Role, error) {
	if !actor.Can(string(rbac.PermRolesManage)) {
		return nil, internal.ErrForbidden
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := checkCustomRank(dto.Rank); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(ctx, dto.Name)
	if err != nil {
		return nil, internal.NewInternalError("failed to check role name", err)
	}
	if existing != nil || rbac.IsSystemRole(dto.Name) {
		return nil, internal.ErrDuplicateRole
	}

	now := time.Now()
	r := &Role{
		ID:          uuid.New().String(),
		Name:        dto.Name,
		Rank:        dto.Rank,
		IsEditable:  true,
		Permissions: dedupe(dto.Permissions),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, ToDataModel(r)); err != nil {
		s.logger.Error("failed to create role", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create role", err)
	}
	if err := s.authorizer.SetRole(r.Name, r.Rank, r.Permissions); err != nil {
		return nil, internal.NewInternalError("failed to apply role policy", err)
	}

	s.logger.Info("role created", "role_id", r.ID, "name", r.Name, "actor_id", actor.ID)
	return r, nil
}

func (s *Service) Update(ctx context.Context, actor *coreuser.Principal, id string, dto *UpdateRoleDTO) (*Role, error) {
	if !actor.Can(string(rbac.PermRolesManage)) {
		return nil, internal.ErrForbidden
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.IsEditable {
		return nil, internal.ErrRoleNotEditable
	}

	if dto.Rank != nil {
		if err := checkCustomRank(*dto.Rank); err != nil {
			return nil, err
		}
		r.Rank = *dto.Rank
	}
	if dto.Permissions != nil {
		r.Permissions = dedupe(dto.Permissions)
	}
	r.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, ToDataModel(r)); err != nil {
		s.logger.Error("failed to update role", "error", err, "role_id", id)
		return nil, internal.NewInternalError("failed to update role", err)
	}
	if err := s.authorizer.SetRole(r.Name, r.Rank, r.Permissions); err != nil {
		return nil, internal.NewInternalError("failed to apply role policy", err)
	}

	s.logger.Info("role updated", "role_id", r.ID, "actor_id", actor.ID)
	return r, nil
}

func (s *Service) Delete(ctx context.Context, actor *coreuser.Principal, id string) error {
	if !actor.Can(string(rbac.PermRolesManage)) {
		return internal.ErrForbidden
	}

	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !r.IsEditable {
		return internal.ErrRoleNotEditable
	}

	inUse, err := s.repo.CountUsers(ctx, r.Name)
	if err != nil {
		return internal.NewInternalError("failed to check role usage", err)
	}
	if inUse > 0 {
		return internal.ErrRoleInUse.WithDetails(map[string]int64{"users": inUse})
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete role", "error", err, "role_id", id)
		return internal.NewInternalError("failed to delete role", err)
	}
	if err := s.authorizer.RemoveRole(r.Name); err != nil {
		return internal.NewInternalError("failed to drop role policy", err)
	}

	s.logger.Info("role deleted", "role_id", id, "name", r.Name, "actor_id", actor.ID)
	return nil
}

// CanAssign reports whether actor may give target role to a user. Admins may
// assign anything; everyone else only roles ranked strictly below their own.
func (s *Service) CanAssign(actor *coreuser.Principal, target string) error {
	rank, ok := s.authorizer.Rank(target)
	if !ok {
		return internal.NewValidationFieldError("role", fmt.Sprintf("unknown role %q", target), internal.ErrCodeUnknownRole)
	}
	if actor.Role == rbac.RoleAdmin {
		return nil
	}
	if rank >= actor.Rank {
		return internal.ErrInsufficientRank
	}
	return nil
}

// Rank returns the rank of a known role.
func (s *Service) Rank(role string) (int, bool) {
	return s.authorizer.Rank(role)
}

// Resolve returns the rank and permissions the principal for role carries.
func (s *Service) Resolve(role string) (int, []string, bool) {
	rank, ok := s.authorizer.Rank(role)
	if !ok {
		return 0, nil, false
	}
	return rank, s.authorizer.Permissions(role), true
}

func checkCustomRank(rank int) error {
	if rank <= 0 || rank >= rbac.RankManager {
		return internal.NewValidationFieldError("rank",
			fmt.Sprintf("rank must be between 1 and %d", rbac.RankManager-1),
			internal.ErrCodeValidationFailed)
	}
	return nil
}
