package user

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/opsboard/internal"
	userDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/user"
	"github.com/frahmantamala/opsboard/internal/core/lock"
	"github.com/frahmantamala/opsboard/internal/core/rbac"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/internal/visibility"
	"github.com/frahmantamala/opsboard/pkg/tracing"
)

type Repository interface {
	ListUsers(ctx context.Context) ([]*userDatamodel.User, error)
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	// Update writes u when the stored version equals expectedVersion and
	// bumps it; otherwise it returns internal.ErrVersionConflict.
	Update(ctx context.Context, u *userDatamodel.User, expectedVersion int64) error
	// DeleteAndUnassign removes the user, clears every task reference to it
	// and moves its direct reports to newSupervisorID, atomically.
	DeleteAndUnassign(ctx context.Context, id string, newSupervisorID *string) (int64, error)
}

// RoleAssigner decides whether an actor may hand out a role and ranks the
// roles users already hold.
type RoleAssigner interface {
	CanAssign(actor *coreuser.Principal, role string) error
	Rank(role string) (int, bool)
}

type Service struct {
	repo       Repository
	roles      RoleAssigner
	resolver   *visibility.Resolver
	locks      *lock.Keyed
	bcryptCost int
	logger     *slog.Logger
	tracer     trace.Tracer
}

func NewService(repo Repository, roles RoleAssigner, resolver *visibility.Resolver, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		roles:      roles,
		resolver:   resolver,
		locks:      lock.NewKeyed(),
		bcryptCost: bcryptCost,
		logger:     logger,
		tracer:     tracing.Tracer("opsboard/user"),
	}
}

// All returns every user as the shared domain type, in storage order.
func (s *Service) All(ctx context.Context) ([]coreuser.User, error) {
	rows, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to load users", err)
	}
	return toCoreSlice(rows), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to get user", err)
	}
	if row == nil {
		return nil, internal.ErrUserNotFound
	}
	return FromDataModel(row), nil
}

// List resolves the requested view for actor and optionally narrows it with
// a fuzzy match on name or email.
func (s *Service) List(ctx context.Context, actor *coreuser.Principal, view visibility.View, query string) ([]*User, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	resolved := s.resolver.Resolve(view, actor.User, all)
	query = strings.TrimSpace(query)

	out := make([]*User, 0, len(resolved))
	for _, u := range resolved {
		if query != "" && !fuzzy.MatchFold(query, u.Name) && !fuzzy.MatchFold(query, u.Email) {
			continue
		}
		out = append(out, FromCore(u))
	}
	return out, nil
}

// Get returns a user the actor can see: themselves or someone they manage.
func (s *Service) Get(ctx context.Context, actor *coreuser.Principal, id string) (*User, error) {
	if id == actor.ID {
		return s.GetByID(ctx, id)
	}

	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if !containsID(all, id) {
		return nil, internal.ErrUserNotFound
	}
	if !s.resolver.CanManage(actor.User, id, all) {
		return nil, internal.ErrForbidden
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor *coreuser.Principal, dto *CreateUserDTO) (*User, error) {
	ctx, span := s.tracer.Start(ctx, "user.Create")
	defer span.End()

	if !actor.Can(string(rbac.PermUsersManage)) {
		return nil, internal.ErrForbidden
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.roles.CanAssign(actor, dto.Role); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByEmail(ctx, dto.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to check email", err)
	}
	if existing != nil {
		return nil, internal.ErrDuplicateEmail
	}

	id := uuid.New().String()
	if dto.SupervisorID != nil {
		all, err := s.All(ctx)
		if err != nil {
			return nil, err
		}
		if err := checkSupervisor(id, *dto.SupervisorID, all); err != nil {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	now := time.Now()
	u := &User{
		ID:           id,
		Email:        dto.Email,
		Name:         dto.Name,
		Role:         dto.Role,
		SupervisorID: dto.SupervisorID,
		ProjectID:    dto.ProjectID,
		PasswordHash: string(hash),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, ToDataModel(u)); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", dto.Email)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	span.SetAttributes(attribute.String("user.id", u.ID))
	s.logger.Info("user created", "user_id", u.ID, "role", u.Role, "actor_id", actor.ID)
	return u, nil
}

func (s *Service) Update(ctx context.Context, actor *coreuser.Principal, id string, dto *UpdateUserDTO) (*User, error) {
	ctx, span := s.tracer.Start(ctx, "user.Update", trace.WithAttributes(attribute.String("user.id", id)))
	defer span.End()

	if !actor.Can(string(rbac.PermUsersManage)) {
		return nil, internal.ErrForbidden
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if !containsID(all, id) {
		return nil, internal.ErrUserNotFound
	}
	if err := s.checkTarget(actor, id, all); err != nil {
		return nil, err
	}

	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dto.Version != nil && *dto.Version != u.Version {
		return nil, internal.ErrVersionConflict
	}
	expected := u.Version

	if dto.Name != nil {
		u.Name = strings.TrimSpace(*dto.Name)
	}
	if dto.Email != nil && *dto.Email != u.Email {
		other, err := s.repo.GetByEmail(ctx, *dto.Email)
		if err != nil {
			return nil, internal.NewInternalError("failed to check email", err)
		}
		if other != nil {
			return nil, internal.ErrDuplicateEmail
		}
		u.Email = *dto.Email
	}
	if dto.Role != nil && *dto.Role != u.Role {
		if err := s.roles.CanAssign(actor, *dto.Role); err != nil {
			return nil, err
		}
		u.Role = *dto.Role
	}
	if dto.SupervisorID != nil {
		if *dto.SupervisorID == "" {
			u.SupervisorID = nil
		} else {
			if err := checkSupervisor(id, *dto.SupervisorID, all); err != nil {
				return nil, err
			}
			sup := *dto.SupervisorID
			u.SupervisorID = &sup
		}
	}
	if dto.ProjectID != nil {
		if *dto.ProjectID == "" {
			u.ProjectID = nil
		} else {
			p := *dto.ProjectID
			u.ProjectID = &p
		}
	}

	u.UpdatedAt = time.Now()
	row := ToDataModel(u)
	if err := s.repo.Update(ctx, row, expected); err != nil {
		return nil, wrapRepoErr("failed to update user", err)
	}

	s.logger.Info("user updated", "user_id", id, "actor_id", actor.ID, "version", row.Version)
	return FromDataModel(row), nil
}

// Delete removes a user. Their tasks are unassigned and their reports move
// up to the deleted user's own supervisor in the same transaction.
func (s *Service) Delete(ctx context.Context, actor *coreuser.Principal, id string) error {
	ctx, span := s.tracer.Start(ctx, "user.Delete", trace.WithAttributes(attribute.String("user.id", id)))
	defer span.End()

	if !actor.Can(string(rbac.PermUsersManage)) {
		return internal.ErrForbidden
	}
	if id == actor.ID {
		return internal.NewValidationError("You cannot delete your own account", internal.ErrCodeValidationFailed)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	all, err := s.All(ctx)
	if err != nil {
		return err
	}
	target := findUser(all, id)
	if target == nil {
		return internal.ErrUserNotFound
	}
	if err := s.checkTarget(actor, id, all); err != nil {
		return err
	}

	unassigned, err := s.repo.DeleteAndUnassign(ctx, id, target.SupervisorID)
	if err != nil {
		s.logger.Error("failed to delete user", "error", err, "user_id", id)
		return internal.NewInternalError("failed to delete user", err)
	}

	span.SetAttributes(attribute.Int64("tasks.unassigned", unassigned))
	s.logger.Info("user deleted", "user_id", id, "actor_id", actor.ID, "tasks_unassigned", unassigned)
	return nil
}

// SetPlanningScore lets a superior grade someone they manage.
func (s *Service) SetPlanningScore(ctx context.Context, actor *coreuser.Principal, id string, dto *PlanningScoreDTO) (*User, error) {
	if !actor.Can(string(rbac.PermPlanningScore)) {
		return nil, internal.ErrForbidden
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if !containsID(all, id) {
		return nil, internal.ErrUserNotFound
	}
	if err := s.checkTarget(actor, id, all); err != nil {
		return nil, err
	}

	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dto.Version != nil && *dto.Version != u.Version {
		return nil, internal.ErrVersionConflict
	}

	expected := u.Version
	u.PlanningScore = dto.Score
	u.UpdatedAt = time.Now()
	row := ToDataModel(u)
	if err := s.repo.Update(ctx, row, expected); err != nil {
		return nil, wrapRepoErr("failed to update planning score", err)
	}

	s.logger.Info("planning score set", "user_id", id, "actor_id", actor.ID, "score", dto.Score)
	return FromDataModel(row), nil
}

// checkTarget requires the target to be in the actor's manageable view and,
// unless the actor is an Admin, to hold a role ranked strictly below the
// actor's. Roles no longer known to the authorizer rank lowest.
func (s *Service) checkTarget(actor *coreuser.Principal, id string, all []coreuser.User) error {
	if !s.resolver.CanManage(actor.User, id, all) {
		return internal.ErrInsufficientRank
	}
	if actor.Role == rbac.RoleAdmin {
		return nil
	}
	target := findUser(all, id)
	if target == nil {
		return internal.ErrUserNotFound
	}
	if rank, ok := s.roles.Rank(target.Role); ok && rank >= actor.Rank {
		return internal.ErrInsufficientRank
	}
	return nil
}

// checkSupervisor rejects unknown supervisors, self-supervision and any
// assignment that would close a loop in the reporting chain.
func checkSupervisor(userID, supervisorID string, all []coreuser.User) error {
	if supervisorID == userID {
		return internal.NewValidationFieldError("supervisor_id", "a user cannot supervise themselves", internal.ErrCodeInvalidSupervisor)
	}

	byID := make(map[string]coreuser.User, len(all))
	for _, u := range all {
		byID[u.ID] = u
	}
	if _, ok := byID[supervisorID]; !ok {
		return internal.NewValidationFieldError("supervisor_id", "supervisor does not exist", internal.ErrCodeInvalidSupervisor)
	}

	seen := map[string]struct{}{}
	next := supervisorID
	for {
		if next == userID {
			return internal.NewValidationFieldError("supervisor_id", "supervisor assignment would create a cycle", internal.ErrCodeInvalidSupervisor)
		}
		if _, ok := seen[next]; ok {
			return nil
		}
		seen[next] = struct{}{}

		u, ok := byID[next]
		if !ok || u.SupervisorID == nil {
			return nil
		}
		next = *u.SupervisorID
	}
}

func findUser(all []coreuser.User, id string) *coreuser.User {
	for i := range all {
		if all[i].ID == id {
			return &all[i]
		}
	}
	return nil
}

func containsID(all []coreuser.User, id string) bool {
	for _, u := range all {
		if u.ID == id {
			return true
		}
	}
	return false
}

func wrapRepoErr(msg string, err error) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.NewInternalError(msg, err)
}
