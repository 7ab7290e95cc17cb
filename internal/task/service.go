package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/frahmantamala/opsboard/internal"
	taskDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/task"
	"github.com/frahmantamala/opsboard/internal/core/events"
	"github.com/frahmantamala/opsboard/internal/core/lock"
	"github.com/frahmantamala/opsboard/internal/core/rbac"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/internal/visibility"
	"github.com/frahmantamala/opsboard/pkg/tracing"
)

// Query narrows what the repository returns. An empty AssigneeIDs slice
// with All unset matches nothing but the creator clause.
type Query struct {
	All         bool
	AssigneeIDs []string
	CreatorID   string
	Statuses    []Status
	DueFrom     time.Time
	DueTo       time.Time
}

type RepositoryAPI interface {
	List(ctx context.Context, q Query) ([]*taskDatamodel.Task, error)
	GetByID(ctx context.Context, id string) (*taskDatamodel.Task, error)
	Create(ctx context.Context, t *taskDatamodel.Task) error
	// Update writes t when the stored version equals expectedVersion and
	// bumps it; otherwise it returns internal.ErrVersionConflict.
	Update(ctx context.Context, t *taskDatamodel.Task, expectedVersion int64) error
}

// UserDirectory supplies the user collection visibility is computed over.
type UserDirectory interface {
	All(ctx context.Context) ([]coreuser.User, error)
}

type Option func(*Service)

// WithClock replaces time.Now, used for due date checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	repo      RepositoryAPI
	users     UserDirectory
	resolver  *visibility.Resolver
	publisher events.Publisher
	locks     *lock.Keyed
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewService(repo RepositoryAPI, users UserDirectory, resolver *visibility.Resolver, publisher events.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		users:     users,
		resolver:  resolver,
		publisher: publisher,
		locks:     lock.NewKeyed(),
		logger:    logger,
		tracer:    tracing.Tracer("opsboard/task"),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) Create(ctx context.Context, actor *coreuser.Principal, dto *CreateTaskDTO) (*Task, error) {
	ctx, span := s.tracer.Start(ctx, "task.Create")
	defer span.End()

	if !actor.Can(string(rbac.PermTasksCreate)) {
		return nil, internal.ErrForbidden
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	assigneeID := dto.AssigneeID
	if assigneeID == "" {
		assigneeID = actor.ID
	}
	if assigneeID != actor.ID {
		all, err := s.users.All(ctx)
		if err != nil {
			return nil, err
		}
		if findUser(all, assigneeID) == nil {
			return nil, internal.ErrUserNotFound
		}
		if !s.resolver.CanManage(actor.User, assigneeID, all) {
			return nil, internal.ErrInsufficientRank
		}
	}

	now := s.now()
	creatorID := actor.ID
	t := &Task{
		ID:                 uuid.New().String(),
		Title:              dto.Title,
		Description:        dto.Description,
		AssigneeID:         &assigneeID,
		CreatorID:          &creatorID,
		DueDate:            dto.DueDate,
		Priority:           dto.Priority,
		Status:             StatusToDo,
		RequiresAttachment: dto.RequiresAttachment,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, ToDataModel(t)); err != nil {
		s.logger.Error("failed to create task", "error", err, "actor_id", actor.ID)
		return nil, internal.NewInternalError("failed to create task", err)
	}

	span.SetAttributes(attribute.String("task.id", t.ID))
	s.logger.Info("task created", "task_id", t.ID, "assignee_id", assigneeID, "actor_id", actor.ID)
	s.publish(ctx, events.EventTypeTaskAssigned, t, actor.ID, "")
	return t, nil
}

// Get returns a task the actor may see.
func (s *Service) Get(ctx context.Context, actor *coreuser.Principal, id string) (*Task, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Can(string(rbac.PermTasksViewAll)) || t.IsCreator(actor.ID) || t.IsAssignee(actor.ID) {
		return t, nil
	}
	if t.AssigneeID != nil {
		all, err := s.users.All(ctx)
		if err != nil {
			return nil, err
		}
		if s.resolver.CanManage(actor.User, *t.AssigneeID, all) {
			return t, nil
		}
	}
	return nil, internal.ErrTaskNotFound
}

// List returns tasks assigned to anyone in the actor's visible set, plus
// tasks the actor created. Status filtering is applied on the effective
// status so Overdue can be asked for.
func (s *Service) List(ctx context.Context, actor *coreuser.Principal, f ListFilter) ([]*Task, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	q := Query{CreatorID: actor.ID, DueFrom: f.DueFrom, DueTo: f.DueTo}
	if actor.Can(string(rbac.PermTasksViewAll)) {
		q.All = true
	} else {
		all, err := s.users.All(ctx)
		if err != nil {
			return nil, err
		}
		q.AssigneeIDs = visibility.IDs(s.resolver.Visible(actor.User, all))
	}

	if f.AssigneeID != "" {
		if !q.All && !containsString(q.AssigneeIDs, f.AssigneeID) {
			return nil, internal.ErrForbidden
		}
		q.All = false
		q.AssigneeIDs = []string{f.AssigneeID}
		q.CreatorID = ""
	}

	switch f.Status {
	case "":
	case StatusOverdue:
		q.Statuses = []Status{StatusToDo, StatusInProgress, StatusPendingApproval}
	default:
		q.Statuses = []Status{f.Status}
	}

	rows, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("failed to list tasks", "error", err, "actor_id", actor.ID)
		return nil, internal.NewInternalError("failed to list tasks", err)
	}

	now := s.now()
	out := make([]*Task, 0, len(rows))
	for _, row := range rows {
		t := FromDataModel(row)
		if f.Status != "" && t.EffectiveStatus(now) != f.Status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Service) Start(ctx context.Context, actor *coreuser.Principal, id string, dto *TransitionDTO) (*Task, error) {
	return s.transition(ctx, actor, id, CommandStart, dto)
}

func (s *Service) Submit(ctx context.Context, actor *coreuser.Principal, id string, dto *TransitionDTO) (*Task, error) {
	return s.transition(ctx, actor, id, CommandSubmit, dto)
}

func (s *Service) Approve(ctx context.Context, actor *coreuser.Principal, id string, dto *TransitionDTO) (*Task, error) {
	return s.transition(ctx, actor, id, CommandApprove, dto)
}

func (s *Service) Reject(ctx context.Context, actor *coreuser.Principal, id string, dto *TransitionDTO) (*Task, error) {
	return s.transition(ctx, actor, id, CommandReject, dto)
}

// Move handles a generic status change. The command is chosen from the
// status read under the task lock.
func (s *Service) Move(ctx context.Context, actor *coreuser.Principal, id string, dto *MoveDTO) (*Task, Command, error) {
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}
	target, err := ParseStatusField("status", dto.Status, internal.ErrCodeInvalidTransition)
	if err != nil {
		return nil, "", err
	}

	return s.apply(ctx, actor, id, func(current Status) (Command, error) {
		return CommandFor(current, target)
	}, &dto.TransitionDTO)
}

// commandPicker chooses the command from the stored status of a locked task.
type commandPicker func(current Status) (Command, error)

func (s *Service) transition(ctx context.Context, actor *coreuser.Principal, id string, cmd Command, dto *TransitionDTO) (*Task, error) {
	t, _, err := s.apply(ctx, actor, id, func(Status) (Command, error) { return cmd, nil }, dto)
	return t, err
}

func (s *Service) apply(ctx context.Context, actor *coreuser.Principal, id string, pick commandPicker, dto *TransitionDTO) (t *Task, cmd Command, err error) {
	ctx, span := s.tracer.Start(ctx, "task.transition", trace.WithAttributes(
		attribute.String("task.id", id),
		attribute.String("actor.id", actor.ID),
	))
	defer func() {
		if cmd != "" {
			recordTransition(cmd, err)
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if dto == nil {
		dto = &TransitionDTO{}
	}
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	t, err = s.load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	cmd, err = pick(t.Status)
	if err != nil {
		return nil, "", err
	}
	span.SetName("task." + string(cmd))

	in := Transition{
		Actor:         actor,
		AttachmentURL: dto.AttachmentURL,
		Comment:       dto.Comment,
		Version:       dto.Version,
	}
	if t.AssigneeID != nil && (cmd == CommandApprove || cmd == CommandReject) {
		all, err := s.users.All(ctx)
		if err != nil {
			return nil, cmd, err
		}
		if assignee := findUser(all, *t.AssigneeID); assignee != nil {
			in.AssigneeSupervisorID = assignee.SupervisorID
		}
	}

	to, err := Decide(cmd, t, in)
	if err != nil {
		s.logger.Info("task transition refused",
			"task_id", id, "command", cmd, "actor_id", actor.ID, "error", err)
		return nil, cmd, err
	}

	now := s.now()
	expected := t.Version
	from := t.Status
	t.Status = to
	t.UpdatedAt = now

	switch cmd {
	case CommandSubmit:
		if dto.AttachmentURL != "" {
			url := dto.AttachmentURL
			t.AttachmentURL = &url
		}
	case CommandApprove:
		reviewer := actor.ID
		t.ReviewedBy = &reviewer
		t.ReviewedAt = &now
		t.CompletedAt = &now
		if dto.Comment != "" {
			t.ReviewComment = dto.Comment
		}
	case CommandReject:
		reviewer := actor.ID
		t.ReviewedBy = &reviewer
		t.ReviewedAt = &now
		t.ReviewComment = dto.Comment
	}

	row := ToDataModel(t)
	if err := s.repo.Update(ctx, row, expected); err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, cmd, appErr
		}
		s.logger.Error("failed to update task", "error", err, "task_id", id)
		return nil, cmd, internal.NewInternalError("failed to update task", err)
	}
	t.Version = row.Version

	s.logger.Info("task transitioned",
		"task_id", id, "command", cmd, "from", from, "to", to, "actor_id", actor.ID, "version", t.Version)
	s.publish(ctx, eventTypeFor(cmd), t, actor.ID, dto.Comment)
	return t, cmd, nil
}

func (s *Service) load(ctx context.Context, id string) (*Task, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to get task", err)
	}
	if row == nil {
		return nil, internal.ErrTaskNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) publish(ctx context.Context, eventType string, t *Task, actorID, comment string) {
	if s.publisher == nil {
		return
	}
	evt := events.NewTaskEvent(eventType, events.TaskEventParams{
		TaskID:     t.ID,
		Title:      t.Title,
		ActorID:    actorID,
		AssigneeID: t.AssigneeID,
		CreatorID:  t.CreatorID,
		Comment:    comment,
	})
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Error("failed to publish task event", "error", err, "event_type", eventType, "task_id", t.ID)
	}
}

// OutcomeKind names a successful command the way notifications do.
func OutcomeKind(cmd Command) string {
	switch cmd {
	case CommandStart:
		return "Started"
	case CommandSubmit:
		return "Submitted"
	case CommandApprove:
		return "Approved"
	case CommandReject:
		return "Rejected"
	}
	return ""
}

func eventTypeFor(cmd Command) string {
	switch cmd {
	case CommandStart:
		return events.EventTypeTaskStarted
	case CommandSubmit:
		return events.EventTypeTaskSubmitted
	case CommandApprove:
		return events.EventTypeTaskApproved
	default:
		return events.EventTypeTaskRejected
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

func containsString(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
