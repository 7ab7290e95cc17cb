package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/opsboard/internal"
	"github.com/frahmantamala/opsboard/internal/core/events"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
)

type RepositoryAPI interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	GetByID(ctx context.Context, id string) (*Notification, error)
	MarkRead(ctx context.Context, id string, at time.Time) error
}

type UserDirectory interface {
	All(ctx context.Context) ([]coreuser.User, error)
}

// Enqueuer accepts notifications for asynchronous delivery.
type Enqueuer interface {
	Enqueue(n *Notification) error
}

const defaultListLimit = 50

type Service struct {
	repo   RepositoryAPI
	users  UserDirectory
	queue  Enqueuer
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, users UserDirectory, queue Enqueuer, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		queue:  queue,
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers the service for every task event type.
func (s *Service) Subscribe(bus *events.EventBus) {
	for _, t := range events.TaskEventTypes {
		bus.Subscribe(t, s.HandleTaskEvent)
	}
}

// HandleTaskEvent fans a task event out to its recipients. The actor is never
// notified about their own action.
func (s *Service) HandleTaskEvent(ctx context.Context, e events.Event) error {
	te, ok := e.(*events.TaskEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", e)
	}
	kind, ok := KindForEvent(te.EventType())
	if !ok {
		return nil
	}

	recipients, err := s.recipients(ctx, kind, te)
	if err != nil {
		return err
	}

	for _, userID := range recipients {
		taskID, actorID := te.TaskID, te.ActorID
		n := &Notification{
			ID:        uuid.New().String(),
			UserID:    userID,
			Kind:      kind,
			TaskID:    &taskID,
			ActorID:   &actorID,
			Message:   Message(kind, te.Title, te.Comment),
			CreatedAt: s.now(),
		}
		if err := s.queue.Enqueue(n); err != nil {
			s.logger.Warn("notification not queued",
				"task_id", te.TaskID,
				"user_id", userID,
				"error", err)
		}
	}
	return nil
}

func (s *Service) recipients(ctx context.Context, kind Kind, te *events.TaskEvent) ([]string, error) {
	var candidates []string
	switch kind {
	case KindAssigned, KindApproved, KindRejected:
		if te.AssigneeID != nil {
			candidates = append(candidates, *te.AssigneeID)
		}
	case KindStarted:
		if te.CreatorID != nil {
			candidates = append(candidates, *te.CreatorID)
		}
	case KindSubmitted:
		if te.CreatorID != nil {
			candidates = append(candidates, *te.CreatorID)
		}
		if te.AssigneeID != nil {
			supervisor, err := s.supervisorOf(ctx, *te.AssigneeID)
			if err != nil {
				return nil, err
			}
			if supervisor != "" {
				candidates = append(candidates, supervisor)
			}
		}
	}

	out := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, id := range candidates {
		if id == "" || id == te.ActorID || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

func (s *Service) supervisorOf(ctx context.Context, userID string) (string, error) {
	all, err := s.users.All(ctx)
	if err != nil {
		return "", fmt.Errorf("load users: %w", err)
	}
	for _, u := range all {
		if u.ID == userID && u.SupervisorID != nil {
			return *u.SupervisorID, nil
		}
	}
	return "", nil
}

func (s *Service) List(ctx context.Context, actor *coreuser.Principal, unreadOnly bool) (*NotificationsResponse, error) {
	list, err := s.repo.ListByUser(ctx, actor.ID, unreadOnly, defaultListLimit)
	if err != nil {
		s.logger.Error("failed to list notifications", "error", err, "user_id", actor.ID)
		return nil, internal.NewInternalError("failed to list notifications", err)
	}
	unread, err := s.repo.CountUnread(ctx, actor.ID)
	if err != nil {
		s.logger.Error("failed to count notifications", "error", err, "user_id", actor.ID)
		return nil, internal.NewInternalError("failed to list notifications", err)
	}
	return &NotificationsResponse{Notifications: list, Unread: unread}, nil
}

// MarkRead is idempotent. Another user's notification reads as not found.
func (s *Service) MarkRead(ctx context.Context, actor *coreuser.Principal, id string) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load notification", err)
	}
	if n == nil || n.UserID != actor.ID {
		return nil, internal.ErrNotificationNotFound
	}
	if n.IsRead() {
		return n, nil
	}

	at := s.now()
	if err := s.repo.MarkRead(ctx, id, at); err != nil {
		s.logger.Error("failed to mark notification read", "error", err, "notification_id", id)
		return nil, internal.NewInternalError("failed to update notification", err)
	}
	n.ReadAt = &at
	return n, nil
}
