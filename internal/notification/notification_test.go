package notification_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/opsboard/internal"
	"github.com/frahmantamala/opsboard/internal/core/events"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/internal/notification"
)

func TestNotification(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notification Module Suite")
}

func ptr(s string) *string { return &s }

type memoryRepository struct {
	mu       sync.Mutex
	items    []*notification.Notification
	failures int
}

func (m *memoryRepository) Create(ctx context.Context, n *notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("db unavailable")
	}
	cp := *n
	m.items = append(m.items, &cp)
	return nil
}

func (m *memoryRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*notification.Notification, 0)
	for _, n := range m.items {
		if n.UserID != userID || (unreadOnly && n.IsRead()) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	list, _ := m.ListByUser(ctx, userID, true, 0)
	return len(list), nil
}

func (m *memoryRepository) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.ID == id {
			n.ReadAt = &at
		}
	}
	return nil
}

func (m *memoryRepository) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.items))
	for _, n := range m.items {
		out = append(out, n.UserID)
	}
	return out
}

type staticDirectory struct {
	users []coreuser.User
}

func (d *staticDirectory) All(ctx context.Context) ([]coreuser.User, error) {
	return d.users, nil
}

func taskEvent(eventType, actor string, assignee, creator *string) *events.TaskEvent {
	return events.NewTaskEvent(eventType, events.TaskEventParams{
		TaskID:     "t1",
		Title:      "Restock shelves",
		ActorID:    actor,
		AssigneeID: assignee,
		CreatorID:  creator,
	})
}

var _ = Describe("Notification", func() {
	var (
		repo       *memoryRepository
		dispatcher *notification.Dispatcher
		service    *notification.Service
		bus        *events.EventBus
		logger     *slog.Logger
		ctx        context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo = &memoryRepository{}
		dispatcher = notification.NewDispatcher(repo, notification.DispatcherConfig{MaxWorkers: 2, QueueSize: 10}, logger)
		dir := &staticDirectory{users: []coreuser.User{
			{ID: "sup"},
			{ID: "A", SupervisorID: ptr("sup")},
			{ID: "creator"},
		}}
		service = notification.NewService(repo, dir, dispatcher, logger)
		bus = events.NewEventBus(logger)
		service.Subscribe(bus)
	})

	AfterEach(func() {
		dispatcher.Shutdown()
	})

	Describe("HandleTaskEvent", func() {
		It("notifies the assignee about an assignment", func() {
			Expect(bus.Publish(ctx, taskEvent(events.EventTypeTaskAssigned, "creator", ptr("A"), ptr("creator")))).To(Succeed())

			Eventually(repo.recipients).Should(Equal([]string{"A"}))
		})

		It("skips the actor when they assign a task to themselves", func() {
			Expect(service.HandleTaskEvent(ctx, taskEvent(events.EventTypeTaskAssigned, "A", ptr("A"), ptr("A")))).To(Succeed())

			Consistently(repo.recipients, 200*time.Millisecond).Should(BeEmpty())
		})

		It("notifies the creator and the assignee's supervisor on submit", func() {
			Expect(bus.Publish(ctx, taskEvent(events.EventTypeTaskSubmitted, "A", ptr("A"), ptr("creator")))).To(Succeed())

			Eventually(repo.recipients).Should(ConsistOf("creator", "sup"))
		})

		It("notifies the supervisor once when they also created the task", func() {
			Expect(service.HandleTaskEvent(ctx, taskEvent(events.EventTypeTaskSubmitted, "A", ptr("A"), ptr("sup")))).To(Succeed())

			Eventually(repo.recipients).Should(Equal([]string{"sup"}))
			Consistently(repo.recipients, 200*time.Millisecond).Should(HaveLen(1))
		})

		It("includes the rejection comment in the message", func() {
			e := events.NewTaskEvent(events.EventTypeTaskRejected, events.TaskEventParams{
				TaskID: "t1", Title: "Restock shelves", ActorID: "sup",
				AssigneeID: ptr("A"), Comment: "missing photo",
			})
			Expect(service.HandleTaskEvent(ctx, e)).To(Succeed())

			Eventually(func() string {
				list, _ := repo.ListByUser(ctx, "A", false, 0)
				if len(list) == 0 {
					return ""
				}
				return list[0].Message
			}).Should(ContainSubstring("missing photo"))
		})

		It("retries a failed store", func() {
			repo.failures = 1
			Expect(service.HandleTaskEvent(ctx, taskEvent(events.EventTypeTaskApproved, "sup", ptr("A"), ptr("sup")))).To(Succeed())

			Eventually(repo.recipients, 2*time.Second).Should(Equal([]string{"A"}))
		})

		It("rejects non task payloads", func() {
			err := service.HandleTaskEvent(ctx, events.BaseEvent{Type: events.EventTypeTaskApproved})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("MarkRead", func() {
		var owner *coreuser.Principal

		BeforeEach(func() {
			owner = &coreuser.Principal{User: coreuser.User{ID: "A"}}
			Expect(repo.Create(ctx, &notification.Notification{ID: "n1", UserID: "A", Kind: notification.KindApproved})).To(Succeed())
		})

		It("marks the caller's notification read and lowers the unread count", func() {
			n, err := service.MarkRead(ctx, owner, "n1")
			Expect(err).NotTo(HaveOccurred())
			Expect(n.IsRead()).To(BeTrue())

			resp, err := service.List(ctx, owner, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Notifications).To(HaveLen(1))
			Expect(resp.Unread).To(BeZero())
		})

		It("hides other users' notifications", func() {
			other := &coreuser.Principal{User: coreuser.User{ID: "B"}}
			_, err := service.MarkRead(ctx, other, "n1")
			Expect(err).To(MatchError(internal.ErrNotificationNotFound))
		})
	})

	Describe("Dispatcher", func() {
		It("refuses work after shutdown", func() {
			dispatcher.Shutdown()
			err := dispatcher.Enqueue(&notification.Notification{ID: "late", UserID: "A"})
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
