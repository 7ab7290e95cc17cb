// Package notification turns task events into per-user inbox entries.
package notification

import (
	"fmt"
	"time"

	notificationDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/notification"
	"github.com/frahmantamala/opsboard/internal/core/events"
)

type Kind string

const (
	KindAssigned  Kind = "Assigned"
	KindStarted   Kind = "Started"
	KindSubmitted Kind = "Submitted"
	KindApproved  Kind = "Approved"
	KindRejected  Kind = "Rejected"
)

var kindByEvent = map[string]Kind{
	events.EventTypeTaskAssigned:  KindAssigned,
	events.EventTypeTaskStarted:   KindStarted,
	events.EventTypeTaskSubmitted: KindSubmitted,
	events.EventTypeTaskApproved:  KindApproved,
	events.EventTypeTaskRejected:  KindRejected,
}

// KindForEvent maps a task event type to its notification kind.
func KindForEvent(eventType string) (Kind, bool) {
	k, ok := kindByEvent[eventType]
	return k, ok
}

type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Kind      Kind       `json:"kind"`
	TaskID    *string    `json:"task_id,omitempty"`
	ActorID   *string    `json:"actor_id,omitempty"`
	Message   string     `json:"message"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

func Message(kind Kind, title, comment string) string {
	switch kind {
	case KindAssigned:
		return fmt.Sprintf("Task %q was assigned to you", title)
	case KindStarted:
		return fmt.Sprintf("Work started on task %q", title)
	case KindSubmitted:
		return fmt.Sprintf("Task %q is waiting for your approval", title)
	case KindApproved:
		return fmt.Sprintf("Task %q was approved", title)
	case KindRejected:
		if comment != "" {
			return fmt.Sprintf("Task %q was rejected: %s", title, comment)
		}
		return fmt.Sprintf("Task %q was rejected", title)
	default:
		return title
	}
}

func (n *Notification) ToDataModel() *notificationDatamodel.Notification {
	return &notificationDatamodel.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Kind:      string(n.Kind),
		TaskID:    n.TaskID,
		ActorID:   n.ActorID,
		Message:   n.Message,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

func FromDataModel(dm *notificationDatamodel.Notification) *Notification {
	if dm == nil {
		return nil
	}
	return &Notification{
		ID:        dm.ID,
		UserID:    dm.UserID,
		Kind:      Kind(dm.Kind),
		TaskID:    dm.TaskID,
		ActorID:   dm.ActorID,
		Message:   dm.Message,
		ReadAt:    dm.ReadAt,
		CreatedAt: dm.CreatedAt,
	}
}

type NotificationsResponse struct {
	Notifications []*Notification `json:"notifications"`
	Unread        int             `json:"unread"`
}
