package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeTaskAssigned  = "task.assigned"
	EventTypeTaskStarted   = "task.started"
	EventTypeTaskSubmitted = "task.submitted"
	EventTypeTaskApproved  = "task.approved"
	EventTypeTaskRejected  = "task.rejected"
)

var TaskEventTypes = []string{
	EventTypeTaskAssigned,
	EventTypeTaskStarted,
	EventTypeTaskSubmitted,
	EventTypeTaskApproved,
	EventTypeTaskRejected,
}

type TaskEvent struct {
	BaseEvent
	TaskID     string  `json:"task_id"`
	Title      string  `json:"title"`
	ActorID    string  `json:"actor_id"`
	AssigneeID *string `json:"assignee_id,omitempty"`
	CreatorID  *string `json:"creator_id,omitempty"`
	Comment    string  `json:"comment,omitempty"`
}

type TaskEventParams struct {
	TaskID     string
	Title      string
	ActorID    string
	AssigneeID *string
	CreatorID  *string
	Comment    string
}

func NewTaskEvent(eventType string, p TaskEventParams) *TaskEvent {
	data := map[string]interface{}{
		"task_id":  p.TaskID,
		"title":    p.Title,
		"actor_id": p.ActorID,
	}
	if p.AssigneeID != nil {
		data["assignee_id"] = *p.AssigneeID
	}
	if p.CreatorID != nil {
		data["creator_id"] = *p.CreatorID
	}
	if p.Comment != "" {
		data["comment"] = p.Comment
	}

	return &TaskEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data:      data,
		},
		TaskID:     p.TaskID,
		Title:      p.Title,
		ActorID:    p.ActorID,
		AssigneeID: p.AssigneeID,
		CreatorID:  p.CreatorID,
		Comment:    p.Comment,
	}
}
