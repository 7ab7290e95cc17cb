package task

import (
	"time"

	"github.com/frahmantamala/opsboard/internal"
	"github.com/frahmantamala/opsboard/internal/core/common/validation"
	taskDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/task"
)

type Status string

const (
	StatusToDo            Status = "To Do"
	StatusInProgress      Status = "In Progress"
	StatusPendingApproval Status = "Pending Approval"
	StatusCompleted       Status = "Completed"
	// StatusOverdue is never stored; see EffectiveStatus.
	StatusOverdue Status = "Overdue"
)

var StoredStatuses = []Status{StatusToDo, StatusInProgress, StatusPendingApproval, StatusCompleted}

var knownStatuses = []string{
	string(StatusToDo), string(StatusInProgress), string(StatusPendingApproval),
	string(StatusCompleted), string(StatusOverdue),
}

// ParseStatusField reads a client supplied status. An unknown value is
// reported against field with code.
func ParseStatusField(field, raw string, code internal.ErrorCode) (Status, error) {
	if err := validation.ValidateOneOf(field, raw, code, knownStatuses...); err != nil {
		return "", err
	}
	return Status(raw), nil
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// EffectiveStatus derives the status shown to readers. A task that is not
// completed and whose due date has passed reads as Overdue.
func EffectiveStatus(stored Status, due time.Time, now time.Time) Status {
	if stored != StatusCompleted && due.Before(now) {
		return StatusOverdue
	}
	return stored
}

type Task struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	AssigneeID         *string    `json:"assignee_id"`
	CreatorID          *string    `json:"creator_id"`
	DueDate            time.Time  `json:"due_date"`
	Priority           Priority   `json:"priority"`
	Status             Status     `json:"stored_status"`
	RequiresAttachment bool       `json:"requires_attachment_for_completion"`
	AttachmentURL      *string    `json:"attachment_url,omitempty"`
	ReviewComment      string     `json:"review_comment,omitempty"`
	ReviewedBy         *string    `json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	Version            int64      `json:"version"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (t *Task) EffectiveStatus(now time.Time) Status {
	return EffectiveStatus(t.Status, t.DueDate, now)
}

func (t *Task) IsAssignee(userID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

func (t *Task) IsCreator(userID string) bool {
	return t.CreatorID != nil && *t.CreatorID == userID
}

func (t *Task) HasAttachment() bool {
	return t.AttachmentURL != nil && *t.AttachmentURL != ""
}

func (t *Task) ToResponse(now time.Time) TaskResponse {
	return TaskResponse{
		Task:   t,
		Status: t.EffectiveStatus(now),
	}
}

func ToDataModel(t *Task) *taskDatamodel.Task {
	return &taskDatamodel.Task{
		ID:                 t.ID,
		Title:              t.Title,
		Description:        t.Description,
		AssigneeID:         t.AssigneeID,
		CreatorID:          t.CreatorID,
		DueDate:            t.DueDate,
		Priority:           string(t.Priority),
		Status:             string(t.Status),
		RequiresAttachment: t.RequiresAttachment,
		AttachmentURL:      t.AttachmentURL,
		ReviewComment:      t.ReviewComment,
		ReviewedBy:         t.ReviewedBy,
		ReviewedAt:         t.ReviewedAt,
		CompletedAt:        t.CompletedAt,
		Version:            t.Version,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func FromDataModel(t *taskDatamodel.Task) *Task {
	return &Task{
		ID:                 t.ID,
		Title:              t.Title,
		Description:        t.Description,
		AssigneeID:         t.AssigneeID,
		CreatorID:          t.CreatorID,
		DueDate:            t.DueDate,
		Priority:           Priority(t.Priority),
		Status:             Status(t.Status),
		RequiresAttachment: t.RequiresAttachment,
		AttachmentURL:      t.AttachmentURL,
		ReviewComment:      t.ReviewComment,
		ReviewedBy:         t.ReviewedBy,
		ReviewedAt:         t.ReviewedAt,
		CompletedAt:        t.CompletedAt,
		Version:            t.Version,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}
