package task

import (
	"strings"
	"time"

	"github.com/frahmantamala/opsboard/internal/core/common/validation"
)

type CreateTaskDTO struct {
	Title              string    `json:"title" validate:"required,max=200"`
	Description        string    `json:"description" validate:"max=4000"`
	AssigneeID         string    `json:"assignee_id"`
	DueDate            time.Time `json:"due_date" validate:"required"`
	Priority           Priority  `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	RequiresAttachment bool      `json:"requires_attachment_for_completion"`
}

func (d *CreateTaskDTO) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if err := validation.ValidateStruct(d); err != nil {
		return err
	}
	return nil
}

// TransitionDTO is the body of every status-changing request. Version, when
// present, must match the stored version.
type TransitionDTO struct {
	AttachmentURL string `json:"attachment_url,omitempty" validate:"omitempty,url"`
	Comment       string `json:"comment,omitempty" validate:"max=2000"`
	Version       *int64 `json:"version,omitempty"`
}

func (d *TransitionDTO) Validate() error {
	if err := validation.ValidateStruct(d); err != nil {
		return err
	}
	return nil
}

type MoveDTO struct {
	TransitionDTO
	Status string `json:"status" validate:"required"`
}

func (d *MoveDTO) Validate() error {
	if err := validation.ValidateStruct(d); err != nil {
		return err
	}
	return nil
}

type ListFilter struct {
	Status     Status
	AssigneeID string
	DueFrom    time.Time
	DueTo      time.Time
}

func (f ListFilter) Validate() error {
	if err := validation.ValidateDateRange(f.DueFrom, f.DueTo); err != nil {
		return err
	}
	return nil
}

type TaskResponse struct {
	*Task
	Status Status `json:"status"`
}

type TasksResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

// Outcome is the structured result of a transition attempt.
type Outcome struct {
	Kind    string `json:"kind"`
	TaskID  string `json:"task_id"`
	ActorID string `json:"actor_id"`
}

type TransitionResponse struct {
	Task    TaskResponse `json:"task"`
	Outcome Outcome      `json:"outcome"`
}
