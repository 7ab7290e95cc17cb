package task

import (
	"strings"

	"github.com/frahmantamala/opsboard/internal"
	"github.com/frahmantamala/opsboard/internal/core/rbac"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
)

type Command string

const (
	CommandStart   Command = "start"
	CommandSubmit  Command = "submit"
	CommandApprove Command = "approve"
	CommandReject  Command = "reject"
)

// Transition is everything Decide needs besides the task itself.
type Transition struct {
	Actor *coreuser.Principal
	// AssigneeSupervisorID is the supervisor of the task's current assignee.
	AssigneeSupervisorID *string
	AttachmentURL        string
	Comment              string
	Version              *int64
}

// Decide validates cmd against t and returns the status the task moves to.
// It has no side effects. Errors come back in a fixed order so callers see
// the same failure for the same situation regardless of storage state.
func Decide(cmd Command, t *Task, in Transition) (Status, error) {
	var (
		to  Status
		err error
	)

	switch cmd {
	case CommandStart:
		to, err = decideStart(t, in)
	case CommandSubmit:
		to, err = decideSubmit(t, in)
	case CommandApprove:
		to, err = decideReview(t, in, true)
	case CommandReject:
		to, err = decideReview(t, in, false)
	default:
		return "", internal.ErrInvalidTransition
	}
	if err != nil {
		return "", err
	}

	if in.Version != nil && *in.Version != t.Version {
		return "", internal.ErrVersionConflict
	}
	return to, nil
}

func decideStart(t *Task, in Transition) (Status, error) {
	if !t.IsAssignee(in.Actor.ID) {
		return "", internal.ErrForbidden
	}
	switch t.Status {
	case StatusInProgress:
		return "", internal.ErrAlreadyInState
	case StatusToDo:
		return StatusInProgress, nil
	}
	return "", internal.ErrInvalidTransition
}

func decideSubmit(t *Task, in Transition) (Status, error) {
	if !t.IsAssignee(in.Actor.ID) {
		return "", internal.ErrForbidden
	}
	switch t.Status {
	case StatusPendingApproval:
		return "", internal.ErrAlreadyInState
	case StatusInProgress:
	default:
		return "", internal.ErrInvalidTransition
	}
	if t.RequiresAttachment && !t.HasAttachment() && strings.TrimSpace(in.AttachmentURL) == "" {
		return "", internal.ErrAttachmentMissing
	}
	return StatusPendingApproval, nil
}

// decideReview covers approve and reject, which share an approver set: the
// task creator or the assignee's direct supervisor, never the assignee.
func decideReview(t *Task, in Transition, approve bool) (Status, error) {
	if t.IsAssignee(in.Actor.ID) {
		return "", internal.ErrSelfApprovalForbidden
	}
	if !CanReview(t, in.Actor, in.AssigneeSupervisorID) {
		return "", internal.ErrForbidden
	}

	if t.Status == StatusCompleted && approve {
		return "", internal.ErrAlreadyInState
	}
	if t.Status != StatusPendingApproval {
		return "", internal.ErrInvalidTransition
	}

	if approve {
		return StatusCompleted, nil
	}
	if strings.TrimSpace(in.Comment) == "" {
		return "", internal.ErrCommentRequired
	}
	return StatusInProgress, nil
}

// CanReview reports whether actor is in the approver set of t and holds
// tasks.approve.
func CanReview(t *Task, actor *coreuser.Principal, assigneeSupervisorID *string) bool {
	if t.IsAssignee(actor.ID) {
		return false
	}
	if !actor.Can(string(rbac.PermTasksApprove)) {
		return false
	}
	if t.IsCreator(actor.ID) {
		return true
	}
	return t.AssigneeID != nil && assigneeSupervisorID != nil && *assigneeSupervisorID == actor.ID
}

// CommandFor maps a Kanban drop target onto the command that reaches it from
// the task's stored status.
func CommandFor(from, target Status) (Command, error) {
	if from == target {
		return "", internal.ErrAlreadyInState
	}
	switch target {
	case StatusInProgress:
		if from == StatusPendingApproval {
			return CommandReject, nil
		}
		return CommandStart, nil
	case StatusPendingApproval:
		return CommandSubmit, nil
	case StatusCompleted:
		return CommandApprove, nil
	}
	return "", internal.ErrInvalidTransition
}
