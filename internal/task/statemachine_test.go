package task_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/opsboard/internal"
	"github.com/frahmantamala/opsboard/internal/core/rbac"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/internal/task"
)

func principal(id, role string) *coreuser.Principal {
	spec, _ := rbac.SystemRole(role)
	return &coreuser.Principal{
		User:        coreuser.User{ID: id, Role: role},
		Rank:        spec.Rank,
		Permissions: rbac.Strings(spec.Permissions),
	}
}

func ptr(s string) *string { return &s }

var _ = Describe("EffectiveStatus", func() {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	DescribeTable("derives overdue from the due date",
		func(stored task.Status, due time.Time, expected task.Status) {
			Expect(task.EffectiveStatus(stored, due, now)).To(Equal(expected))
		},
		Entry("to do past due", task.StatusToDo, past, task.StatusOverdue),
		Entry("in progress past due", task.StatusInProgress, past, task.StatusOverdue),
		Entry("pending past due", task.StatusPendingApproval, past, task.StatusOverdue),
		Entry("completed past due stays completed", task.StatusCompleted, past, task.StatusCompleted),
		Entry("to do not yet due", task.StatusToDo, future, task.StatusToDo),
		Entry("due exactly now is not overdue", task.StatusInProgress, now, task.StatusInProgress),
	)
})

var _ = Describe("Decide", func() {
	var t *task.Task

	BeforeEach(func() {
		t = &task.Task{
			ID:         "1",
			AssigneeID: ptr("A"),
			CreatorID:  ptr("B"),
			Status:     task.StatusPendingApproval,
			Version:    3,
		}
	})

	Context("approve", func() {
		It("forbids the assignee from approving their own task", func() {
			_, err := task.Decide(task.CommandApprove, t, task.Transition{Actor: principal("A", rbac.RoleSupervisor)})
			Expect(err).To(MatchError(internal.ErrSelfApprovalForbidden))
		})

		It("reports self approval before the already-completed check", func() {
			t.Status = task.StatusCompleted
			_, err := task.Decide(task.CommandApprove, t, task.Transition{Actor: principal("A", rbac.RoleAdmin)})
			Expect(err).To(MatchError(internal.ErrSelfApprovalForbidden))
		})

		It("lets the creator approve", func() {
			to, err := task.Decide(task.CommandApprove, t, task.Transition{Actor: principal("B", rbac.RoleSupervisor)})
			Expect(err).NotTo(HaveOccurred())
			Expect(to).To(Equal(task.StatusCompleted))
		})

		It("lets the assignee's direct supervisor approve", func() {
			to, err := task.Decide(task.CommandApprove, t, task.Transition{
				Actor:                principal("S", rbac.RoleSupervisor),
				AssigneeSupervisorID: ptr("S"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(to).To(Equal(task.StatusCompleted))
		})

		It("forbids anyone outside the approver set, even admins", func() {
			_, err := task.Decide(task.CommandApprove, t, task.Transition{
				Actor:                principal("X", rbac.RoleAdmin),
				AssigneeSupervisorID: ptr("S"),
			})
			Expect(err).To(MatchError(internal.ErrForbidden))
		})

		It("forbids an approver whose role lacks tasks.approve", func() {
			_, err := task.Decide(task.CommandApprove, t, task.Transition{Actor: principal("B", rbac.RoleTeamMember)})
			Expect(err).To(MatchError(internal.ErrForbidden))
		})

		It("answers already-in-state for a completed task", func() {
			t.Status = task.StatusCompleted
			_, err := task.Decide(task.CommandApprove, t, task.Transition{Actor: principal("B", rbac.RoleSupervisor)})
			Expect(err).To(MatchError(internal.ErrAlreadyInState))
		})

		It("rejects approving a task that was never submitted", func() {
			t.Status = task.StatusInProgress
			_, err := task.Decide(task.CommandApprove, t, task.Transition{Actor: principal("B", rbac.RoleSupervisor)})
			Expect(err).To(MatchError(internal.ErrInvalidTransition))
		})

		It("reports a stale version last", func() {
			stale := int64(2)
			_, err := task.Decide(task.CommandApprove, t, task.Transition{Actor: principal("B", rbac.RoleSupervisor), Version: &stale})
			Expect(err).To(MatchError(internal.ErrVersionConflict))
		})
	})

	Context("reject", func() {
		It("requires a comment", func() {
			_, err := task.Decide(task.CommandReject, t, task.Transition{Actor: principal("B", rbac.RoleSupervisor), Comment: "  "})
			Expect(err).To(MatchError(internal.ErrCommentRequired))
		})

		It("returns the task to in progress", func() {
			to, err := task.Decide(task.CommandReject, t, task.Transition{Actor: principal("B", rbac.RoleSupervisor), Comment: "redo the photos"})
			Expect(err).NotTo(HaveOccurred())
			Expect(to).To(Equal(task.StatusInProgress))
		})

		It("treats rejecting a completed task as an invalid transition", func() {
			t.Status = task.StatusCompleted
			_, err := task.Decide(task.CommandReject, t, task.Transition{Actor: principal("B", rbac.RoleSupervisor), Comment: "no"})
			Expect(err).To(MatchError(internal.ErrInvalidTransition))
		})

		It("forbids self rejection", func() {
			_, err := task.Decide(task.CommandReject, t, task.Transition{Actor: principal("A", rbac.RoleSupervisor), Comment: "no"})
			Expect(err).To(MatchError(internal.ErrSelfApprovalForbidden))
		})
	})

	Context("start and submit", func() {
		BeforeEach(func() {
			t.Status = task.StatusToDo
		})

		It("lets only the assignee start", func() {
			_, err := task.Decide(task.CommandStart, t, task.Transition{Actor: principal("B", rbac.RoleManager)})
			Expect(err).To(MatchError(internal.ErrForbidden))

			to, err := task.Decide(task.CommandStart, t, task.Transition{Actor: principal("A", rbac.RoleTeamMember)})
			Expect(err).NotTo(HaveOccurred())
			Expect(to).To(Equal(task.StatusInProgress))
		})

		It("answers already-in-state when starting a started task", func() {
			t.Status = task.StatusInProgress
			_, err := task.Decide(task.CommandStart, t, task.Transition{Actor: principal("A", rbac.RoleTeamMember)})
			Expect(err).To(MatchError(internal.ErrAlreadyInState))
		})

		It("does not allow submitting straight from to do", func() {
			_, err := task.Decide(task.CommandSubmit, t, task.Transition{Actor: principal("A", rbac.RoleTeamMember)})
			Expect(err).To(MatchError(internal.ErrInvalidTransition))
		})

		It("requires an attachment when the task asks for one", func() {
			t.Status = task.StatusInProgress
			t.RequiresAttachment = true

			_, err := task.Decide(task.CommandSubmit, t, task.Transition{Actor: principal("A", rbac.RoleTeamMember)})
			Expect(err).To(MatchError(internal.ErrAttachmentMissing))

			to, err := task.Decide(task.CommandSubmit, t, task.Transition{Actor: principal("A", rbac.RoleTeamMember), AttachmentURL: "https://files.example.com/a.jpg"})
			Expect(err).NotTo(HaveOccurred())
			Expect(to).To(Equal(task.StatusPendingApproval))
		})

		It("accepts an attachment already on the task", func() {
			t.Status = task.StatusInProgress
			t.RequiresAttachment = true
			t.AttachmentURL = ptr("https://files.example.com/a.jpg")

			_, err := task.Decide(task.CommandSubmit, t, task.Transition{Actor: principal("A", rbac.RoleTeamMember)})
			Expect(err).NotTo(HaveOccurred())
		})

		It("forbids starting an unassigned task", func() {
			t.AssigneeID = nil
			_, err := task.Decide(task.CommandStart, t, task.Transition{Actor: principal("A", rbac.RoleTeamMember)})
			Expect(err).To(MatchError(internal.ErrForbidden))
		})
	})
})

var _ = Describe("CommandFor", func() {
	DescribeTable("maps a drop target to a command",
		func(from, to task.Status, expected task.Command) {
			cmd, err := task.CommandFor(from, to)
			Expect(err).NotTo(HaveOccurred())
			Expect(cmd).To(Equal(expected))
		},
		Entry("start", task.StatusToDo, task.StatusInProgress, task.CommandStart),
		Entry("submit", task.StatusInProgress, task.StatusPendingApproval, task.CommandSubmit),
		Entry("approve", task.StatusPendingApproval, task.StatusCompleted, task.CommandApprove),
		Entry("reject", task.StatusPendingApproval, task.StatusInProgress, task.CommandReject),
	)

	It("refuses derived and backwards targets", func() {
		_, err := task.CommandFor(task.StatusInProgress, task.StatusOverdue)
		Expect(err).To(MatchError(internal.ErrInvalidTransition))
		_, err = task.CommandFor(task.StatusInProgress, task.StatusToDo)
		Expect(err).To(MatchError(internal.ErrInvalidTransition))
	})

	It("reports the same column as already in state", func() {
		_, err := task.CommandFor(task.StatusCompleted, task.StatusCompleted)
		Expect(err).To(MatchError(internal.ErrAlreadyInState))
	})
})
