package cmd

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/internal/task"
)

func strPtr(s string) *string { return &s }

var _ = Describe("seed fixture", func() {
	It("parses the embedded fixture with supervisors listed first", func() {
		data, err := parseSeed(seedFixture)
		Expect(err).NotTo(HaveOccurred())
		Expect(data.Users).NotTo(BeEmpty())
		Expect(data.Tasks).NotTo(BeEmpty())

		seen := map[string]bool{}
		for _, u := range data.Users {
			if u.Supervisor != "" {
				Expect(seen).To(HaveKey(u.Supervisor), "supervisor of %s", u.Email)
			}
			seen[u.Email] = true
		}
	})

	It("rejects the derived Overdue status", func() {
		_, err := parseSeed([]byte("password: x\ntasks:\n  - title: t\n    status: Overdue\n"))
		Expect(err).To(MatchError(ContainSubstring("invalid status")))
	})

	It("requires a password", func() {
		_, err := parseSeed([]byte("users: []\n"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("reports", func() {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	It("renders only overdue tasks", func() {
		tasks := []*task.Task{
			{Title: "late", AssigneeID: strPtr("u1"), Status: task.StatusInProgress, DueDate: now.AddDate(0, 0, -3)},
			{Title: "done late", AssigneeID: strPtr("u1"), Status: task.StatusCompleted, DueDate: now.AddDate(0, 0, -3)},
			{Title: "future", Status: task.StatusToDo, DueDate: now.AddDate(0, 0, 2)},
			{Title: "orphan", Status: task.StatusToDo, DueDate: now.AddDate(0, 0, -1)},
		}

		var buf bytes.Buffer
		renderOverdue(&buf, tasks, map[string]string{"u1": "Dewi"}, now)

		out := buf.String()
		Expect(out).To(ContainSubstring("late"))
		Expect(out).To(ContainSubstring("Dewi"))
		Expect(out).To(ContainSubstring("unassigned"))
		Expect(out).NotTo(ContainSubstring("done late"))
		Expect(out).NotTo(ContainSubstring("future"))
	})

	It("resolves supervisor names inside the listed set", func() {
		users := []coreuser.User{
			{ID: "s", Name: "Citra", Email: "c@x", Role: "Supervisor"},
			{ID: "d", Name: "Dewi", Email: "d@x", Role: "Team Member", SupervisorID: strPtr("s")},
		}

		var buf bytes.Buffer
		renderUsers(&buf, users)

		Expect(buf.String()).To(ContainSubstring("Citra"))
		Expect(buf.String()).To(ContainSubstring("d@x"))
	})
})
