package postgres_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/opsboard/internal"
	taskDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/task"
	"github.com/frahmantamala/opsboard/internal/task"
	taskPostgres "github.com/frahmantamala/opsboard/internal/task/postgres"
)

func TestTaskPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Task Postgres Suite")
}

func ptr(s string) *string { return &s }

var _ = Describe("Task PostgreSQL Repository", func() {
	var (
		ctx  context.Context
		repo task.RepositoryAPI
		base time.Time
	)

	seed := func(id string, assignee, creator *string, status task.Status, due time.Time) {
		Expect(repo.Create(ctx, &taskDatamodel.Task{
			ID: id, Title: id, AssigneeID: assignee, CreatorID: creator,
			DueDate: due, Priority: "Low", Status: string(status), Version: 1,
		})).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		base = time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&taskDatamodel.Task{})).To(Succeed())
		repo = taskPostgres.NewTaskRepository(db)

		seed("t1", ptr("A"), ptr("S"), task.StatusToDo, base)
		seed("t2", ptr("B"), ptr("S"), task.StatusCompleted, base.Add(24*time.Hour))
		seed("t3", ptr("C"), ptr("A"), task.StatusInProgress, base.Add(48*time.Hour))
		seed("t4", nil, ptr("M"), task.StatusToDo, base.Add(72*time.Hour))
	})

	ids := func(rows []*taskDatamodel.Task) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.ID
		}
		return out
	}

	It("matches assignees or the creator, ordered by due date", func() {
		rows, err := repo.List(ctx, task.Query{AssigneeIDs: []string{"A"}, CreatorID: "A"})
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(rows)).To(Equal([]string{"t1", "t3"}))
	})

	It("returns everything for All", func() {
		rows, err := repo.List(ctx, task.Query{All: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(rows)).To(Equal([]string{"t1", "t2", "t3", "t4"}))
	})

	It("returns nothing for an empty scope", func() {
		rows, err := repo.List(ctx, task.Query{})
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(BeEmpty())
	})

	It("filters by status and due range", func() {
		rows, err := repo.List(ctx, task.Query{
			All:      true,
			Statuses: []task.Status{task.StatusToDo, task.StatusInProgress},
			DueFrom:  base.Add(time.Hour),
			DueTo:    base.Add(60 * time.Hour),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(rows)).To(Equal([]string{"t3"}))
	})

	It("guards updates with the version column", func() {
		row, err := repo.GetByID(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())

		row.Status = string(task.StatusInProgress)
		Expect(repo.Update(ctx, row, 1)).To(Succeed())
		Expect(row.Version).To(Equal(int64(2)))

		row.Status = string(task.StatusPendingApproval)
		Expect(repo.Update(ctx, row, 1)).To(MatchError(internal.ErrVersionConflict))

		stored, err := repo.GetByID(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Status).To(Equal(string(task.StatusInProgress)))
	})

	It("returns nil for a missing task", func() {
		row, err := repo.GetByID(ctx, "missing")
		Expect(err).NotTo(HaveOccurred())
		Expect(row).To(BeNil())
	})
})
