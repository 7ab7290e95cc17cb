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
	notificationDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/notification"
	taskDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/task"
	userDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/user"
	"github.com/frahmantamala/opsboard/internal/user"
	userPostgres "github.com/frahmantamala/opsboard/internal/user/postgres"
)

func TestUserPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Postgres Suite")
}

func ptr(s string) *string { return &s }

var _ = Describe("User PostgreSQL Repository", func() {
	var (
		ctx  context.Context
		db   *gorm.DB
		repo user.Repository
	)

	seedUser := func(id, role string, supervisor *string) {
		Expect(repo.Create(ctx, &userDatamodel.User{
			ID: id, Name: id, Email: id + "@ops.test", PasswordHash: "x", Role: role, SupervisorID: supervisor, Version: 1,
		})).To(Succeed())
	}

	seedTask := func(id string, assignee, creator *string) {
		Expect(db.Create(&taskDatamodel.Task{
			ID: id, Title: id, AssigneeID: assignee, CreatorID: creator,
			DueDate: time.Now().Add(24 * time.Hour), Priority: "Medium", Status: "To Do", Version: 1,
		}).Error).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(
			&userDatamodel.User{},
			&userDatamodel.RefreshToken{},
			&taskDatamodel.Task{},
			&notificationDatamodel.Notification{},
		)).To(Succeed())

		repo = userPostgres.NewUserRepository(db)
	})

	Describe("GetByEmail", func() {
		It("returns nil when the email is unknown", func() {
			u, err := repo.GetByEmail(ctx, "nobody@ops.test")
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(BeNil())
		})
	})

	Describe("Update", func() {
		It("applies the write and bumps the version when it matches", func() {
			seedUser("a", "Team Member", nil)
			u, err := repo.GetByID(ctx, "a")
			Expect(err).NotTo(HaveOccurred())

			u.PlanningScore = 70
			Expect(repo.Update(ctx, u, 1)).To(Succeed())
			Expect(u.Version).To(Equal(int64(2)))

			stored, err := repo.GetByID(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.PlanningScore).To(Equal(70))
			Expect(stored.Version).To(Equal(int64(2)))
		})

		It("reports a version conflict on a stale write", func() {
			seedUser("a", "Team Member", nil)
			u, _ := repo.GetByID(ctx, "a")
			Expect(repo.Update(ctx, u, 1)).To(Succeed())

			err := repo.Update(ctx, u, 1)
			Expect(err).To(MatchError(internal.ErrVersionConflict))
		})
	})

	Describe("DeleteAndUnassign", func() {
		BeforeEach(func() {
			seedUser("boss", "Manager", nil)
			seedUser("A", "Supervisor", ptr("boss"))
			seedUser("B", "Team Member", ptr("A"))
			seedUser("C", "Team Member", ptr("A"))

			seedTask("t1", ptr("A"), ptr("boss"))
			seedTask("t2", ptr("A"), ptr("boss"))
			seedTask("t3", ptr("A"), ptr("A"))
			seedTask("t4", ptr("B"), ptr("A"))
		})

		It("unassigns every task of the deleted user and leaves no dangling reference", func() {
			n, err := repo.DeleteAndUnassign(ctx, "A", ptr("boss"))
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(3)))

			var tasks []taskDatamodel.Task
			Expect(db.Order("id").Find(&tasks).Error).To(Succeed())
			Expect(tasks).To(HaveLen(4))
			for _, t := range tasks {
				if t.AssigneeID != nil {
					Expect(*t.AssigneeID).NotTo(Equal("A"))
				}
				if t.CreatorID != nil {
					Expect(*t.CreatorID).NotTo(Equal("A"))
				}
			}
			Expect(tasks[0].AssigneeID).To(BeNil())
			Expect(tasks[0].Version).To(Equal(int64(2)))
			Expect(*tasks[3].AssigneeID).To(Equal("B"))
			Expect(tasks[3].CreatorID).To(BeNil())
		})

		It("moves direct reports to the deleted user's supervisor", func() {
			_, err := repo.DeleteAndUnassign(ctx, "A", ptr("boss"))
			Expect(err).NotTo(HaveOccurred())

			for _, id := range []string{"B", "C"} {
				u, err := repo.GetByID(ctx, id)
				Expect(err).NotTo(HaveOccurred())
				Expect(*u.SupervisorID).To(Equal("boss"))
				Expect(u.Version).To(Equal(int64(2)))
			}

			gone, err := repo.GetByID(ctx, "A")
			Expect(err).NotTo(HaveOccurred())
			Expect(gone).To(BeNil())
		})

		It("rolls back when the user does not exist", func() {
			_, err := repo.DeleteAndUnassign(ctx, "ghost", nil)
			Expect(err).To(MatchError(internal.ErrUserNotFound))
		})
	})
})
