package cmd

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/frahmantamala/opsboard/internal"
	taskDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/task"
	userDatamodel "github.com/frahmantamala/opsboard/internal/core/datamodel/user"
	"github.com/frahmantamala/opsboard/internal/role"
	rolePostgres "github.com/frahmantamala/opsboard/internal/role/postgres"
	"github.com/frahmantamala/opsboard/internal/task"
	taskPostgres "github.com/frahmantamala/opsboard/internal/task/postgres"
	userPostgres "github.com/frahmantamala/opsboard/internal/user/postgres"
	"github.com/frahmantamala/opsboard/pkg/logger"
)

//go:embed seed.yml
var seedFixture []byte

type seedData struct {
	Password string     `yaml:"password"`
	Users    []seedUser `yaml:"users"`
	Tasks    []seedTask `yaml:"tasks"`
}

type seedUser struct {
	Email         string `yaml:"email"`
	Name          string `yaml:"name"`
	Role          string `yaml:"role"`
	Supervisor    string `yaml:"supervisor"`
	PlanningScore int    `yaml:"planning_score"`
}

type seedTask struct {
	Title              string `yaml:"title"`
	Description        string `yaml:"description"`
	Creator            string `yaml:"creator"`
	Assignee           string `yaml:"assignee"`
	Priority           string `yaml:"priority"`
	Status             string `yaml:"status"`
	DueInDays          int    `yaml:"due_in_days"`
	RequiresAttachment bool   `yaml:"requires_attachment"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with system roles, a small reporting tree and a few tasks for development.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(context.Background())
	},
}

func parseSeed(raw []byte) (*seedData, error) {
	var data seedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse seed fixture: %w", err)
	}
	if data.Password == "" {
		return nil, fmt.Errorf("seed fixture: password is required")
	}
	for _, t := range data.Tasks {
		if _, err := task.ParseStatusField("status", t.Status, internal.ErrCodeValidationFailed); err != nil || task.Status(t.Status) == task.StatusOverdue {
			return nil, fmt.Errorf("seed fixture: task %q has invalid status %q", t.Title, t.Status)
		}
	}
	return &data, nil
}

func runSeed(ctx context.Context) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.L()

	data, err := parseSeed(seedFixture)
	if err != nil {
		return err
	}

	db, gormDB, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer db.Close()

	if clearData {
		if err := clearSeedData(gormDB); err != nil {
			return err
		}
		log.Info("existing data cleared")
	}

	authorizer, err := role.NewAuthorizer(log)
	if err != nil {
		return err
	}
	if err := role.NewService(rolePostgres.NewRoleRepository(gormDB), authorizer, log).EnsureSystemRoles(ctx); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(data.Password), cfg.Security.BCryptCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	users := userPostgres.NewUserRepository(gormDB)
	ids := make(map[string]string, len(data.Users))

	// fixture lists supervisors before their reports
	for _, su := range data.Users {
		existing, err := users.GetByEmail(ctx, su.Email)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", su.Email, err)
		}
		if existing != nil {
			ids[su.Email] = existing.ID
			log.Info("user already exists", "email", su.Email)
			continue
		}

		row := &userDatamodel.User{
			ID:            uuid.New().String(),
			Email:         su.Email,
			Name:          su.Name,
			PasswordHash:  string(hash),
			Role:          su.Role,
			PlanningScore: su.PlanningScore,
			Version:       1,
		}
		if su.Supervisor != "" {
			supID, ok := ids[su.Supervisor]
			if !ok {
				return fmt.Errorf("seed fixture: supervisor %s of %s not seeded yet", su.Supervisor, su.Email)
			}
			row.SupervisorID = &supID
		}
		if err := users.Create(ctx, row); err != nil {
			return fmt.Errorf("create %s: %w", su.Email, err)
		}
		ids[su.Email] = row.ID
		log.Info("seeded user", "email", su.Email, "role", su.Role)
	}

	tasks := taskPostgres.NewTaskRepository(gormDB)
	now := time.Now().UTC()
	for _, st := range data.Tasks {
		row := &taskDatamodel.Task{
			ID:                 uuid.New().String(),
			Title:              st.Title,
			Description:        st.Description,
			DueDate:            now.AddDate(0, 0, st.DueInDays),
			Priority:           st.Priority,
			Status:             st.Status,
			RequiresAttachment: st.RequiresAttachment,
			Version:            1,
		}
		if id, ok := ids[st.Creator]; ok {
			row.CreatorID = &id
		}
		if id, ok := ids[st.Assignee]; ok {
			row.AssigneeID = &id
		}
		if err := tasks.Create(ctx, row); err != nil {
			return fmt.Errorf("create task %q: %w", st.Title, err)
		}
	}
	log.Info("seeded tasks", "count", len(data.Tasks))

	fmt.Printf("Seed complete. Log in with any seeded email and password %q\n", data.Password)
	return nil
}

func clearSeedData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"notifications", "refresh_tokens", "tasks", "users"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
