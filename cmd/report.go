package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/internal/task"
	taskPostgres "github.com/frahmantamala/opsboard/internal/task/postgres"
	"github.com/frahmantamala/opsboard/internal/user"
	userPostgres "github.com/frahmantamala/opsboard/internal/user/postgres"
	"github.com/frahmantamala/opsboard/internal/visibility"
)

var (
	reportEmail string
	reportView  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print operational reports as tables",
}

var reportVisibleCmd = &cobra.Command{
	Use:   "visible",
	Short: "List the users a given user can see",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVisibleReport(context.Background(), os.Stdout)
	},
}

var reportOverdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List every overdue task",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOverdueReport(context.Background(), os.Stdout)
	},
}

func init() {
	reportVisibleCmd.Flags().StringVar(&reportEmail, "email", "", "email of the user to resolve visibility for")
	reportVisibleCmd.Flags().StringVar(&reportView, "view", string(visibility.ViewVisible), "visible, manageable or ranking")
	_ = reportVisibleCmd.MarkFlagRequired("email")

	reportCmd.AddCommand(reportVisibleCmd)
	reportCmd.AddCommand(reportOverdueCmd)
}

func runVisibleReport(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	view, err := visibility.ParseView(reportView)
	if err != nil {
		return err
	}

	db, gormDB, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := userPostgres.NewUserRepository(gormDB).ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	all := make([]coreuser.User, 0, len(rows))
	var current *coreuser.User
	for _, row := range rows {
		u := user.FromDataModel(row).ToCore()
		all = append(all, u)
		if u.Email == reportEmail {
			found := u
			current = &found
		}
	}
	if current == nil {
		return fmt.Errorf("no user with email %s", reportEmail)
	}

	resolver := visibility.NewResolver(visibility.Mode(cfg.Visibility.Mode), cfg.Visibility.MaxDepth)
	renderUsers(out, resolver.Resolve(view, *current, all))
	return nil
}

func renderUsers(out io.Writer, users []coreuser.User) {
	byID := make(map[string]string, len(users))
	for _, u := range users {
		byID[u.ID] = u.Name
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"Name", "Email", "Role", "Supervisor", "Planning Score"})
	for _, u := range users {
		supervisor := "-"
		if u.SupervisorID != nil {
			supervisor = *u.SupervisorID
			if name, ok := byID[supervisor]; ok {
				supervisor = name
			}
		}
		tw.AppendRow(table.Row{u.Name, u.Email, u.Role, supervisor, u.PlanningScore})
	}
	tw.AppendFooter(table.Row{"", "", "", "Total", len(users)})
	tw.Render()
}

func runOverdueReport(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	db, gormDB, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := taskPostgres.NewTaskRepository(gormDB).List(ctx, task.Query{All: true})
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	users, err := userPostgres.NewUserRepository(gormDB).ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	tasks := make([]*task.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, task.FromDataModel(row))
	}
	renderOverdue(out, tasks, names, time.Now())
	return nil
}

func renderOverdue(out io.Writer, tasks []*task.Task, names map[string]string, now time.Time) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"Title", "Assignee", "Priority", "Stored Status", "Due", "Days Late"})

	count := 0
	for _, t := range tasks {
		if t.EffectiveStatus(now) != task.StatusOverdue {
			continue
		}
		assignee := "unassigned"
		if t.AssigneeID != nil {
			assignee = names[*t.AssigneeID]
		}
		late := int(now.Sub(t.DueDate).Hours() / 24)
		tw.AppendRow(table.Row{t.Title, assignee, t.Priority, t.Status, t.DueDate.Format("2006-01-02"), late})
		count++
	}
	tw.AppendFooter(table.Row{"", "", "", "", "Total", count})
	tw.Render()
}
