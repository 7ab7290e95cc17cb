package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/opsboard/internal/dashboard"
	"github.com/frahmantamala/opsboard/internal/task"
	"github.com/jmoiron/sqlx"
)

// StatsRepository runs the aggregate queries behind the dashboard on sqlx.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

type statusCountRow struct {
	AssigneeID string `db:"assignee_id"`
	Status     string `db:"effective_status"`
	Total      int    `db:"total"`
}

// CountByAssignee derives Overdue in SQL so the stored status is never
// rewritten by a read.
func (r *StatsRepository) CountByAssignee(ctx context.Context, assigneeIDs []string, rng dashboard.Range, now time.Time) (map[string]dashboard.Counts, error) {
	out := make(map[string]dashboard.Counts, len(assigneeIDs))
	if len(assigneeIDs) == 0 {
		return out, nil
	}

	var b strings.Builder
	b.WriteString(`SELECT assignee_id,
	CASE WHEN status <> ? AND due_date < ? THEN ? ELSE status END AS effective_status,
	COUNT(*) AS total
FROM tasks
WHERE assignee_id IN (?)`)
	args := []interface{}{string(task.StatusCompleted), now, string(task.StatusOverdue), assigneeIDs}

	if !rng.From.IsZero() {
		b.WriteString(" AND due_date >= ?")
		args = append(args, rng.From)
	}
	if !rng.To.IsZero() {
		b.WriteString(" AND due_date <= ?")
		args = append(args, rng.To)
	}
	b.WriteString(" GROUP BY assignee_id, effective_status")

	query, args, err := sqlx.In(b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("build stats query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []statusCountRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count tasks by assignee: %w", err)
	}

	for _, row := range rows {
		c := out[row.AssigneeID]
		if c == nil {
			c = dashboard.Counts{}
			out[row.AssigneeID] = c
		}
		c[task.Status(row.Status)] += row.Total
	}
	return out, nil
}
