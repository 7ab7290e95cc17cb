// Package dashboard aggregates task outcomes over the users a caller can see.
package dashboard

import (
	"sort"

	"github.com/frahmantamala/opsboard/internal/task"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
)

// Counts holds task totals per effective status.
type Counts map[task.Status]int

func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

func (c Counts) Add(other Counts) {
	for k, v := range other {
		c[k] += v
	}
}

// CompletionRate is completed over total as a percentage, 0 when empty.
func (c Counts) CompletionRate() float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return float64(c[task.StatusCompleted]) * 100 / float64(total)
}

type Summary struct {
	ToDo            int     `json:"to_do"`
	InProgress      int     `json:"in_progress"`
	PendingApproval int     `json:"pending_approval"`
	Completed       int     `json:"completed"`
	Overdue         int     `json:"overdue"`
	Total           int     `json:"total"`
	CompletionRate  float64 `json:"completion_rate"`
	Users           int     `json:"users"`
}

func NewSummary(c Counts, users int) Summary {
	return Summary{
		ToDo:            c[task.StatusToDo],
		InProgress:      c[task.StatusInProgress],
		PendingApproval: c[task.StatusPendingApproval],
		Completed:       c[task.StatusCompleted],
		Overdue:         c[task.StatusOverdue],
		Total:           c.Total(),
		CompletionRate:  c.CompletionRate(),
		Users:           users,
	}
}

type LeaderboardEntry struct {
	Position       int     `json:"position"`
	UserID         string  `json:"user_id"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	Completed      int     `json:"completed"`
	Overdue        int     `json:"overdue"`
	Total          int     `json:"total"`
	CompletionRate float64 `json:"completion_rate"`
	PlanningScore  int     `json:"planning_score"`
}

// BuildLeaderboard ranks users by completed count, then completion rate,
// then planning score. Remaining ties keep input order.
func BuildLeaderboard(users []coreuser.User, perUser map[string]Counts) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(users))
	for _, u := range users {
		c := perUser[u.ID]
		if c == nil {
			c = Counts{}
		}
		entries = append(entries, LeaderboardEntry{
			UserID:         u.ID,
			Name:           u.Name,
			Role:           u.Role,
			Completed:      c[task.StatusCompleted],
			Overdue:        c[task.StatusOverdue],
			Total:          c.Total(),
			CompletionRate: c.CompletionRate(),
			PlanningScore:  u.PlanningScore,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Completed != b.Completed {
			return a.Completed > b.Completed
		}
		if a.CompletionRate != b.CompletionRate {
			return a.CompletionRate > b.CompletionRate
		}
		return a.PlanningScore > b.PlanningScore
	})
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}
