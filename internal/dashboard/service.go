package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/opsboard/internal"
	"github.com/frahmantamala/opsboard/internal/core/common/validation"
	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
	"github.com/frahmantamala/opsboard/internal/visibility"
)

type Range struct {
	From time.Time
	To   time.Time
}

// StatsRepository counts tasks per assignee and effective status.
type StatsRepository interface {
	CountByAssignee(ctx context.Context, assigneeIDs []string, r Range, now time.Time) (map[string]Counts, error)
}

type UserDirectory interface {
	All(ctx context.Context) ([]coreuser.User, error)
}

type Service struct {
	stats    StatsRepository
	users    UserDirectory
	resolver *visibility.Resolver
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(stats StatsRepository, users UserDirectory, resolver *visibility.Resolver, logger *slog.Logger) *Service {
	return &Service{
		stats:    stats,
		users:    users,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// Summary totals the tasks of everyone in the caller's visible view.
func (s *Service) Summary(ctx context.Context, actor *coreuser.Principal, r Range) (Summary, error) {
	if err := validation.ValidateDateRange(r.From, r.To); err != nil {
		return Summary{}, err
	}

	all, err := s.users.All(ctx)
	if err != nil {
		return Summary{}, err
	}
	visible := s.resolver.Visible(actor.User, all)

	perUser, err := s.stats.CountByAssignee(ctx, visibility.IDs(visible), r, s.now())
	if err != nil {
		s.logger.Error("failed to count tasks", "error", err, "actor_id", actor.ID)
		return Summary{}, internal.NewInternalError("failed to build summary", err)
	}

	total := Counts{}
	for _, c := range perUser {
		total.Add(c)
	}
	return NewSummary(total, len(visible)), nil
}

// Leaderboard ranks the caller's ranking view; admins and managers never
// appear on it.
func (s *Service) Leaderboard(ctx context.Context, actor *coreuser.Principal, r Range) ([]LeaderboardEntry, error) {
	if err := validation.ValidateDateRange(r.From, r.To); err != nil {
		return nil, err
	}

	all, err := s.users.All(ctx)
	if err != nil {
		return nil, err
	}
	ranked := s.resolver.Ranking(actor.User, all)
	if len(ranked) == 0 {
		return []LeaderboardEntry{}, nil
	}

	perUser, err := s.stats.CountByAssignee(ctx, visibility.IDs(ranked), r, s.now())
	if err != nil {
		s.logger.Error("failed to count tasks", "error", err, "actor_id", actor.ID)
		return nil, internal.NewInternalError("failed to build leaderboard", err)
	}
	return BuildLeaderboard(ranked, perUser), nil
}
