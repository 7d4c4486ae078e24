package leavebalance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/leave-management/internal/metrics"
	"github.com/robfig/cron/v3"
)

// ActiveUserLister yields the ids of users that should hold balances.
type ActiveUserLister interface {
	ListActiveUserIDs(ctx context.Context) ([]string, error)
}

type RolloverResult struct {
	Year            int
	Users           int
	BalancesCreated int
	Failures        int
}

// Rollover seeds default balances for every active user at the start of a
// leave year. Running it more than once for the same year is harmless.
type Rollover struct {
	balances *Service
	users    ActiveUserLister
	logger   *slog.Logger
	now      func() time.Time
}

func NewRollover(balances *Service, users ActiveUserLister, logger *slog.Logger) *Rollover {
	return &Rollover{
		balances: balances,
		users:    users,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *Rollover) WithClock(now func() time.Time) *Rollover {
	r.now = now
	return r
}

func (r *Rollover) Run(ctx context.Context) (RolloverResult, error) {
	start := time.Now()
	result := RolloverResult{Year: r.now().Year()}

	ids, err := r.users.ListActiveUserIDs(ctx)
	if err != nil {
		metrics.RecordRollover(false, 0, time.Since(start))
		return result, fmt.Errorf("list active users: %w", err)
	}
	result.Users = len(ids)

	var errs []error
	for _, id := range ids {
		created, err := r.balances.EnsureDefaultLeaveBalances(ctx, id, result.Year)
		result.BalancesCreated += created
		if err != nil {
			result.Failures++
			errs = append(errs, fmt.Errorf("user %s: %w", id, err))
		}
	}

	metrics.RecordRollover(len(errs) == 0, result.BalancesCreated, time.Since(start))
	r.logger.Info("leave balance rollover finished",
		"year", result.Year,
		"users", result.Users,
		"balances_created", result.BalancesCreated,
		"failures", result.Failures,
		"duration_ms", time.Since(start).Milliseconds())

	return result, errors.Join(errs...)
}

// Schedule registers Run on a cron spec (standard five fields) and returns
// the unstarted scheduler.
func (r *Rollover) Schedule(spec string, loc *time.Location) (*cron.Cron, error) {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc(spec, func() {
		if _, err := r.Run(context.Background()); err != nil {
			r.logger.Error("scheduled leave balance rollover failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule rollover %q: %w", spec, err)
	}
	return c, nil
}
