package workflow

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/orders_backend/config"
	"github.com/bsm/redislock"
	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	recurrenceLockKey     = "orders-engine:recurrence-tick"
	lastRecurrenceTickKey = "orders-engine:last-recurrence-tick"
)

// StartRecurrenceScheduler runs EmitDueRecurringExpenses on a fixed cadence
// (RECURRENCE_INTERVAL_MINUTES, default 60) in a fixed timezone
// (ENGINE_TIMEZONE, default UTC). The Redis lock is a best-effort guard
// against concurrent ticks from multiple replicas; correctness does not
// depend on it because expense identifiers are deterministic per period.
func StartRecurrenceScheduler(db *gorm.DB, logger *logrus.Logger) (*gocron.Scheduler, error) {
	loc := schedulerLocation(logger)

	intervalMinutes := 60
	if v := os.Getenv("RECURRENCE_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			intervalMinutes = n
		}
	}

	s := gocron.NewScheduler(loc)
	_, err := s.Every(intervalMinutes).Minutes().Do(func() {
		runRecurrenceTick(db, logger, loc)
	})
	if err != nil {
		return nil, err
	}
	s.StartAsync()
	return s, nil
}

func runRecurrenceTick(db *gorm.DB, logger *logrus.Logger, loc *time.Location) {
	ctx := context.Background()

	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, recurrenceLockKey, 5*time.Minute, nil)
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				// Another replica owns this tick.
				return
			}
			config.LogError(logger, "scheduler.go", "runRecurrenceTick", "Obtain lock", nil, err)
			// Redis trouble must not stop the schedule; fall through unlocked.
		} else {
			defer lock.Release(ctx)
		}
	}

	now := time.Now().In(loc)
	if err := EmitDueRecurringExpenses(db.WithContext(ctx), logger, now, loc); err != nil {
		config.LogError(logger, "scheduler.go", "runRecurrenceTick", "EmitDueRecurringExpenses", nil, err)
		return
	}
	_ = config.SetRedisValue(lastRecurrenceTickKey, now.UTC().Format(time.RFC3339), 24*time.Hour)
}

// LastRecurrenceTick reports when a replica last completed a recurrence tick,
// for the health endpoint.
func LastRecurrenceTick() (string, bool) {
	v, ok, err := config.GetRedisValue(lastRecurrenceTickKey)
	if err != nil || !ok {
		return "", false
	}
	return v, true
}

func schedulerLocation(logger *logrus.Logger) *time.Location {
	name := os.Getenv("ENGINE_TIMEZONE")
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		config.LogError(logger, "scheduler.go", "schedulerLocation", "LoadLocation", name, err)
		return time.UTC
	}
	return loc
}
