// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// seedJobTimeout bounds one scheduled seeding run.
const seedJobTimeout = 5 * time.Minute

// StartDailyTaskScheduler runs the seeder on cronExpr (five-field cron).
// The caller owns the returned scheduler and must Shutdown it.
func StartDailyTaskScheduler(seeder *DailyTaskSeeder, cronExpr string) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), seedJobTimeout)
			defer cancel()

			if _, err := seeder.SeedAll(ctx); err != nil {
				log.Printf("[Scheduler] Daily task seeding failed: %v", err)
			}
		}),
		gocron.WithName("daily-task-seed"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule daily task seeding: %w", err)
	}

	sched.Start()
	log.Printf("✅ [Scheduler] Daily task seeding scheduled (%s)", cronExpr)
	return sched, nil
}
