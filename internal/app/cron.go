package app

import (
	"context"
	"fmt"

	"github.com/quillmark/core/internal/config"
	"github.com/quillmark/core/internal/modules/publishing"
	pkgcron "github.com/quillmark/core/internal/pkg/cron"
	"go.uber.org/zap"
)

// registerCronJobs registers the background jobs behind the per-post timers.
func registerCronJobs(sched *pkgcron.Scheduler, svc *publishing.Service, cfg *config.AppConfig, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "process_scheduled_posts",
		Description: "Publish scheduled posts whose due instant has elapsed",
		Interval:    cfg.Publishing.SweepInterval(),
		Fn: func(ctx context.Context) error {
			count, err := svc.ProcessScheduledPosts(ctx)
			if err != nil {
				cronLogger.Warn("scheduled post sweep failed", zap.Error(err))
				return err
			}
			if count > 0 {
				cronLogger.Info(fmt.Sprintf("scheduled post sweep published %d post(s)", count))
			}
			return nil
		},
	})
}
