package publishing

import (
	"context"
	"time"

	"github.com/quillmark/core/internal/models"
	"github.com/quillmark/core/internal/pkg/clock"
	"go.uber.org/zap"
)

// Default retry policy for transient commit failures.
var defaultRetryDelays = []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second}

const defaultRetryWindow = 10 * time.Minute

// Worker is the callback target fired by the scheduler gateway when a
// scheduled entry becomes due. It re-validates against current state before
// committing, and retries transient commit failures with bounded backoff.
// Every other outcome is a definitive, non-retryable skip.
type Worker struct {
	svc         *Service
	clk         clock.Clock
	logger      *zap.Logger
	retryDelays []time.Duration
	retryWindow time.Duration
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the worker logger.
func WithWorkerLogger(logger *zap.Logger) WorkerOption {
	return func(w *Worker) { w.logger = logger }
}

// WithWorkerClock replaces the wall clock, mainly for tests.
func WithWorkerClock(clk clock.Clock) WorkerOption {
	return func(w *Worker) { w.clk = clk }
}

// WithRetryPolicy overrides the backoff delays and the overall retry window.
// Nil delays or a non-positive window keep the defaults.
func WithRetryPolicy(delays []time.Duration, window time.Duration) WorkerOption {
	return func(w *Worker) {
		if delays != nil {
			w.retryDelays = delays
		}
		if window > 0 {
			w.retryWindow = window
		}
	}
}

// NewWorker creates a deferred publish worker over the workflow service.
func NewWorker(svc *Service, opts ...WorkerOption) *Worker {
	w := &Worker{
		svc:         svc,
		clk:         clock.Real{},
		logger:      zap.NewNop(),
		retryDelays: defaultRetryDelays,
		retryWindow: defaultRetryWindow,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run executes the deferred commit for one due entry. It never returns an
// error: there is no caller to report to, so terminal failures end up in the
// activity log and outcomes in the service logger.
func (w *Worker) Run(ctx context.Context, postID string) {
	firstAttempt := w.clk.Now()

	for attempt := 0; ; attempt++ {
		post, err := w.svc.store.Load(ctx, postID)
		if err != nil {
			w.logger.Warn("deferred publish: load failed",
				zap.String("post_id", postID),
				zap.Error(err))
			return
		}
		if post == nil {
			// Deleted between scheduling and firing: success-by-skip.
			w.logger.Info("deferred publish: post no longer exists, dropping orphaned entry",
				zap.String("post_id", postID))
			return
		}

		ok, err := w.svc.CommitDue(ctx, post)
		if err == nil {
			if ok {
				w.logger.Info("deferred publish committed",
					zap.String("post_id", postID),
					zap.String("slug", post.Slug))
			}
			return
		}

		if !IsTransient(err) {
			w.logger.Warn("deferred publish: non-retryable failure",
				zap.String("post_id", postID),
				zap.Error(err))
			return
		}

		if attempt >= len(w.retryDelays) || w.clk.Now().Sub(firstAttempt) > w.retryWindow {
			w.abandon(ctx, post, attempt+1, err)
			return
		}

		delay := w.retryDelays[attempt]
		w.logger.Warn("deferred publish: transient failure, retrying",
			zap.String("post_id", postID),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		w.clk.Sleep(delay)
	}
}

// abandon records the terminal failure after retries are exhausted.
func (w *Worker) abandon(ctx context.Context, post *models.PostModel, attempts int, cause error) {
	w.logger.Error("deferred publish abandoned",
		zap.String("post_id", post.ID),
		zap.Int("attempts", attempts),
		zap.Error(cause))
	w.svc.appendActivity(ctx, post.ID, models.ActivityPublishFailed,
		"Scheduled publish abandoned after retries: "+cause.Error(), nil,
		map[string]interface{}{
			"slug":     post.Slug,
			"attempts": attempts,
			"error":    cause.Error(),
		})
}
