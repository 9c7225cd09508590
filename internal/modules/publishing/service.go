package publishing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quillmark/core/internal/models"
	"github.com/quillmark/core/internal/pkg/clock"
	"go.uber.org/zap"
)

// Service orchestrates the publishing workflow: it validates transitions,
// mutates post state through conditional updates, records every transition in
// the activity log, emits lifecycle events, and arms the scheduler gateway
// for deferred publication.
type Service struct {
	store     PostStore
	activity  ActivityLog
	bus       EventBus
	gateway   SchedulerGateway
	validator *Validator
	clk       clock.Clock
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clk clock.Clock) Option {
	return func(s *Service) { s.clk = clk }
}

// NewService creates the workflow service. The scheduler gateway is wired
// afterwards via SetGateway because the gateway's callback is the deferred
// worker, which itself wraps this service.
func NewService(store PostStore, activity ActivityLog, bus EventBus, opts ...Option) *Service {
	s := &Service{
		store:    store,
		activity: activity,
		bus:      bus,
		clk:      clock.Real{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = NewValidator(store, s.clk)
	return s
}

// SetGateway wires up the scheduler gateway.
func (s *Service) SetGateway(gw SchedulerGateway) { s.gateway = gw }

// SaveDraft moves a post back to draft and clears its publication timestamp.
// No validation beyond persistence; a pending scheduler entry is cancelled.
func (s *Service) SaveDraft(ctx context.Context, postID string, actor *string) error {
	post, err := s.store.Load(ctx, postID)
	if err != nil {
		return fmt.Errorf("load post: %w", err)
	}
	if post == nil {
		return ErrPostNotFound
	}

	ok, err := s.store.ConditionalUpdate(ctx, post.ID, post.Status, map[string]interface{}{
		"status":       models.StatusDraft,
		"published_at": nil,
	})
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	if !ok {
		return &ConcurrencyConflictError{PostID: post.ID, Expected: post.Status}
	}

	if post.Status == models.StatusScheduled && s.gateway != nil {
		s.gateway.Cancel(post.ID)
	}

	s.appendActivity(ctx, post.ID, models.ActivityDrafted, "Post saved as draft", actor, map[string]interface{}{
		"slug": post.Slug,
	})
	return nil
}

// PublishNow validates and immediately publishes a draft post. Returns false
// without mutating state when validation rejects the transition.
func (s *Service) PublishNow(ctx context.Context, postID string, actor *string) (bool, error) {
	post, err := s.store.Load(ctx, postID)
	if err != nil {
		return false, fmt.Errorf("load post: %w", err)
	}
	if post == nil {
		return false, ErrPostNotFound
	}

	ok, reason, err := s.publish(ctx, post, actor)
	if err != nil {
		return false, err
	}
	if !ok {
		s.logger.Info("publish rejected",
			zap.String("post_id", post.ID),
			zap.String("reason", reason))
	}
	return ok, nil
}

// publish runs the interactive publish path for a loaded snapshot. Returns
// (false, reason, nil) on validation rejection or a lost conditional update.
func (s *Service) publish(ctx context.Context, post *models.PostModel, actor *string) (bool, string, error) {
	if !post.Status.CanTransitionTo(models.StatusPublished) || post.Status != models.StatusDraft {
		return false, fmt.Sprintf("cannot publish a %s post", post.Status), nil
	}

	if err := s.validator.CheckPublishable(ctx, post); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return false, ve.Reason, nil
		}
		return false, "", err
	}

	now := s.clk.Now()
	ok, err := s.store.ConditionalUpdate(ctx, post.ID, post.Status, map[string]interface{}{
		"status":       models.StatusPublished,
		"published_at": now,
	})
	if err != nil {
		return false, "", fmt.Errorf("commit publish: %w", err)
	}
	if !ok {
		return false, "post was modified concurrently", nil
	}

	post.Status = models.StatusPublished
	post.PublishedAt = &now

	s.appendActivity(ctx, post.ID, models.ActivityPublished, "Post published", actor, map[string]interface{}{
		"slug":         post.Slug,
		"published_at": now,
	})
	s.bus.Publish(&PostPublished{Post: *post, PublishedAt: now, PublishedBy: actor})
	return true, "", nil
}

// SchedulePost schedules a post for deferred publication at the given future
// instant. Scheduling in the past is a hard rejection.
func (s *Service) SchedulePost(ctx context.Context, postID string, at time.Time, actor *string) error {
	post, err := s.store.Load(ctx, postID)
	if err != nil {
		return fmt.Errorf("load post: %w", err)
	}
	if post == nil {
		return ErrPostNotFound
	}

	if err := s.validator.CheckScheduleInstant(at); err != nil {
		return err
	}
	if !post.Status.CanTransitionTo(models.StatusScheduled) {
		return &InvalidTransitionError{Reason: fmt.Sprintf("cannot schedule a %s post", post.Status)}
	}

	ok, err := s.store.ConditionalUpdate(ctx, post.ID, post.Status, map[string]interface{}{
		"status":       models.StatusScheduled,
		"published_at": at,
	})
	if err != nil {
		return fmt.Errorf("commit schedule: %w", err)
	}
	if !ok {
		return &ConcurrencyConflictError{PostID: post.ID, Expected: post.Status}
	}

	post.Status = models.StatusScheduled
	post.PublishedAt = &at

	s.appendActivity(ctx, post.ID, models.ActivityScheduled, "Post scheduled for publication", actor, map[string]interface{}{
		"slug":          post.Slug,
		"scheduled_for": at,
	})
	s.bus.Publish(&PostScheduled{Post: *post, ScheduledFor: at, ScheduledBy: actor, At: s.clk.Now()})

	if s.gateway != nil {
		s.gateway.Arm(post.ID, at)
	}
	return nil
}

// Unpublish pulls a published post back to draft and cancels any pending
// scheduler entry for it.
func (s *Service) Unpublish(ctx context.Context, postID string, actor *string) error {
	post, err := s.store.Load(ctx, postID)
	if err != nil {
		return fmt.Errorf("load post: %w", err)
	}
	if post == nil {
		return ErrPostNotFound
	}
	if post.Status != models.StatusPublished {
		return &InvalidTransitionError{Reason: fmt.Sprintf("cannot unpublish a %s post", post.Status)}
	}

	ok, err := s.store.ConditionalUpdate(ctx, post.ID, models.StatusPublished, map[string]interface{}{
		"status":       models.StatusDraft,
		"published_at": nil,
	})
	if err != nil {
		return fmt.Errorf("commit unpublish: %w", err)
	}
	if !ok {
		return &ConcurrencyConflictError{PostID: post.ID, Expected: models.StatusPublished}
	}

	now := s.clk.Now()
	post.Status = models.StatusDraft
	post.PublishedAt = nil

	s.appendActivity(ctx, post.ID, models.ActivityUnpublished, "Post unpublished", actor, map[string]interface{}{
		"slug": post.Slug,
	})
	s.bus.Publish(&PostUnpublished{Post: *post, UnpublishedAt: now, UnpublishedBy: actor})

	if s.gateway != nil {
		s.gateway.Cancel(post.ID)
	}
	return nil
}

// ReschedulePost moves the due instant of an already scheduled post. The
// existing scheduler entry is updated in place, never duplicated.
func (s *Service) ReschedulePost(ctx context.Context, postID string, newAt time.Time, actor *string) error {
	post, err := s.store.Load(ctx, postID)
	if err != nil {
		return fmt.Errorf("load post: %w", err)
	}
	if post == nil {
		return ErrPostNotFound
	}
	if post.Status != models.StatusScheduled {
		return &InvalidTransitionError{Reason: fmt.Sprintf("cannot reschedule a %s post", post.Status)}
	}
	if err := s.validator.CheckScheduleInstant(newAt); err != nil {
		return err
	}

	ok, err := s.store.ConditionalUpdate(ctx, post.ID, models.StatusScheduled, map[string]interface{}{
		"published_at": newAt,
	})
	if err != nil {
		return fmt.Errorf("commit reschedule: %w", err)
	}
	if !ok {
		return &ConcurrencyConflictError{PostID: post.ID, Expected: models.StatusScheduled}
	}

	s.appendActivity(ctx, post.ID, models.ActivityRescheduled, "Post rescheduled", actor, map[string]interface{}{
		"slug":          post.Slug,
		"scheduled_for": newAt,
	})

	if s.gateway != nil {
		s.gateway.Reschedule(post.ID, newAt)
	}
	return nil
}

// BulkPublish applies PublishNow to each id independently. One post's
// validation failure does not abort the others; per-post failures are
// recorded in the activity log. Returns true when the batch ran to
// completion.
func (s *Service) BulkPublish(ctx context.Context, postIDs []string, actor *string) (bool, error) {
	for _, id := range postIDs {
		post, err := s.store.Load(ctx, id)
		if err != nil {
			return false, fmt.Errorf("load post %s: %w", id, err)
		}
		if post == nil {
			s.logger.Warn("bulk publish: post not found", zap.String("post_id", id))
			continue
		}

		ok, reason, err := s.publish(ctx, post, actor)
		if err != nil {
			return false, err
		}
		if !ok {
			s.appendActivity(ctx, post.ID, models.ActivityPublishFailed, "Bulk publish rejected: "+reason, actor, map[string]interface{}{
				"slug":   post.Slug,
				"reason": reason,
			})
		}
	}
	return true, nil
}

// BulkSchedule applies SchedulePost to each id independently, recording
// per-post rejections in the activity log.
func (s *Service) BulkSchedule(ctx context.Context, postIDs []string, at time.Time, actor *string) (bool, error) {
	for _, id := range postIDs {
		err := s.SchedulePost(ctx, id, at, actor)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrPostNotFound) {
			s.logger.Warn("bulk schedule: post not found", zap.String("post_id", id))
			continue
		}
		var ite *InvalidTransitionError
		var cce *ConcurrencyConflictError
		if errors.As(err, &ite) || errors.As(err, &cce) {
			s.appendActivity(ctx, id, models.ActivityScheduleFailed, "Bulk schedule rejected: "+err.Error(), actor, map[string]interface{}{
				"reason": err.Error(),
			})
			continue
		}
		return false, err
	}
	return true, nil
}

// ProcessScheduledPosts commits every scheduled post whose due instant has
// elapsed and returns the count actually transitioned. Posts not yet due are
// left untouched.
func (s *Service) ProcessScheduledPosts(ctx context.Context) (int, error) {
	due, err := s.store.QueryScheduledDue(ctx, s.clk.Now())
	if err != nil {
		return 0, fmt.Errorf("query due posts: %w", err)
	}

	count := 0
	for i := range due {
		ok, err := s.CommitDue(ctx, &due[i])
		if err != nil {
			s.logger.Warn("deferred commit failed",
				zap.String("post_id", due[i].ID),
				zap.Error(err))
			continue
		}
		if ok {
			count++
			if s.gateway != nil {
				s.gateway.Cancel(due[i].ID)
			}
		}
	}
	return count, nil
}

// GetPostsReadyForPublishing returns scheduled posts whose due instant has
// elapsed. Read-only.
func (s *Service) GetPostsReadyForPublishing(ctx context.Context) ([]models.PostModel, error) {
	return s.store.QueryScheduledDue(ctx, s.clk.Now())
}

// GetPublishingHistory returns the activity entries for a post, oldest first.
func (s *Service) GetPublishingHistory(ctx context.Context, postID string) ([]models.ActivityModel, error) {
	return s.activity.ListForPost(ctx, postID)
}

// CommitDue runs the deferred commit path for a post believed due: it
// re-checks that the snapshot is still scheduled and actually due, re-runs
// validation, and commits conditionally on the status still being scheduled.
//
// Returns (true, nil) when the post transitioned, (false, nil) on a
// definitive skip (superseded, early fire, validation rejection, lost race),
// and (false, err) only for transient storage failures worth retrying.
func (s *Service) CommitDue(ctx context.Context, post *models.PostModel) (bool, error) {
	if post.Status != models.StatusScheduled {
		// A manual operation superseded the timer.
		s.logger.Info("deferred commit skipped: no longer scheduled",
			zap.String("post_id", post.ID),
			zap.String("status", post.Status.String()))
		return false, nil
	}

	now := s.clk.Now()
	if post.PublishedAt == nil || post.PublishedAt.After(now) {
		// Clock-skew guard: the gateway fired early.
		s.logger.Info("deferred commit skipped: not yet due",
			zap.String("post_id", post.ID))
		return false, nil
	}

	if err := s.validator.CheckPublishable(ctx, post); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			// Validation failures will not self-resolve; never retried.
			s.appendActivity(ctx, post.ID, models.ActivityPublishFailed, "Scheduled publish rejected: "+ve.Reason, nil, map[string]interface{}{
				"slug":   post.Slug,
				"reason": ve.Reason,
			})
			return false, nil
		}
		return false, &TransientStorageError{Op: "validate", Err: err}
	}

	ok, err := s.store.ConditionalUpdate(ctx, post.ID, models.StatusScheduled, map[string]interface{}{
		"status":       models.StatusPublished,
		"published_at": now,
	})
	if err != nil {
		return false, &TransientStorageError{Op: "commit", Err: err}
	}
	if !ok {
		// Exactly one racer observes the precondition holding.
		s.logger.Info("deferred commit lost the race", zap.String("post_id", post.ID))
		return false, nil
	}

	post.Status = models.StatusPublished
	post.PublishedAt = &now

	s.appendActivity(ctx, post.ID, models.ActivityPublished, "Post published by scheduler", nil, map[string]interface{}{
		"slug":         post.Slug,
		"published_at": now,
	})
	s.bus.Publish(&PostPublished{Post: *post, PublishedAt: now})
	return true, nil
}

// appendActivity writes an audit entry. Failures are logged loudly but do not
// unwind an already committed transition.
func (s *Service) appendActivity(ctx context.Context, postID, action, description string, actor *string, metadata map[string]interface{}) {
	if err := s.activity.Append(ctx, postID, action, description, actor, metadata); err != nil {
		s.logger.Error("activity append failed",
			zap.String("post_id", postID),
			zap.String("action", action),
			zap.Error(err))
	}
}
