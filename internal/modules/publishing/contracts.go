package publishing

import (
	"context"
	"time"

	"github.com/quillmark/core/internal/models"
)

// PostStore is the persistence collaborator. The workflow never creates or
// deletes posts; it only drives status and published_at through conditional
// updates.
type PostStore interface {
	// Load returns the post or (nil, nil) when no post exists for the id.
	Load(ctx context.Context, id string) (*models.PostModel, error)

	// ConditionalUpdate applies fields only if the stored status still equals
	// expected. Returns false when the precondition failed.
	ConditionalUpdate(ctx context.Context, id string, expected models.PostStatus, fields map[string]interface{}) (bool, error)

	// QueryScheduledDue returns posts with status scheduled and a published_at
	// at or before now, oldest due first.
	QueryScheduledDue(ctx context.Context, now time.Time) ([]models.PostModel, error)

	// ExistsPublishedWithSlug reports whether another currently published post
	// holds the slug, excluding the given post id.
	ExistsPublishedWithSlug(ctx context.Context, slug, excludeID string) (bool, error)
}

// ActivityLog records every attempted or committed transition. Append-only.
type ActivityLog interface {
	Append(ctx context.Context, postID, action, description string, actor *string, metadata map[string]interface{}) error
	ListForPost(ctx context.Context, postID string) ([]models.ActivityModel, error)
}

// EventBus publishes lifecycle events to zero or more subscribers,
// fire-and-forget. Delivery and ordering to subscribers is the bus's concern.
type EventBus interface {
	Publish(event LifecycleEvent)
}

// SchedulerGateway holds at most one live pending entry per post and invokes
// the deferred worker at or after the due instant. A cancelled entry never
// fires; rescheduling replaces the due instant in place.
type SchedulerGateway interface {
	Arm(postID string, dueAt time.Time)
	Reschedule(postID string, newDueAt time.Time)
	Cancel(postID string)
}
