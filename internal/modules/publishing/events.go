package publishing

import (
	"time"

	"github.com/quillmark/core/internal/models"
)

// Lifecycle event names, as delivered to webhook endpoints and the Redis
// fanout channel.
const (
	EventPostPublished   = "POST_PUBLISHED"
	EventPostScheduled   = "POST_SCHEDULED"
	EventPostUnpublished = "POST_UNPUBLISHED"
)

// LifecycleEvent is the interface for all publishing lifecycle events.
type LifecycleEvent interface {
	EventName() string
	PostID() string
	OccurredAt() time.Time
}

// PostPublished is emitted after a post transitions to published, whether
// interactively or by the deferred worker.
type PostPublished struct {
	Post        models.PostModel `json:"post"`
	PublishedAt time.Time        `json:"publishedAt"`
	PublishedBy *string          `json:"publishedBy"` // nil = system
}

func (e *PostPublished) EventName() string     { return EventPostPublished }
func (e *PostPublished) PostID() string        { return e.Post.ID }
func (e *PostPublished) OccurredAt() time.Time { return e.PublishedAt }

// PostScheduled is emitted when a post is scheduled for deferred publication.
type PostScheduled struct {
	Post         models.PostModel `json:"post"`
	ScheduledFor time.Time        `json:"scheduledFor"`
	ScheduledBy  *string          `json:"scheduledBy"`
	At           time.Time        `json:"at"`
}

func (e *PostScheduled) EventName() string     { return EventPostScheduled }
func (e *PostScheduled) PostID() string        { return e.Post.ID }
func (e *PostScheduled) OccurredAt() time.Time { return e.At }

// PostUnpublished is emitted when a live post is pulled back to draft.
type PostUnpublished struct {
	Post          models.PostModel `json:"post"`
	UnpublishedAt time.Time        `json:"unpublishedAt"`
	UnpublishedBy *string          `json:"unpublishedBy"`
}

func (e *PostUnpublished) EventName() string     { return EventPostUnpublished }
func (e *PostUnpublished) PostID() string        { return e.Post.ID }
func (e *PostUnpublished) OccurredAt() time.Time { return e.UnpublishedAt }
