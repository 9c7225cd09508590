package publishing_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quillmark/core/internal/models"
	"github.com/quillmark/core/internal/modules/publishing"
)

// memStore is an in-memory PostStore honoring the conditional-update
// contract. failUpdates injects transient storage failures into the next N
// ConditionalUpdate calls.
type memStore struct {
	mu          sync.Mutex
	posts       map[string]*models.PostModel
	failUpdates int
}

func newMemStore(posts ...*models.PostModel) *memStore {
	s := &memStore{posts: make(map[string]*models.PostModel)}
	for _, p := range posts {
		cp := *p
		s.posts[p.ID] = &cp
	}
	return s
}

func (s *memStore) get(id string) *models.PostModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (s *memStore) Load(ctx context.Context, id string) (*models.PostModel, error) {
	return s.get(id), nil
}

func (s *memStore) ConditionalUpdate(ctx context.Context, id string, expected models.PostStatus, fields map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdates > 0 {
		s.failUpdates--
		return false, errors.New("storage offline")
	}
	p, ok := s.posts[id]
	if !ok || p.Status != expected {
		return false, nil
	}
	for k, v := range fields {
		switch k {
		case "status":
			p.Status = v.(models.PostStatus)
		case "published_at":
			if v == nil {
				p.PublishedAt = nil
			} else {
				t := v.(time.Time)
				p.PublishedAt = &t
			}
		default:
			return false, fmt.Errorf("unexpected field %q", k)
		}
	}
	return true, nil
}

func (s *memStore) QueryScheduledDue(ctx context.Context, now time.Time) ([]models.PostModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []models.PostModel
	for _, p := range s.posts {
		if p.Status == models.StatusScheduled && p.PublishedAt != nil && !p.PublishedAt.After(now) {
			due = append(due, *p)
		}
	}
	return due, nil
}

func (s *memStore) ExistsPublishedWithSlug(ctx context.Context, slug, excludeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.ID != excludeID && p.Slug == slug && p.Status == models.StatusPublished {
			return true, nil
		}
	}
	return false, nil
}

// memActivity is an in-memory append-only ActivityLog.
type memActivity struct {
	mu      sync.Mutex
	entries []models.ActivityModel
}

func (a *memActivity) Append(ctx context.Context, postID, action, description string, actor *string, metadata map[string]interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, models.ActivityModel{
		PostID:      postID,
		Action:      action,
		Description: description,
		Actor:       actor,
		Metadata:    metadata,
	})
	return nil
}

func (a *memActivity) ListForPost(ctx context.Context, postID string) ([]models.ActivityModel, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.ActivityModel
	for _, e := range a.entries {
		if e.PostID == postID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (a *memActivity) actions(postID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, e := range a.entries {
		if e.PostID == postID {
			out = append(out, e.Action)
		}
	}
	return out
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []publishing.LifecycleEvent
}

func (b *recordingBus) Publish(event publishing.LifecycleEvent) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
}

func (b *recordingBus) byName(name string) []publishing.LifecycleEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []publishing.LifecycleEvent
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

// recordingGateway tracks pending entries per post, one live entry at most.
type recordingGateway struct {
	mu        sync.Mutex
	pending   map[string]time.Time
	armCalls  int
	cancelled []string
}

func newRecordingGateway() *recordingGateway {
	return &recordingGateway{pending: make(map[string]time.Time)}
}

func (g *recordingGateway) Arm(postID string, dueAt time.Time) {
	g.mu.Lock()
	g.pending[postID] = dueAt
	g.armCalls++
	g.mu.Unlock()
}

func (g *recordingGateway) Reschedule(postID string, newDueAt time.Time) {
	g.mu.Lock()
	g.pending[postID] = newDueAt
	g.mu.Unlock()
}

func (g *recordingGateway) Cancel(postID string) {
	g.mu.Lock()
	delete(g.pending, postID)
	g.cancelled = append(g.cancelled, postID)
	g.mu.Unlock()
}

func (g *recordingGateway) entryCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

func (g *recordingGateway) dueFor(postID string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	due, ok := g.pending[postID]
	return due, ok
}

func strptr(s string) *string { return &s }

func draftPost(id, slug string) *models.PostModel {
	return &models.PostModel{
		Base:   models.Base{ID: id},
		Slug:   slug,
		Title:  "Title of " + slug,
		Text:   "Body of " + slug,
		Status: models.StatusDraft,
	}
}
