// Package scheduler owns the pending entries for deferred publication and
// fires the worker callback at or after each entry's due instant.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Callback is invoked when an armed entry becomes due.
type Callback func(ctx context.Context, postID string)

// Entry is one pending deferred publication, keyed uniquely per post.
type Entry struct {
	PostID         string     `json:"post_id"`
	DueAt          time.Time  `json:"due_at"`
	Attempts       int        `json:"attempts"`
	FirstAttemptAt *time.Time `json:"first_attempt_at,omitempty"`
}

type armed struct {
	entry Entry
	timer *time.Timer
	gen   uint64
}

// Gateway arms one live timer per post. Arm supersedes any prior entry for
// the same post, Reschedule replaces the due instant in place, and a
// cancelled entry never fires. Entries are optionally persisted in an
// EntryStore so they survive restarts.
type Gateway struct {
	mu      sync.Mutex
	entries map[string]*armed
	gen     uint64

	cb     Callback
	store  *EntryStore
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithEntryStore persists entries in Redis and restores them on Start.
func WithEntryStore(store *EntryStore) GatewayOption {
	return func(g *Gateway) { g.store = store }
}

// WithGatewayLogger sets the gateway logger.
func WithGatewayLogger(logger *zap.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = logger }
}

// New creates a gateway firing into the given callback.
func New(cb Callback, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		entries: make(map[string]*armed),
		cb:      cb,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start restores persisted entries and binds the gateway lifetime to ctx.
// Entries already past due fire immediately.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.mu.Unlock()

	if g.store == nil {
		return nil
	}
	pending, err := g.store.List(ctx)
	if err != nil {
		return err
	}
	for _, e := range pending {
		g.logger.Info("restoring pending entry",
			zap.String("post_id", e.PostID),
			zap.Time("due_at", e.DueAt))
		g.Arm(e.PostID, e.DueAt)
	}
	return nil
}

// Stop cancels all pending timers. Entries remain in the store for restore.
func (g *Gateway) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
	for _, a := range g.entries {
		a.timer.Stop()
	}
	g.entries = make(map[string]*armed)
}

// Arm schedules the callback for the post no earlier than dueAt, replacing
// any prior entry for the same post.
func (g *Gateway) Arm(postID string, dueAt time.Time) {
	g.mu.Lock()
	if prior, ok := g.entries[postID]; ok {
		prior.timer.Stop()
	}
	g.gen++
	a := &armed{
		entry: Entry{PostID: postID, DueAt: dueAt},
		gen:   g.gen,
	}
	gen := a.gen
	a.timer = time.AfterFunc(time.Until(dueAt), func() {
		g.fire(postID, gen)
	})
	g.entries[postID] = a
	g.mu.Unlock()

	if g.store != nil {
		if err := g.store.Put(context.Background(), Entry{PostID: postID, DueAt: dueAt}); err != nil {
			g.logger.Warn("entry persist failed", zap.String("post_id", postID), zap.Error(err))
		}
	}
}

// Reschedule replaces the due instant of the post's entry. The post still
// holds exactly one live entry afterwards.
func (g *Gateway) Reschedule(postID string, newDueAt time.Time) {
	g.Arm(postID, newDueAt)
}

// Cancel removes the post's pending entry. A cancelled entry never fires.
func (g *Gateway) Cancel(postID string) {
	g.mu.Lock()
	if a, ok := g.entries[postID]; ok {
		a.timer.Stop()
		delete(g.entries, postID)
	}
	g.mu.Unlock()

	if g.store != nil {
		if err := g.store.Remove(context.Background(), postID); err != nil {
			g.logger.Warn("entry remove failed", zap.String("post_id", postID), zap.Error(err))
		}
	}
}

// fire runs when a timer elapses. The generation check ensures a timer that
// raced a concurrent Arm/Cancel for the same post never invokes the callback.
func (g *Gateway) fire(postID string, gen uint64) {
	g.mu.Lock()
	a, ok := g.entries[postID]
	if !ok || a.gen != gen {
		g.mu.Unlock()
		return
	}
	delete(g.entries, postID)
	ctx := g.ctx
	g.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	if g.store != nil {
		now := time.Now()
		a.entry.Attempts++
		a.entry.FirstAttemptAt = &now
		if err := g.store.Put(ctx, a.entry); err != nil {
			g.logger.Warn("entry attempt update failed", zap.String("post_id", postID), zap.Error(err))
		}
	}

	g.cb(ctx, postID)

	if g.store != nil {
		if err := g.store.Remove(context.Background(), postID); err != nil {
			g.logger.Warn("entry remove failed", zap.String("post_id", postID), zap.Error(err))
		}
	}
}

// Pending returns a snapshot of the live entries, for the ops API and tests.
func (g *Gateway) Pending() []Entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Entry, 0, len(g.entries))
	for _, a := range g.entries {
		out = append(out, a.entry)
	}
	return out
}
