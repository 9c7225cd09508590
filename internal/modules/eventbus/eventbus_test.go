package eventbus

import (
	"testing"
	"time"

	"github.com/quillmark/core/internal/models"
	"github.com/quillmark/core/internal/modules/publishing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEvent(postID string) publishing.LifecycleEvent {
	return &publishing.PostPublished{
		Post:        models.PostModel{Base: models.Base{ID: postID}, Slug: "slug-" + postID},
		PublishedAt: time.Now(),
	}
}

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := New(zap.NewNop())

	got1 := make(chan publishing.LifecycleEvent, 1)
	got2 := make(chan publishing.LifecycleEvent, 1)
	bus.Subscribe(func(e publishing.LifecycleEvent) { got1 <- e })
	bus.Subscribe(func(e publishing.LifecycleEvent) { got2 <- e })

	bus.Publish(testEvent("p1"))

	for _, ch := range []chan publishing.LifecycleEvent{got1, got2} {
		select {
		case e := <-ch:
			assert.Equal(t, publishing.EventPostPublished, e.EventName())
			assert.Equal(t, "p1", e.PostID())
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestBusPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	bus := New(zap.NewNop())
	release := make(chan struct{})
	bus.Subscribe(func(publishing.LifecycleEvent) { <-release })

	done := make(chan struct{})
	go func() {
		bus.Publish(testEvent("p1"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a subscriber")
	}
	close(release)
}

func TestBusSurvivesPanickingSubscriber(t *testing.T) {
	bus := New(zap.NewNop())
	bus.Subscribe(func(publishing.LifecycleEvent) { panic("boom") })

	got := make(chan publishing.LifecycleEvent, 1)
	bus.Subscribe(func(e publishing.LifecycleEvent) { got <- e })

	require.NotPanics(t, func() { bus.Publish(testEvent("p1")) })

	select {
	case e := <-got:
		assert.Equal(t, "p1", e.PostID())
	case <-time.After(time.Second):
		t.Fatal("healthy subscriber starved by panicking sibling")
	}
}
