package publishing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quillmark/core/internal/models"
	"github.com/quillmark/core/internal/modules/publishing"
	"github.com/quillmark/core/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPublishable(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(testEpoch)

	tests := []struct {
		name       string
		mutate     func(p *models.PostModel)
		wantReason string
	}{
		{
			name:   "complete post passes",
			mutate: func(p *models.PostModel) {},
		},
		{
			name:       "missing title",
			mutate:     func(p *models.PostModel) { p.Title = "" },
			wantReason: "title is required",
		},
		{
			name:       "whitespace-only title",
			mutate:     func(p *models.PostModel) { p.Title = "   " },
			wantReason: "title is required",
		},
		{
			name:       "missing body",
			mutate:     func(p *models.PostModel) { p.Text = "" },
			wantReason: "body is required",
		},
		{
			name:       "missing slug",
			mutate:     func(p *models.PostModel) { p.Slug = "" },
			wantReason: "slug is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := draftPost("p1", "valid-slug")
			tt.mutate(post)
			v := publishing.NewValidator(newMemStore(post), clk)

			err := v.CheckPublishable(ctx, post)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}
			var ve *publishing.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantReason, ve.Reason)
		})
	}
}

func TestCheckPublishableSlugUniqueness(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(testEpoch)

	t.Run("slug held by a published post is rejected", func(t *testing.T) {
		live := draftPost("live", "shared")
		live.Status = models.StatusPublished
		candidate := draftPost("p1", "shared")
		v := publishing.NewValidator(newMemStore(live, candidate), clk)

		var ve *publishing.ValidationError
		require.True(t, errors.As(v.CheckPublishable(ctx, candidate), &ve))
		assert.Contains(t, ve.Reason, "shared")
	})

	t.Run("slug shared with a draft is allowed", func(t *testing.T) {
		other := draftPost("other", "shared")
		candidate := draftPost("p1", "shared")
		v := publishing.NewValidator(newMemStore(other, candidate), clk)
		assert.NoError(t, v.CheckPublishable(ctx, candidate))
	})

	t.Run("a post does not conflict with itself", func(t *testing.T) {
		// Re-validation at deferred commit time runs against a snapshot that
		// may already be the only holder of the slug.
		p := draftPost("p1", "mine")
		p.Status = models.StatusPublished
		v := publishing.NewValidator(newMemStore(p), clk)
		assert.NoError(t, v.CheckPublishable(ctx, p))
	})
}

func TestCheckScheduleInstant(t *testing.T) {
	clk := clock.NewFake(testEpoch)
	v := publishing.NewValidator(newMemStore(), clk)

	assert.NoError(t, v.CheckScheduleInstant(testEpoch.Add(time.Second)))

	var ite *publishing.InvalidTransitionError
	require.ErrorAs(t, v.CheckScheduleInstant(testEpoch), &ite)
	assert.Equal(t, "cannot schedule in the past", ite.Reason)
	require.ErrorAs(t, v.CheckScheduleInstant(testEpoch.Add(-time.Hour)), &ite)
}
