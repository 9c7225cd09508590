package publishing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quillmark/core/internal/models"
	"github.com/quillmark/core/internal/pkg/clock"
)

// Validator runs the structural legality checks for requested transitions.
// It holds no state beyond its collaborators and performs no mutations.
type Validator struct {
	store PostStore
	clk   clock.Clock
}

// NewValidator creates a validator over the given store.
func NewValidator(store PostStore, clk clock.Clock) *Validator {
	return &Validator{store: store, clk: clk}
}

// CheckPublishable verifies a post may transition into published: title, body
// and slug must be non-empty, and no other currently published post may hold
// the same slug. Returns a *ValidationError on rejection; any other error is
// a storage failure.
func (v *Validator) CheckPublishable(ctx context.Context, post *models.PostModel) error {
	if strings.TrimSpace(post.Title) == "" {
		return &ValidationError{Reason: "title is required"}
	}
	if strings.TrimSpace(post.Text) == "" {
		return &ValidationError{Reason: "body is required"}
	}
	if strings.TrimSpace(post.Slug) == "" {
		return &ValidationError{Reason: "slug is required"}
	}

	taken, err := v.store.ExistsPublishedWithSlug(ctx, post.Slug, post.ID)
	if err != nil {
		return fmt.Errorf("slug uniqueness check: %w", err)
	}
	if taken {
		return &ValidationError{Reason: fmt.Sprintf("slug %q is already used by a published post", post.Slug)}
	}
	return nil
}

// CheckScheduleInstant verifies the target instant is strictly in the future.
func (v *Validator) CheckScheduleInstant(at time.Time) error {
	if !at.After(v.clk.Now()) {
		return &InvalidTransitionError{Reason: "cannot schedule in the past"}
	}
	return nil
}
