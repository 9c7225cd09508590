package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostStatusIsValid(t *testing.T) {
	for _, s := range []PostStatus{StatusDraft, StatusScheduled, StatusPublished, StatusArchived} {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, PostStatus("pending").IsValid())
	assert.False(t, PostStatus("").IsValid())
}

func TestPostStatusTransitions(t *testing.T) {
	tests := []struct {
		from    PostStatus
		to      PostStatus
		allowed bool
	}{
		{StatusDraft, StatusScheduled, true},
		{StatusDraft, StatusPublished, true},
		{StatusDraft, StatusArchived, true},
		{StatusScheduled, StatusPublished, true},
		{StatusScheduled, StatusScheduled, true}, // reschedule
		{StatusScheduled, StatusDraft, true},
		{StatusPublished, StatusDraft, true}, // unpublish
		{StatusPublished, StatusArchived, true},
		{StatusArchived, StatusDraft, true},

		{StatusPublished, StatusScheduled, false},
		{StatusPublished, StatusPublished, false},
		{StatusArchived, StatusPublished, false},
		{StatusArchived, StatusScheduled, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestParsePostStatus(t *testing.T) {
	s, err := ParsePostStatus("scheduled")
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, s)

	_, err = ParsePostStatus("live")
	assert.Error(t, err)
}
