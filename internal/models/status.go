package models

import "fmt"

// PostStatus is the lifecycle state of a post. Exactly one holds at any time.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusScheduled PostStatus = "scheduled"
	StatusPublished PostStatus = "published"
	StatusArchived  PostStatus = "archived"
)

// String returns the string representation of the status.
func (s PostStatus) String() string { return string(s) }

// IsValid reports whether the status is one of the defined lifecycle states.
func (s PostStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusPublished, StatusArchived:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving to the target status is legal.
func (s PostStatus) CanTransitionTo(target PostStatus) bool {
	for _, valid := range validTransitions()[s] {
		if valid == target {
			return true
		}
	}
	return false
}

// validTransitions defines the post status state machine.
func validTransitions() map[PostStatus][]PostStatus {
	return map[PostStatus][]PostStatus{
		StatusDraft:     {StatusScheduled, StatusPublished, StatusArchived},
		StatusScheduled: {StatusScheduled, StatusPublished, StatusDraft, StatusArchived},
		StatusPublished: {StatusDraft, StatusArchived},
		StatusArchived:  {StatusDraft},
	}
}

// ParsePostStatus parses a string into a PostStatus.
func ParsePostStatus(s string) (PostStatus, error) {
	status := PostStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid post status: %q", s)
	}
	return status, nil
}
