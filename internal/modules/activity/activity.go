// Package activity persists the append-only audit trail of post transitions.
package activity

import (
	"context"
	"fmt"

	"github.com/quillmark/core/internal/models"
	"gorm.io/gorm"
)

// Service writes and reads activity entries. Entries are never mutated or
// deleted.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Append records one transition attempt or outcome for a post. A nil actor
// marks a system-initiated entry.
func (s *Service) Append(ctx context.Context, postID, action, description string, actor *string, metadata map[string]interface{}) error {
	entry := models.ActivityModel{
		PostID:      postID,
		Action:      action,
		Description: description,
		Actor:       actor,
		Metadata:    metadata,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// ListForPost returns a post's entries ordered oldest to newest.
func (s *Service) ListForPost(ctx context.Context, postID string) ([]models.ActivityModel, error) {
	var entries []models.ActivityModel
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
