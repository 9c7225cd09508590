// Package store implements the publishing collaborator contracts on GORM.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quillmark/core/internal/models"
	"gorm.io/gorm"
)

// GormPostStore persists posts in MySQL. Status changes go through
// ConditionalUpdate so concurrent transitions on the same post resolve with
// exactly one winner.
type GormPostStore struct {
	db *gorm.DB
}

func NewGormPostStore(db *gorm.DB) *GormPostStore {
	return &GormPostStore{db: db}
}

// Load fetches a post by id, or (nil, nil) when it does not exist.
func (s *GormPostStore) Load(ctx context.Context, id string) (*models.PostModel, error) {
	var post models.PostModel
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// ConditionalUpdate applies fields only while the stored status still equals
// expected. The WHERE clause on status is the compare-and-swap guard.
func (s *GormPostStore) ConditionalUpdate(ctx context.Context, id string, expected models.PostStatus, fields map[string]interface{}) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.PostModel{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(fields)
	if result.Error != nil {
		return false, fmt.Errorf("conditional update: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// QueryScheduledDue returns scheduled posts due at or before now, oldest due
// first.
func (s *GormPostStore) QueryScheduledDue(ctx context.Context, now time.Time) ([]models.PostModel, error) {
	var posts []models.PostModel
	err := s.db.WithContext(ctx).
		Where("status = ? AND published_at IS NOT NULL AND published_at <= ?", models.StatusScheduled, now).
		Order("published_at ASC").
		Find(&posts).Error
	return posts, err
}

// ExistsPublishedWithSlug reports whether a published post other than
// excludeID holds the slug. Slug uniqueness is enforced only among posts
// currently live.
func (s *GormPostStore) ExistsPublishedWithSlug(ctx context.Context, slug, excludeID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.PostModel{}).
		Where("slug = ? AND status = ? AND id <> ?", slug, models.StatusPublished, excludeID).
		Count(&count).Error
	return count > 0, err
}
