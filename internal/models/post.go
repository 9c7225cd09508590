package models

import "time"

// StringSlice is a []string that serializes as JSON in MySQL.
type StringSlice []string

// PostModel is a publishable content item.
//
// PublishedAt is non-nil iff the post is scheduled (the due instant) or
// published (the instant it actually went live). A draft or freshly archived
// post carries no timestamp.
type PostModel struct {
	Base
	Slug        string      `json:"slug"         gorm:"index;not null"`
	Title       string      `json:"title"`
	Text        string      `json:"text"         gorm:"type:longtext"`
	Summary     string      `json:"summary"`
	Status      PostStatus  `json:"status"       gorm:"type:varchar(16);index;default:'draft'"`
	PublishedAt *time.Time  `json:"published_at" gorm:"index"`
	AuthorID    *string     `json:"author_id"    gorm:"index"`
	Tags        StringSlice `json:"tags"         gorm:"type:json;serializer:json"`
}

func (PostModel) TableName() string { return "posts" }

// IsPublished reports whether the post is currently live.
func (p PostModel) IsPublished() bool { return p.Status == StatusPublished }
