package models

// Activity actions recorded by the publishing workflow.
const (
	ActivityPublished      = "published"
	ActivityScheduled      = "scheduled"
	ActivityRescheduled    = "rescheduled"
	ActivityUnpublished    = "unpublished"
	ActivityDrafted        = "drafted"
	ActivityPublishFailed  = "publish_failed"
	ActivityScheduleFailed = "schedule_failed"
)

// ActivityModel is one append-only audit entry for a post transition.
// Rows are never mutated or deleted.
type ActivityModel struct {
	Base
	PostID      string                 `json:"post_id"     gorm:"index;not null"`
	Action      string                 `json:"action"      gorm:"index;not null"`
	Description string                 `json:"description"`
	Actor       *string                `json:"actor"       gorm:"index"` // nil = system-initiated
	Metadata    map[string]interface{} `json:"metadata"    gorm:"type:longtext;serializer:json"`
}

func (ActivityModel) TableName() string { return "activities" }
