package types

import "time"

type ActivityAction string

const (
	ActivityDownload ActivityAction = "download"
	ActivityView     ActivityAction = "view"
)

// ActivityLog is append-only; rows are only ever counted, never updated.
type ActivityLog struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      *int64         `gorm:"index" json:"user_id"`
	ContentType ContentType    `gorm:"column:content_type;not null;index:idx_activity_content" json:"content_type"`
	ContentID   int64          `gorm:"column:content_id;not null;index:idx_activity_content" json:"content_id"`
	Action      ActivityAction `gorm:"not null" json:"action"`
	IPAddress   string         `gorm:"column:ip_address" json:"ip_address"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_logs" }
