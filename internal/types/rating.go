package types

import "time"

type ContentType string

const (
	ContentTypeBook     ContentType = "book"
	ContentTypeTutorial ContentType = "tutorial"
)

func (c ContentType) Valid() bool {
	return c == ContentTypeBook || c == ContentTypeTutorial
}

// Rating holds at most one row per (user, content) pair; the composite
// unique index backs the upsert that closes the check-then-act race.
type Rating struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64       `gorm:"not null;uniqueIndex:idx_ratings_user_content" json:"user_id"`
	ContentType ContentType `gorm:"column:content_type;not null;uniqueIndex:idx_ratings_user_content" json:"content_type"`
	ContentID   int64       `gorm:"column:content_id;not null;uniqueIndex:idx_ratings_user_content" json:"content_id"`
	Vote        int         `gorm:"not null;check:vote IN (-1, 1)" json:"vote"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Rating) TableName() string { return "ratings" }
