package types

import "time"

type TutorialDifficulty string

const (
	DifficultyBeginner     TutorialDifficulty = "Beginner"
	DifficultyIntermediate TutorialDifficulty = "Intermediate"
	DifficultyAdvanced     TutorialDifficulty = "Advanced"
)

func (d TutorialDifficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

type TutorialContentType string

const (
	TutorialContentVideo TutorialContentType = "Video"
	TutorialContentPDF   TutorialContentType = "PDF"
)

func (t TutorialContentType) Valid() bool {
	switch t {
	case TutorialContentVideo, TutorialContentPDF:
		return true
	}
	return false
}

// Tutorial has no thumbnail pipeline of its own; clients derive artwork
// from the YouTube video id in ContentURL.
type Tutorial struct {
	ID    int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Title string `gorm:"not null" json:"title"`

	CategoryID int64     `gorm:"not null;index" json:"category_id"`
	Category   *Category `gorm:"constraint:OnDelete:RESTRICT;foreignKey:CategoryID;references:ID" json:"category,omitempty"`

	Creator     string              `gorm:"not null" json:"creator"`
	Difficulty  TutorialDifficulty  `gorm:"not null;default:'Beginner'" json:"difficulty"`
	ContentType TutorialContentType `gorm:"column:content_type;not null;default:'Video'" json:"content_type"`
	ContentURL  string              `gorm:"column:content_url;not null" json:"content_url"`
	EmbedURL    *string             `gorm:"column:embed_url" json:"embed_url"`
	FilePath    *string             `gorm:"column:file_path" json:"file_path"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Tutorial) TableName() string { return "tutorials" }
