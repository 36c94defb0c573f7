package types

import (
	"time"
)

type BookType string

const (
	BookTypeFile     BookType = "file"
	BookTypeLink     BookType = "link"
	BookTypePurchase BookType = "purchase"
)

func (t BookType) Valid() bool {
	switch t {
	case BookTypeFile, BookTypeLink, BookTypePurchase:
		return true
	}
	return false
}

// Book is a catalog entry. book_type picks which of file_path /
// external_link / purchase_link is authoritative; the validation layer keeps
// the other two empty.
type Book struct {
	ID          int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string  `gorm:"not null" json:"title"`
	Author      string  `gorm:"not null" json:"author"`
	Description *string `gorm:"column:description" json:"description"`

	CategoryID int64     `gorm:"not null;index" json:"category_id"`
	Category   *Category `gorm:"constraint:OnDelete:RESTRICT;foreignKey:CategoryID;references:ID" json:"category,omitempty"`

	BookType BookType `gorm:"column:book_type;not null;default:'file'" json:"book_type"`

	FilePath    *string `gorm:"column:file_path" json:"file_path"`
	FileContent []byte  `gorm:"column:file_content;type:bytea" json:"-"`
	FileSize    *int64  `gorm:"column:file_size" json:"file_size"`
	FileType    *string `gorm:"column:file_type" json:"file_type"`

	ExternalLink *string `gorm:"column:external_link" json:"external_link"`

	PurchaseLink *string  `gorm:"column:purchase_link" json:"purchase_link"`
	Price        *float64 `gorm:"column:price;type:numeric(10,2)" json:"price"`
	Currency     string   `gorm:"column:currency;not null;default:'USD'" json:"currency"`

	CoverImagePath   *string `gorm:"column:cover_image_path" json:"cover_image_path"`
	ThumbnailContent []byte  `gorm:"column:thumbnail_content;type:bytea" json:"-"`
	ThumbnailMime    *string `gorm:"column:thumbnail_mime" json:"-"`

	ISBN          *string `gorm:"column:isbn" json:"isbn"`
	PublishedYear *int    `gorm:"column:published_year" json:"published_year"`
	PageCount     *int    `gorm:"column:page_count" json:"page_count"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Book) TableName() string { return "books" }

// HasInlineContent reports whether the row itself carries the book bytes.
func (b *Book) HasInlineContent() bool {
	return len(b.FileContent) > 0
}

// IsPDF reports whether the stored MIME marks the content as PDF.
func (b *Book) IsPDF() bool {
	return b.FileType != nil && *b.FileType == "application/pdf"
}
