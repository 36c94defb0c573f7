package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/platform/apierr"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/platform/rasterize"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/types"
)

const (
	// MaxFileBytes caps raw book payloads.
	MaxFileBytes = 100 << 20
	// MaxEncodedFileBytes caps base64 payloads before decoding; base64
	// inflates by ~4/3, so the ceiling is raised accordingly.
	MaxEncodedFileBytes = 140 << 20
)

// BookInput carries optional fields for create and partial update; only
// non-nil fields are applied.
type BookInput struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Description *string `json:"description"`
	CategoryID  *int64  `json:"category_id"`

	BookType *string `json:"book_type"`

	FilePath          *string `json:"file_path"`
	FileContentBase64 *string `json:"file_content"`
	FileSize          *int64  `json:"file_size"`
	FileType          *string `json:"file_type"`

	ExternalLink *string  `json:"external_link"`
	PurchaseLink *string  `json:"purchase_link"`
	Price        *float64 `json:"price"`
	Currency     *string  `json:"currency"`

	CoverImagePath   *string `json:"cover_image_path"`
	CoverImageBase64 *string `json:"cover_image_base64"`
	CoverImageType   *string `json:"cover_image_type"`

	ISBN          *string `json:"isbn"`
	PublishedYear *int    `json:"published_year"`
	PageCount     *int    `json:"page_count"`
}

// BookView is a book row plus the aggregates the listing UI renders.
type BookView struct {
	*types.Book
	Thumbnail string `json:"thumbnail"`
	Upvotes   int64  `json:"upvotes"`
	Downvotes int64  `json:"downvotes"`
	UserVote  *int   `json:"user_vote,omitempty"`
	Downloads int64  `json:"downloads"`
}

type BookService interface {
	Create(ctx context.Context, input BookInput) (*types.Book, error)
	Get(ctx context.Context, id int64, userEmail string) (*BookView, error)
	List(ctx context.Context, categoryID *int64, userEmail string) ([]*BookView, error)
	Update(ctx context.Context, id int64, input BookInput) (*types.Book, error)
	Delete(ctx context.Context, id int64) error
}

type bookService struct {
	log        *logger.Logger
	books      repos.BookRepo
	categories repos.CategoryRepo
	ratings    repos.RatingRepo
	activity   repos.ActivityRepo
	users      repos.UserRepo
	thumbs     ThumbnailService
	renderer   rasterize.Renderer

	uploadsRoot string
}

func NewBookService(
	log *logger.Logger,
	books repos.BookRepo,
	categories repos.CategoryRepo,
	ratings repos.RatingRepo,
	activity repos.ActivityRepo,
	users repos.UserRepo,
	thumbs ThumbnailService,
	renderer rasterize.Renderer,
	uploadsRoot string,
) BookService {
	return &bookService{
		log:         log.With("service", "BookService"),
		books:       books,
		categories:  categories,
		ratings:     ratings,
		activity:    activity,
		users:       users,
		thumbs:      thumbs,
		renderer:    renderer,
		uploadsRoot: uploadsRoot,
	}
}

func (s *bookService) Create(ctx context.Context, input BookInput) (*types.Book, error) {
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return nil, apierr.Validation("title is required")
	}
	if input.Author == nil || strings.TrimSpace(*input.Author) == "" {
		return nil, apierr.Validation("author is required")
	}
	if input.CategoryID == nil {
		return nil, apierr.Validation("category_id is required")
	}
	bookType := types.BookTypeFile
	if input.BookType != nil {
		bookType = types.BookType(*input.BookType)
	}
	if !bookType.Valid() {
		return nil, apierr.Validation("book_type must be one of file, link, purchase")
	}

	if _, err := s.categories.GetByID(ctx, *input.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.Validation("category %d does not exist", *input.CategoryID)
		}
		return nil, apierr.Database(err)
	}

	fileContent, err := decodeFilePayload(input)
	if err != nil {
		return nil, err
	}
	if err := validateVariant(bookType, input.FilePath, len(fileContent), input.ExternalLink, input.PurchaseLink); err != nil {
		return nil, err
	}
	if err := checkSizeCeilings(bookType, input.FileSize, fileContent); err != nil {
		return nil, err
	}

	book := &types.Book{
		Title:      strings.TrimSpace(*input.Title),
		Author:     strings.TrimSpace(*input.Author),
		CategoryID: *input.CategoryID,
		BookType:   bookType,
		Currency:   "USD",
	}
	book.Description = input.Description
	book.ISBN = input.ISBN
	book.PublishedYear = input.PublishedYear
	book.PageCount = input.PageCount
	if input.Currency != nil && *input.Currency != "" {
		book.Currency = strings.ToUpper(*input.Currency)
	}

	switch bookType {
	case types.BookTypeFile:
		book.FilePath = input.FilePath
		book.FileContent = fileContent
		book.FileSize = input.FileSize
		book.FileType = input.FileType
		if book.FileSize == nil && len(fileContent) > 0 {
			size := int64(len(fileContent))
			book.FileSize = &size
		}
	case types.BookTypeLink:
		book.ExternalLink = input.ExternalLink
	case types.BookTypePurchase:
		book.PurchaseLink = input.PurchaseLink
		book.Price = input.Price
	}

	if input.CoverImagePath != nil {
		book.CoverImagePath = input.CoverImagePath
	}

	created, err := s.books.Create(ctx, nil, book)
	if err != nil {
		return nil, mapDBError(err)
	}

	s.applyCoverSideEffect(ctx, created.ID, input)
	s.backfillPageCount(ctx, created)

	return created, nil
}

func (s *bookService) Get(ctx context.Context, id int64, userEmail string) (*BookView, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("book %d not found", id)
		}
		return nil, apierr.Database(err)
	}
	return s.toView(ctx, book, s.lookupUserID(ctx, userEmail)), nil
}

func (s *bookService) List(ctx context.Context, categoryID *int64, userEmail string) ([]*BookView, error) {
	books, err := s.books.List(ctx, categoryID)
	if err != nil {
		return nil, apierr.Database(err)
	}
	userID := s.lookupUserID(ctx, userEmail)
	views := make([]*BookView, 0, len(books))
	for _, b := range books {
		views = append(views, s.toView(ctx, b, userID))
	}
	return views, nil
}

func (s *bookService) Update(ctx context.Context, id int64, input BookInput) (*types.Book, error) {
	existing, err := s.books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("book %d not found", id)
		}
		return nil, apierr.Database(err)
	}

	bookType := existing.BookType
	if input.BookType != nil {
		bookType = types.BookType(*input.BookType)
		if !bookType.Valid() {
			return nil, apierr.Validation("book_type must be one of file, link, purchase")
		}
	}

	if input.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierr.Validation("category %d does not exist", *input.CategoryID)
			}
			return nil, apierr.Database(err)
		}
	}

	fileContent, err := decodeFilePayload(input)
	if err != nil {
		return nil, err
	}

	// Validate the state the row will be in after the merge.
	mergedPath := existing.FilePath
	if input.FilePath != nil {
		mergedPath = input.FilePath
	}
	mergedLink := existing.ExternalLink
	if input.ExternalLink != nil {
		mergedLink = input.ExternalLink
	}
	mergedPurchase := existing.PurchaseLink
	if input.PurchaseLink != nil {
		mergedPurchase = input.PurchaseLink
	}
	mergedContentLen := len(existing.FileContent)
	if fileContent != nil {
		mergedContentLen = len(fileContent)
	}
	if err := validateVariant(bookType, mergedPath, mergedContentLen, mergedLink, mergedPurchase); err != nil {
		return nil, err
	}
	if err := checkSizeCeilings(bookType, input.FileSize, fileContent); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	setIf := func(col string, v any, present bool) {
		if present {
			updates[col] = v
		}
	}
	setIf("title", deref(input.Title), input.Title != nil)
	setIf("author", deref(input.Author), input.Author != nil)
	setIf("description", input.Description, input.Description != nil)
	setIf("category_id", derefI64(input.CategoryID), input.CategoryID != nil)
	setIf("file_path", input.FilePath, input.FilePath != nil)
	setIf("file_size", input.FileSize, input.FileSize != nil)
	setIf("file_type", input.FileType, input.FileType != nil)
	setIf("external_link", input.ExternalLink, input.ExternalLink != nil)
	setIf("purchase_link", input.PurchaseLink, input.PurchaseLink != nil)
	setIf("price", input.Price, input.Price != nil)
	setIf("isbn", input.ISBN, input.ISBN != nil)
	setIf("published_year", input.PublishedYear, input.PublishedYear != nil)
	setIf("page_count", input.PageCount, input.PageCount != nil)
	setIf("cover_image_path", input.CoverImagePath, input.CoverImagePath != nil)
	if input.Currency != nil && *input.Currency != "" {
		updates["currency"] = strings.ToUpper(*input.Currency)
	}
	if fileContent != nil {
		updates["file_content"] = fileContent
	}

	// A type switch nulls the fields the new variant does not own.
	if input.BookType != nil && bookType != existing.BookType {
		updates["book_type"] = string(bookType)
		switch bookType {
		case types.BookTypeFile:
			updates["external_link"] = nil
			updates["purchase_link"] = nil
		case types.BookTypeLink:
			updates["file_path"] = nil
			updates["file_content"] = nil
			updates["purchase_link"] = nil
		case types.BookTypePurchase:
			updates["file_path"] = nil
			updates["file_content"] = nil
			updates["external_link"] = nil
		}
	}

	if len(updates) > 0 {
		if err := s.books.Updates(ctx, nil, id, updates); err != nil {
			return nil, mapDBError(err)
		}
	}

	s.applyCoverSideEffect(ctx, id, input)

	updated, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, apierr.Database(err)
	}
	s.backfillPageCount(ctx, updated)
	return updated, nil
}

func (s *bookService) Delete(ctx context.Context, id int64) error {
	if err := s.books.Delete(ctx, nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound("book %d not found", id)
		}
		return apierr.Database(err)
	}
	return nil
}

func (s *bookService) toView(ctx context.Context, book *types.Book, userID *int64) *BookView {
	view := &BookView{
		Book:      book,
		Thumbnail: fmt.Sprintf("/books/%d/thumbnail", book.ID),
	}
	if counts, err := s.ratings.CountVotes(ctx, types.ContentTypeBook, book.ID); err == nil {
		view.Upvotes = counts.Upvotes
		view.Downvotes = counts.Downvotes
	}
	if userID != nil {
		if vote, err := s.ratings.GetUserVote(ctx, *userID, types.ContentTypeBook, book.ID); err == nil {
			view.UserVote = vote
		}
	}
	if n, err := s.activity.CountByContent(ctx, types.ContentTypeBook, book.ID, types.ActivityDownload); err == nil {
		view.Downloads = n
	}
	return view
}

func (s *bookService) lookupUserID(ctx context.Context, userEmail string) *int64 {
	if userEmail == "" {
		return nil
	}
	user, err := s.users.GetByEmail(ctx, userEmail)
	if err != nil {
		return nil
	}
	return &user.ID
}

// applyCoverSideEffect runs the cover write path when the payload carried
// inline cover bytes. Best effort on create/update; the book row is already
// persisted.
func (s *bookService) applyCoverSideEffect(ctx context.Context, bookID int64, input BookInput) {
	if input.CoverImageBase64 == nil || *input.CoverImageBase64 == "" {
		return
	}
	raw, err := base64.StdEncoding.DecodeString(stripDataURL(*input.CoverImageBase64))
	if err != nil {
		s.log.Warn("invalid cover image base64", "book_id", bookID, "error", err)
		return
	}
	declared := ""
	if input.CoverImageType != nil {
		declared = *input.CoverImageType
	}
	if _, err := s.thumbs.SetCover(ctx, bookID, raw, declared); err != nil {
		s.log.Warn("failed to set cover from payload", "book_id", bookID, "error", err)
	}
}

// backfillPageCount fills page_count for disk PDFs when the client did not
// provide one. Best effort.
func (s *bookService) backfillPageCount(ctx context.Context, book *types.Book) {
	if book.PageCount != nil || book.FilePath == nil || !book.IsPDF() {
		return
	}
	if !strings.HasPrefix(*book.FilePath, uploadsPrefix) {
		return
	}
	local := filepath.Join(s.uploadsRoot, filepath.FromSlash(strings.TrimPrefix(*book.FilePath, uploadsPrefix)))
	pages, err := s.renderer.CountPages(ctx, local)
	if err != nil || pages <= 0 {
		return
	}
	if err := s.books.Updates(ctx, nil, book.ID, map[string]any{"page_count": pages}); err != nil {
		s.log.Warn("failed to backfill page count", "book_id", book.ID, "error", err)
	}
}

func decodeFilePayload(input BookInput) ([]byte, error) {
	if input.FileContentBase64 == nil || *input.FileContentBase64 == "" {
		return nil, nil
	}
	encoded := stripDataURL(*input.FileContentBase64)
	if len(encoded) > MaxEncodedFileBytes {
		return nil, apierr.PayloadTooLarge(
			"encoded file payload is %d bytes, above the base64 ceiling for the 100MB limit", len(encoded))
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apierr.Validation("file_content is not valid base64")
	}
	if len(raw) > MaxFileBytes {
		return nil, apierr.PayloadTooLarge("file payload is %d bytes, above the 100MB limit", len(raw))
	}
	return raw, nil
}

// validateVariant enforces that the field the book_type owns is populated.
func validateVariant(bookType types.BookType, filePath *string, contentLen int, externalLink, purchaseLink *string) error {
	switch bookType {
	case types.BookTypeFile:
		hasPath := filePath != nil && strings.TrimSpace(*filePath) != ""
		if !hasPath && contentLen == 0 {
			return apierr.Validation("book_type=file requires file_path or file_content")
		}
	case types.BookTypeLink:
		if externalLink == nil || strings.TrimSpace(*externalLink) == "" {
			return apierr.Validation("book_type=link requires external_link")
		}
	case types.BookTypePurchase:
		if purchaseLink == nil || strings.TrimSpace(*purchaseLink) == "" {
			return apierr.Validation("book_type=purchase requires purchase_link")
		}
	}
	return nil
}

func checkSizeCeilings(bookType types.BookType, fileSize *int64, content []byte) error {
	if bookType != types.BookTypeFile {
		return nil
	}
	if fileSize != nil && *fileSize > MaxFileBytes {
		return apierr.PayloadTooLarge("file_size is %d bytes, above the 100MB limit", *fileSize)
	}
	if len(content) > MaxFileBytes {
		return apierr.PayloadTooLarge("file payload is %d bytes, above the 100MB limit", len(content))
	}
	return nil
}

func stripDataURL(s string) string {
	if idx := strings.Index(s, ";base64,"); idx >= 0 {
		return s[idx+len(";base64,"):]
	}
	return s
}

func mapDBError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint") {
		return apierr.Conflict("%s", msg)
	}
	if strings.Contains(msg, "violates foreign key constraint") {
		return apierr.Validation("%s", msg)
	}
	return apierr.Database(err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefI64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
