package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/platform/apierr"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/platform/objstore"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/types"
)

const presignExpiry = 1 * time.Hour

type DownloadKind int

const (
	DownloadRedirect DownloadKind = iota
	DownloadStream
	DownloadInline
)

type DownloadResult struct {
	Kind DownloadKind

	// DownloadRedirect
	URL string

	// DownloadStream
	FilePath string

	// DownloadInline
	Data []byte
	Mime string
	Size int64

	Filename string
}

type ContentService interface {
	ResolveDownload(ctx context.Context, bookID int64, userEmail, ip string) (*DownloadResult, error)
}

type contentService struct {
	log      *logger.Logger
	books    repos.BookRepo
	users    repos.UserRepo
	activity repos.ActivityRepo
	store    objstore.Store // nil when S3 config is absent

	uploadsRoot string
}

func NewContentService(
	log *logger.Logger,
	books repos.BookRepo,
	users repos.UserRepo,
	activity repos.ActivityRepo,
	store objstore.Store,
	uploadsRoot string,
) ContentService {
	return &contentService{
		log:         log.With("service", "ContentService"),
		books:       books,
		users:       users,
		activity:    activity,
		store:       store,
		uploadsRoot: uploadsRoot,
	}
}

// ResolveDownload picks the delivery strategy from the stored path prefix:
// s3:// presigns, /uploads/ streams from disk, inline content is returned
// as bytes. Download logging is best effort and never fails the response.
func (s *contentService) ResolveDownload(ctx context.Context, bookID int64, userEmail, ip string) (*DownloadResult, error) {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("book %d not found", bookID)
		}
		return nil, apierr.Database(err)
	}

	s.logDownload(ctx, book.ID, userEmail, ip)

	if book.FilePath != nil {
		path := *book.FilePath

		if bucket, key, ok := objstore.ParseS3Path(path); ok {
			if s.store == nil {
				return nil, apierr.Misconfigured("book %d stored in s3://%s but no object store is configured", bookID, bucket)
			}
			url, err := s.store.PresignGet(ctx, key, presignExpiry)
			if err != nil {
				return nil, apierr.Database(fmt.Errorf("presign download: %w", err))
			}
			return &DownloadResult{Kind: DownloadRedirect, URL: url}, nil
		}

		if strings.HasPrefix(path, uploadsPrefix) {
			local := filepath.Join(s.uploadsRoot, filepath.FromSlash(strings.TrimPrefix(path, uploadsPrefix)))
			if _, err := os.Stat(local); err != nil {
				return nil, apierr.NotFound("file for book %d not found on disk", bookID)
			}
			return &DownloadResult{
				Kind:     DownloadStream,
				FilePath: local,
				Filename: downloadFilename(book, filepath.Base(local)),
			}, nil
		}
	}

	if book.HasInlineContent() {
		mime := "application/octet-stream"
		if book.FileType != nil && *book.FileType != "" {
			mime = *book.FileType
		}
		size := int64(len(book.FileContent))
		if book.FileSize != nil && *book.FileSize > 0 {
			size = *book.FileSize
		}
		fallback := "book-" + fmt.Sprint(book.ID)
		if book.FilePath != nil && *book.FilePath != "" {
			fallback = filepath.Base(*book.FilePath)
		}
		return &DownloadResult{
			Kind:     DownloadInline,
			Data:     book.FileContent,
			Mime:     mime,
			Size:     size,
			Filename: downloadFilename(book, fallback),
		}, nil
	}

	return nil, apierr.NotFound("book %d has no downloadable content", bookID)
}

func (s *contentService) logDownload(ctx context.Context, bookID int64, userEmail, ip string) {
	var userID *int64
	if userEmail != "" {
		if user, err := s.users.GetByEmail(ctx, userEmail); err == nil {
			userID = &user.ID
		}
	}
	entry := &types.ActivityLog{
		UserID:      userID,
		ContentType: types.ContentTypeBook,
		ContentID:   bookID,
		Action:      types.ActivityDownload,
		IPAddress:   ip,
	}
	if err := s.activity.Append(ctx, entry); err != nil {
		s.log.Warn("failed to log download", "book_id", bookID, "error", err)
	}
}

// downloadFilename derives the attachment name from the book title plus the
// original extension, falling back to the raw disk filename.
func downloadFilename(book *types.Book, fallback string) string {
	title := strings.TrimSpace(book.Title)
	if title == "" {
		return fallback
	}
	ext := filepath.Ext(fallback)
	safe := sanitizeFilename(title)
	if safe == "" {
		return fallback
	}
	return safe + ext
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
