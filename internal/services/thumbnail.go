package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/platform/apierr"
	"github.com/openshelf/openshelf-backend/internal/platform/imagefit"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/platform/rasterize"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/types"
)

// MaxThumbnailSourceBytes guards rasterization: PDFs above this size are
// rejected before the external process is ever started.
const MaxThumbnailSourceBytes = 50 << 20

const uploadsPrefix = "/uploads/"

type ThumbnailKind int

const (
	ThumbnailFile ThumbnailKind = iota
	ThumbnailRedirect
	ThumbnailBytes
)

type ThumbnailResult struct {
	Kind ThumbnailKind

	// ThumbnailFile
	FilePath string

	// ThumbnailRedirect
	RedirectURL string

	// ThumbnailBytes
	Data []byte
	Mime string
	ETag string
}

type ThumbnailService interface {
	Resolve(ctx context.Context, bookID int64) (*ThumbnailResult, error)
	SetCover(ctx context.Context, bookID int64, raw []byte, declaredMime string) (string, error)
	GenerateFromPath(ctx context.Context, filePath string) (string, error)
}

type thumbnailService struct {
	log      *logger.Logger
	books    repos.BookRepo
	renderer rasterize.Renderer

	uploadsRoot string
}

func NewThumbnailService(log *logger.Logger, books repos.BookRepo, renderer rasterize.Renderer, uploadsRoot string) ThumbnailService {
	return &thumbnailService{
		log:         log.With("service", "ThumbnailService"),
		books:       books,
		renderer:    renderer,
		uploadsRoot: uploadsRoot,
	}
}

// tempTracker registers every temp path a resolution attempt creates and
// releases all of them on scope exit, logging (not propagating) individual
// deletion failures.
type tempTracker struct {
	log   *logger.Logger
	paths []string
}

func (t *tempTracker) add(path string) {
	if path != "" {
		t.paths = append(t.paths, path)
	}
}

func (t *tempTracker) releaseAll() {
	for _, p := range t.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			t.log.Warn("failed to remove temp file", "path", p, "error", err)
		}
	}
	t.paths = nil
}

// thumbTempBase ties temp names to the book so a later attempt can sweep
// leftovers from a crashed or timed-out predecessor.
func thumbTempBase(bookID int64) string {
	return fmt.Sprintf("thumb-%d-%s", bookID, uuid.NewString()[:8])
}

func (s *thumbnailService) sweepStale(bookID int64) {
	pattern := filepath.Join(os.TempDir(), fmt.Sprintf("thumb-%d-*", bookID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			s.log.Warn("failed to sweep stale temp file", "path", m, "error", err)
		}
	}
}

// Resolve walks the fallback chain: local cover file, cover URL redirect,
// cached blob, disk PDF rasterization, inline PDF rasterization, NotFound.
// First applicable branch wins.
func (s *thumbnailService) Resolve(ctx context.Context, bookID int64) (*ThumbnailResult, error) {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("book %d not found", bookID)
		}
		return nil, apierr.Database(err)
	}

	type strategy func(ctx context.Context, book *types.Book) (*ThumbnailResult, error)
	chain := []strategy{
		s.tryCoverFile,
		s.tryCoverRedirect,
		s.tryCachedBlob,
		s.tryDiskPDF,
		s.tryInlinePDF,
	}
	for _, try := range chain {
		res, err := try(ctx, book)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return nil, apierr.NotFound("no thumbnail source for book %d", bookID)
}

// tryCoverFile serves a pre-generated cover from disk verbatim, no resize.
func (s *thumbnailService) tryCoverFile(_ context.Context, book *types.Book) (*ThumbnailResult, error) {
	if book.CoverImagePath == nil {
		return nil, nil
	}
	cover := *book.CoverImagePath
	if !strings.HasPrefix(cover, "/") {
		return nil, nil
	}
	local := s.localPath(cover)
	if local == "" {
		return nil, nil
	}
	if _, err := os.Stat(local); err != nil {
		return nil, nil
	}
	return &ThumbnailResult{Kind: ThumbnailFile, FilePath: local}, nil
}

func (s *thumbnailService) tryCoverRedirect(_ context.Context, book *types.Book) (*ThumbnailResult, error) {
	if book.CoverImagePath == nil {
		return nil, nil
	}
	cover := *book.CoverImagePath
	if !strings.HasPrefix(cover, "http") {
		return nil, nil
	}
	return &ThumbnailResult{Kind: ThumbnailRedirect, RedirectURL: cover}, nil
}

func (s *thumbnailService) tryCachedBlob(_ context.Context, book *types.Book) (*ThumbnailResult, error) {
	if len(book.ThumbnailContent) == 0 {
		return nil, nil
	}
	mime := "image/png"
	if book.ThumbnailMime != nil && *book.ThumbnailMime != "" {
		mime = *book.ThumbnailMime
	}
	return &ThumbnailResult{
		Kind: ThumbnailBytes,
		Data: book.ThumbnailContent,
		Mime: mime,
		ETag: ContentETag(book.ThumbnailContent),
	}, nil
}

func (s *thumbnailService) tryDiskPDF(ctx context.Context, book *types.Book) (*ThumbnailResult, error) {
	if book.FilePath == nil || !strings.HasPrefix(*book.FilePath, uploadsPrefix) || !book.IsPDF() {
		return nil, nil
	}
	local := s.localPath(*book.FilePath)
	info, err := os.Stat(local)
	if err != nil {
		return nil, nil
	}
	if info.Size() > MaxThumbnailSourceBytes {
		return nil, apierr.ConversionFailed(fmt.Errorf("pdf too large for thumbnail generation: %d bytes", info.Size()))
	}
	return s.generate(ctx, book, local)
}

func (s *thumbnailService) tryInlinePDF(ctx context.Context, book *types.Book) (*ThumbnailResult, error) {
	if !book.HasInlineContent() || !book.IsPDF() {
		return nil, nil
	}
	if len(book.FileContent) > MaxThumbnailSourceBytes {
		return nil, apierr.ConversionFailed(fmt.Errorf("pdf too large for thumbnail generation: %d bytes", len(book.FileContent)))
	}

	// Sweep predecessors' leftovers before creating this attempt's temp
	// files, so the sweep can never eat our own input.
	s.sweepStale(book.ID)

	tracker := &tempTracker{log: s.log}
	defer tracker.releaseAll()

	tmpPDF, _, err := s.renderer.WriteTempFile(book.FileContent, thumbTempBase(book.ID)+"-*.pdf")
	if err != nil {
		return nil, apierr.ConversionFailed(err)
	}
	tracker.add(tmpPDF)

	return s.rasterizeTracked(ctx, book, tmpPDF, tracker)
}

func (s *thumbnailService) generate(ctx context.Context, book *types.Book, pdfPath string) (*ThumbnailResult, error) {
	s.sweepStale(book.ID)

	tracker := &tempTracker{log: s.log}
	defer tracker.releaseAll()
	return s.rasterizeTracked(ctx, book, pdfPath, tracker)
}

func (s *thumbnailService) rasterizeTracked(ctx context.Context, book *types.Book, pdfPath string, tracker *tempTracker) (*ThumbnailResult, error) {
	pagePath, err := s.renderer.RenderFirstPage(ctx, pdfPath, os.TempDir(), thumbTempBase(book.ID))
	if pagePath != "" {
		tracker.add(pagePath)
	}
	if err != nil {
		if errors.Is(err, rasterize.ErrTimeout) {
			return nil, apierr.ConversionTimeout(err)
		}
		return nil, apierr.ConversionFailed(err)
	}

	raw, err := os.ReadFile(pagePath)
	if err != nil {
		return nil, apierr.ConversionFailed(fmt.Errorf("read rendered page: %w", err))
	}
	png, err := imagefit.FitPNG(raw, imagefit.ThumbWidth, imagefit.ThumbHeight)
	if err != nil {
		return nil, apierr.ConversionFailed(err)
	}

	// Cache for the next request. Concurrent writers are fine, last write
	// wins and the content is idempotent.
	if err := s.books.SetThumbnail(ctx, nil, book.ID, png, "image/png"); err != nil {
		s.log.Warn("failed to cache generated thumbnail", "book_id", book.ID, "error", err)
	}

	return &ThumbnailResult{
		Kind: ThumbnailBytes,
		Data: png,
		Mime: "image/png",
		ETag: ContentETag(png),
	}, nil
}

// SetCover persists raw cover bytes under the uploads dir, records the
// resulting path, and independently regenerates the cached thumbnail blob.
// The blob write is best effort; its failure never rolls back the cover.
func (s *thumbnailService) SetCover(ctx context.Context, bookID int64, raw []byte, declaredMime string) (string, error) {
	if len(raw) == 0 {
		return "", apierr.Validation("cover image payload is empty")
	}
	// Reject undecodable payloads before anything is written; a broken
	// cover file would poison every later thumbnail attempt.
	if _, _, _, err := imagefit.Decode(raw); err != nil {
		return "", apierr.Validation("cover payload is not a decodable image: %v", err)
	}
	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apierr.NotFound("book %d not found", bookID)
		}
		return "", apierr.Database(err)
	}

	ext := extensionFor(raw, declaredMime)
	name := fmt.Sprintf("cover_%d%s", time.Now().UnixMilli(), ext)
	local := filepath.Join(s.uploadsRoot, name)
	if err := os.WriteFile(local, raw, 0o644); err != nil {
		return "", apierr.ConversionFailed(fmt.Errorf("write cover file: %w", err))
	}

	coverPath := uploadsPrefix + name
	if err := s.books.SetCoverPath(ctx, nil, bookID, coverPath); err != nil {
		return "", apierr.Database(err)
	}

	if png, err := imagefit.FitPNG(raw, imagefit.ThumbWidth, imagefit.ThumbHeight); err != nil {
		s.log.Warn("failed to generate thumbnail from cover", "book_id", bookID, "error", err)
	} else if err := s.books.SetThumbnail(ctx, nil, bookID, png, "image/png"); err != nil {
		s.log.Warn("failed to store thumbnail from cover", "book_id", bookID, "error", err)
	}

	return coverPath, nil
}

// GenerateFromPath renders a durable thumbnail file for an arbitrary
// uploaded path (PDF or image) and returns its web path.
func (s *thumbnailService) GenerateFromPath(ctx context.Context, filePath string) (string, error) {
	if !strings.HasPrefix(filePath, uploadsPrefix) {
		return "", apierr.Validation("filePath must start with %s", uploadsPrefix)
	}
	local := s.localPath(filePath)
	info, err := os.Stat(local)
	if err != nil {
		return "", apierr.NotFound("file %s not found", filePath)
	}
	if info.Size() > MaxThumbnailSourceBytes {
		return "", apierr.ConversionFailed(fmt.Errorf("file too large for thumbnail generation: %d bytes", info.Size()))
	}

	var src []byte
	if strings.EqualFold(filepath.Ext(local), ".pdf") {
		tracker := &tempTracker{log: s.log}
		defer tracker.releaseAll()

		pagePath, err := s.renderer.RenderFirstPage(ctx, local, os.TempDir(), "thumb-path-"+uuid.NewString()[:8])
		if pagePath != "" {
			tracker.add(pagePath)
		}
		if err != nil {
			if errors.Is(err, rasterize.ErrTimeout) {
				return "", apierr.ConversionTimeout(err)
			}
			return "", apierr.ConversionFailed(err)
		}
		src, err = os.ReadFile(pagePath)
		if err != nil {
			return "", apierr.ConversionFailed(err)
		}
	} else {
		src, err = os.ReadFile(local)
		if err != nil {
			return "", apierr.ConversionFailed(err)
		}
	}

	png, err := imagefit.FitPNG(src, imagefit.ThumbWidth, imagefit.ThumbHeight)
	if err != nil {
		return "", apierr.ConversionFailed(err)
	}
	name := fmt.Sprintf("thumbnail_%d.png", time.Now().UnixMilli())
	if err := os.WriteFile(filepath.Join(s.uploadsRoot, name), png, 0o644); err != nil {
		return "", apierr.ConversionFailed(fmt.Errorf("write thumbnail file: %w", err))
	}
	return uploadsPrefix + name, nil
}

// localPath maps a public /uploads/... path onto the uploads root,
// rejecting traversal outside it.
func (s *thumbnailService) localPath(webPath string) string {
	rel := strings.TrimPrefix(webPath, uploadsPrefix)
	local := filepath.Join(s.uploadsRoot, filepath.FromSlash(rel))
	rootAbs, err := filepath.Abs(s.uploadsRoot)
	if err != nil {
		return ""
	}
	localAbs, err := filepath.Abs(local)
	if err != nil {
		return ""
	}
	if localAbs != rootAbs && !strings.HasPrefix(localAbs, rootAbs+string(os.PathSeparator)) {
		return ""
	}
	return localAbs
}

// ContentETag derives the cache validation token from the blob itself.
func ContentETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func extensionFor(raw []byte, declaredMime string) string {
	if declaredMime != "" {
		switch declaredMime {
		case "image/jpeg", "image/jpg":
			return ".jpg"
		case "image/png":
			return ".png"
		case "image/gif":
			return ".gif"
		case "image/webp":
			return ".webp"
		}
	}
	if ext := mimetype.Detect(raw).Extension(); ext != "" {
		return ext
	}
	return ".bin"
}
