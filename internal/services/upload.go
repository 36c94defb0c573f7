package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/openshelf/openshelf-backend/internal/platform/apierr"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/platform/objstore"
)

type UploadedFile struct {
	FilePath     string `json:"filePath"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	Mimetype     string `json:"mimetype"`
}

type UploadService interface {
	Store(ctx context.Context, fieldName string, header *multipart.FileHeader) (*UploadedFile, error)
}

type uploadService struct {
	log   *logger.Logger
	store objstore.Store // nil when S3 config is absent

	uploadsRoot string
}

func NewUploadService(log *logger.Logger, store objstore.Store, uploadsRoot string) UploadService {
	return &uploadService{
		log:         log.With("service", "UploadService"),
		store:       store,
		uploadsRoot: uploadsRoot,
	}
}

// Store writes the multipart file to the uploads dir, relaying it to the
// object store when one is configured (the local copy is then removed).
// Either way the caller gets back a path string it can put on a book row.
func (s *uploadService) Store(ctx context.Context, fieldName string, header *multipart.FileHeader) (*UploadedFile, error) {
	if header == nil {
		return nil, apierr.Validation("file is required")
	}
	if header.Size > MaxFileBytes {
		return nil, apierr.PayloadTooLarge("file is %d bytes, above the 100MB limit", header.Size)
	}

	src, err := header.Open()
	if err != nil {
		return nil, apierr.Validation("cannot open uploaded file: %v", err)
	}
	defer src.Close()

	if fieldName == "" {
		fieldName = "file"
	}
	name := fmt.Sprintf("%s-%d-%s-%s",
		fieldName,
		time.Now().UnixMilli(),
		uuid.NewString()[:8],
		sanitizeFilename(filepath.Base(header.Filename)),
	)
	local := filepath.Join(s.uploadsRoot, name)

	dst, err := os.Create(local)
	if err != nil {
		return nil, apierr.Database(fmt.Errorf("create upload file: %w", err))
	}
	written, err := io.Copy(dst, src)
	closeErr := dst.Close()
	if err != nil || closeErr != nil {
		_ = os.Remove(local)
		if err == nil {
			err = closeErr
		}
		return nil, apierr.Database(fmt.Errorf("write upload file: %w", err))
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		if detected, err := mimetype.DetectFile(local); err == nil {
			mime = detected.String()
		}
	}

	result := &UploadedFile{
		FilePath:     uploadsPrefix + name,
		OriginalName: header.Filename,
		Size:         written,
		Mimetype:     mime,
	}

	if s.store != nil {
		f, err := os.Open(local)
		if err != nil {
			return nil, apierr.Database(fmt.Errorf("reopen upload for relay: %w", err))
		}
		key := "books/" + name
		s3Path, putErr := s.store.Put(ctx, key, f, written, mime)
		_ = f.Close()
		if putErr != nil {
			// Keep the disk copy; the book can still reference it.
			s.log.Warn("failed to relay upload to object store", "key", key, "error", putErr)
		} else {
			result.FilePath = s3Path
			if err := os.Remove(local); err != nil {
				s.log.Warn("failed to remove local copy after relay", "path", local, "error", err)
			}
		}
	}

	return result, nil
}
