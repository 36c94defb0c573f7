package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openshelf/openshelf-backend/internal/platform/apierr"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
)

func multipartHeader(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatalf("parse multipart: %v", err)
	}
	headers := req.MultipartForm.File[field]
	if len(headers) != 1 {
		t.Fatalf("expected one file header, got %d", len(headers))
	}
	return headers[0]
}

func TestUploadStoreWritesToUploadsDir(t *testing.T) {
	uploads := t.TempDir()
	svc := NewUploadService(logger.NewNop(), nil, uploads)

	stored, err := svc.Store(context.Background(), "file", multipartHeader(t, "file", "My Book.pdf", []byte("%PDF-1.4 body")))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !strings.HasPrefix(stored.FilePath, "/uploads/file-") {
		t.Fatalf("path: got=%q", stored.FilePath)
	}
	if !strings.HasSuffix(stored.FilePath, "My Book.pdf") {
		t.Fatalf("sanitized original name should survive: %q", stored.FilePath)
	}
	if stored.OriginalName != "My Book.pdf" {
		t.Fatalf("original name: got=%q", stored.OriginalName)
	}
	if stored.Size != int64(len("%PDF-1.4 body")) {
		t.Fatalf("size: got=%d", stored.Size)
	}

	local := filepath.Join(uploads, strings.TrimPrefix(stored.FilePath, "/uploads/"))
	data, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf("stored file unreadable: %v", err)
	}
	if string(data) != "%PDF-1.4 body" {
		t.Fatalf("content mismatch")
	}
}

func TestUploadStoreDetectsMime(t *testing.T) {
	uploads := t.TempDir()
	svc := NewUploadService(logger.NewNop(), nil, uploads)

	stored, err := svc.Store(context.Background(), "file", multipartHeader(t, "file", "book.pdf", []byte("%PDF-1.4\n%fixture")))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if stored.Mimetype != "application/pdf" {
		t.Fatalf("mime: want=application/pdf got=%q", stored.Mimetype)
	}
}

func TestUploadStoreRelaysToObjectStore(t *testing.T) {
	uploads := t.TempDir()
	store := &fakeStore{}
	svc := NewUploadService(logger.NewNop(), store, uploads)

	stored, err := svc.Store(context.Background(), "file", multipartHeader(t, "file", "book.pdf", []byte("%PDF-1.4")))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !strings.HasPrefix(stored.FilePath, "s3://test-bucket/books/") {
		t.Fatalf("relayed path: got=%q", stored.FilePath)
	}
	entries, err := os.ReadDir(uploads)
	if err != nil {
		t.Fatalf("read uploads dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("local copy should be removed after relay, found %d entries", len(entries))
	}
}

func TestUploadStoreRejectsOversize(t *testing.T) {
	svc := NewUploadService(logger.NewNop(), nil, t.TempDir())
	header := multipartHeader(t, "file", "big.pdf", []byte("tiny"))
	header.Size = MaxFileBytes + 1

	_, err := svc.Store(context.Background(), "file", header)
	if !apierr.IsCode(err, "payload_too_large") {
		t.Fatalf("want payload_too_large, got %v", err)
	}
}

func TestUploadStoreRequiresFile(t *testing.T) {
	svc := NewUploadService(logger.NewNop(), nil, t.TempDir())
	if _, err := svc.Store(context.Background(), "file", nil); !apierr.IsCode(err, "validation_error") {
		t.Fatalf("want validation_error, got %v", err)
	}
}
