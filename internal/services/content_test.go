package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/openshelf/openshelf-backend/internal/platform/apierr"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/types"
)

func i64ptr(n int64) *int64 { return &n }

func newContentFixture(t *testing.T, book *types.Book, store *fakeStore) (ContentService, *fakeActivityRepo, string) {
	t.Helper()
	uploads := t.TempDir()
	activity := &fakeActivityRepo{}
	var repo *fakeBookRepo
	if book != nil {
		repo = newFakeBookRepo(book)
	} else {
		repo = newFakeBookRepo()
	}
	var s ContentService
	if store != nil {
		s = NewContentService(logger.NewNop(), repo, newFakeUserRepo(), activity, store, uploads)
	} else {
		s = NewContentService(logger.NewNop(), repo, newFakeUserRepo(), activity, nil, uploads)
	}
	return s, activity, uploads
}

func TestResolveDownloadNotFound(t *testing.T) {
	svc, _, _ := newContentFixture(t, nil, nil)
	_, err := svc.ResolveDownload(context.Background(), 5, "", "127.0.0.1")
	if !apierr.IsCode(err, "not_found") {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestResolveDownloadS3Presigns(t *testing.T) {
	book := &types.Book{ID: 1, Title: "Networked Life", FilePath: strptr("s3://books/uploads/net.pdf")}
	store := &fakeStore{presignURL: "https://minio.local/presigned"}
	svc, activity, _ := newContentFixture(t, book, store)

	res, err := svc.ResolveDownload(context.Background(), 1, "", "127.0.0.1")
	if err != nil {
		t.Fatalf("ResolveDownload: %v", err)
	}
	if res.Kind != DownloadRedirect {
		t.Fatalf("kind: want=DownloadRedirect got=%v", res.Kind)
	}
	if res.URL != "https://minio.local/presigned" {
		t.Fatalf("url: got=%q", res.URL)
	}
	if store.presignedKey != "uploads/net.pdf" {
		t.Fatalf("key: want=%q got=%q", "uploads/net.pdf", store.presignedKey)
	}
	if len(activity.entries) != 1 || activity.entries[0].Action != types.ActivityDownload {
		t.Fatalf("download must be logged, got %+v", activity.entries)
	}
}

func TestResolveDownloadS3WithoutStore(t *testing.T) {
	book := &types.Book{ID: 1, FilePath: strptr("s3://books/uploads/net.pdf")}
	svc, _, _ := newContentFixture(t, book, nil)

	_, err := svc.ResolveDownload(context.Background(), 1, "", "127.0.0.1")
	if !apierr.IsCode(err, "server_misconfigured") {
		t.Fatalf("want server_misconfigured, got %v", err)
	}
}

func TestResolveDownloadDiskStreams(t *testing.T) {
	book := &types.Book{ID: 1, Title: "Intro to Go", FilePath: strptr("/uploads/intro.pdf")}
	svc, _, uploads := newContentFixture(t, book, nil)
	if err := os.WriteFile(filepath.Join(uploads, "intro.pdf"), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	res, err := svc.ResolveDownload(context.Background(), 1, "", "127.0.0.1")
	if err != nil {
		t.Fatalf("ResolveDownload: %v", err)
	}
	if res.Kind != DownloadStream {
		t.Fatalf("kind: want=DownloadStream got=%v", res.Kind)
	}
	if filepath.Base(res.FilePath) != "intro.pdf" {
		t.Fatalf("path: got=%q", res.FilePath)
	}
	if res.Filename != "Intro to Go.pdf" {
		t.Fatalf("filename: want=%q got=%q", "Intro to Go.pdf", res.Filename)
	}
}

func TestResolveDownloadDiskMissingFile(t *testing.T) {
	book := &types.Book{ID: 1, FilePath: strptr("/uploads/gone.pdf")}
	svc, _, _ := newContentFixture(t, book, nil)

	_, err := svc.ResolveDownload(context.Background(), 1, "", "127.0.0.1")
	if !apierr.IsCode(err, "not_found") {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestResolveDownloadInlineBlob(t *testing.T) {
	book := &types.Book{
		ID:          1,
		Title:       "Inline Classic",
		FileContent: []byte("book bytes"),
		FileType:    strptr("application/pdf"),
		FileSize:    i64ptr(10),
	}
	svc, _, _ := newContentFixture(t, book, nil)

	res, err := svc.ResolveDownload(context.Background(), 1, "", "127.0.0.1")
	if err != nil {
		t.Fatalf("ResolveDownload: %v", err)
	}
	if res.Kind != DownloadInline {
		t.Fatalf("kind: want=DownloadInline got=%v", res.Kind)
	}
	if res.Mime != "application/pdf" {
		t.Fatalf("mime: got=%q", res.Mime)
	}
	if res.Size != 10 {
		t.Fatalf("size: want=10 got=%d", res.Size)
	}
	if string(res.Data) != "book bytes" {
		t.Fatalf("data mismatch")
	}
}

func TestResolveDownloadInlineDefaultsMime(t *testing.T) {
	book := &types.Book{ID: 1, FileContent: []byte("raw")}
	svc, _, _ := newContentFixture(t, book, nil)

	res, err := svc.ResolveDownload(context.Background(), 1, "", "127.0.0.1")
	if err != nil {
		t.Fatalf("ResolveDownload: %v", err)
	}
	if res.Mime != "application/octet-stream" {
		t.Fatalf("mime: want=application/octet-stream got=%q", res.Mime)
	}
	if res.Size != 3 {
		t.Fatalf("size should fall back to blob length, got %d", res.Size)
	}
}

func TestResolveDownloadNoContent(t *testing.T) {
	book := &types.Book{ID: 1, BookType: types.BookTypeLink, ExternalLink: strptr("https://example.com")}
	svc, _, _ := newContentFixture(t, book, nil)

	_, err := svc.ResolveDownload(context.Background(), 1, "", "127.0.0.1")
	if !apierr.IsCode(err, "not_found") {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestResolveDownloadLogsUserWhenKnown(t *testing.T) {
	uploads := t.TempDir()
	book := &types.Book{ID: 1, FileContent: []byte("raw")}
	activity := &fakeActivityRepo{}
	users := newFakeUserRepo(&types.User{ID: 7, Email: "reader@example.com"})
	svc := NewContentService(logger.NewNop(), newFakeBookRepo(book), users, activity, nil, uploads)

	if _, err := svc.ResolveDownload(context.Background(), 1, "reader@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("ResolveDownload: %v", err)
	}
	if len(activity.entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(activity.entries))
	}
	entry := activity.entries[0]
	if entry.UserID == nil || *entry.UserID != 7 {
		t.Fatalf("user id not attached: %+v", entry.UserID)
	}
	if entry.IPAddress != "10.0.0.1" {
		t.Fatalf("ip: got=%q", entry.IPAddress)
	}
}

func TestDownloadFilename(t *testing.T) {
	cases := []struct {
		title    string
		fallback string
		want     string
	}{
		{"Intro to Go", "f.pdf", "Intro to Go.pdf"},
		{"", "f.pdf", "f.pdf"},
		{"<<<>>>", "f.pdf", "f.pdf"},
		{"C++ & More!", "raw.epub", "C  More.epub"},
	}
	for _, tc := range cases {
		book := &types.Book{Title: tc.title}
		if got := downloadFilename(book, tc.fallback); got != tc.want {
			t.Fatalf("title=%q: want=%q got=%q", tc.title, tc.want, got)
		}
	}
}
