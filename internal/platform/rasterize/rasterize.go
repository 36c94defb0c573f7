package rasterize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openshelf/openshelf-backend/internal/platform/logger"
)

// ErrTimeout is returned when the external conversion process does not
// finish inside the configured deadline. The process output must be treated
// as abandoned at that point.
var ErrTimeout = errors.New("pdf rasterization timed out")

// Renderer shells out to poppler's pdftoppm/pdfinfo. Callers own the output
// files it produces and are expected to remove them when done.
type Renderer interface {
	RenderFirstPage(ctx context.Context, pdfPath, outDir, baseName string) (string, error)
	CountPages(ctx context.Context, pdfPath string) (int, error)
	WriteTempFile(data []byte, pattern string) (string, func(), error)
}

type Options struct {
	DPI     int
	Timeout time.Duration

	// Binary overrides, used by tests to substitute stub executables.
	PdftoppmPath string
	PdfinfoPath  string
}

type renderer struct {
	log *logger.Logger

	pdftoppmPath string
	pdfinfoPath  string

	dpi     int
	timeout time.Duration
}

func New(log *logger.Logger, opts Options) Renderer {
	dpi := opts.DPI
	if dpi <= 0 {
		dpi = 150
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pdftoppm := opts.PdftoppmPath
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	pdfinfo := opts.PdfinfoPath
	if pdfinfo == "" {
		pdfinfo = "pdfinfo"
	}
	return &renderer{
		log:          log.With("platform", "Rasterizer"),
		pdftoppmPath: pdftoppm,
		pdfinfoPath:  pdfinfo,
		dpi:          dpi,
		timeout:      timeout,
	}
}

// RenderFirstPage renders page 1 of pdfPath to a PNG under outDir and
// returns the produced file path. pdftoppm appends its own page suffix, so
// the output is located by prefix scan after the run.
func (r *renderer) RenderFirstPage(ctx context.Context, pdfPath, outDir, baseName string) (string, error) {
	if pdfPath == "" {
		return "", fmt.Errorf("pdfPath required")
	}
	if outDir == "" {
		outDir = os.TempDir()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir outDir: %w", err)
	}
	if baseName == "" {
		baseName = "page-" + uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	prefix := filepath.Join(outDir, baseName)
	cmd := exec.CommandContext(ctx, r.pdftoppmPath,
		"-png",
		"-r", strconv.Itoa(r.dpi),
		"-f", "1",
		"-l", "1",
		pdfPath,
		prefix,
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			r.log.Warn("pdftoppm exceeded deadline", "pdf", pdfPath, "timeout", r.timeout)
			return "", ErrTimeout
		}
		return "", fmt.Errorf("pdftoppm failed: %w; out=%s", err, string(out))
	}

	produced, err := newestFileWithPrefix(outDir, baseName)
	if err != nil {
		return "", fmt.Errorf("pdftoppm produced no output for %s: %w", pdfPath, err)
	}
	return produced, nil
}

func (r *renderer) CountPages(ctx context.Context, pdfPath string) (int, error) {
	if pdfPath == "" {
		return 0, fmt.Errorf("pdfPath required")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.pdfinfoPath, pdfPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, ErrTimeout
		}
		return 0, fmt.Errorf("pdfinfo failed: %w; out=%s", err, string(out))
	}

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		n, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil || n <= 0 {
			continue
		}
		return n, nil
	}
	return 0, fmt.Errorf("pdfinfo output missing Pages field")
}

func (r *renderer) WriteTempFile(data []byte, pattern string) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", func() {}, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", func() {}, fmt.Errorf("close temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(path) }
	return path, cleanup, nil
}

func newestFileWithPrefix(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) {
			matches = append(matches, filepath.Join(dir, e.Name()))
		}
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no files with prefix %q in %s", prefix, dir)
	}
	sort.Slice(matches, func(i, j int) bool {
		fi, errI := os.Stat(matches[i])
		fj, errJ := os.Stat(matches[j])
		if errI != nil || errJ != nil {
			return matches[i] < matches[j]
		}
		return fi.ModTime().After(fj.ModTime())
	})
	return matches[0], nil
}
