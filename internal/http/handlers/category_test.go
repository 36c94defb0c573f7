package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf-backend/internal/platform/apierr"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/services"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type stubCategoryService struct {
	cat      *types.Category
	err      error
	gotID    int64
	gotSlug  string
	byIDHits int
}

func (s *stubCategoryService) Create(_ context.Context, _ services.CategoryInput) (*types.Category, error) {
	return s.cat, s.err
}

func (s *stubCategoryService) Get(_ context.Context, id int64) (*types.Category, error) {
	s.gotID = id
	s.byIDHits++
	return s.cat, s.err
}

func (s *stubCategoryService) GetBySlug(_ context.Context, slug string) (*types.Category, error) {
	s.gotSlug = slug
	return s.cat, s.err
}

func (s *stubCategoryService) List(_ context.Context) ([]*types.Category, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*types.Category{s.cat}, nil
}

func (s *stubCategoryService) Update(_ context.Context, _ int64, _ services.CategoryInput) (*types.Category, error) {
	return s.cat, s.err
}

func (s *stubCategoryService) Delete(_ context.Context, _ int64) error { return s.err }

func newCategoryRouter(svc *stubCategoryService) *gin.Engine {
	h := NewCategoryHandler(logger.NewNop(), svc, false)
	r := gin.New()
	r.GET("/categories/:id", h.Get)
	return r
}

func TestGetCategoryByNumericID(t *testing.T) {
	svc := &stubCategoryService{cat: &types.Category{ID: 7, Name: "Go", Slug: "go"}}
	r := newCategoryRouter(svc)

	w := doRequest(r, http.MethodGet, "/categories/7", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", w.Code)
	}
	if svc.gotID != 7 || svc.byIDHits != 1 {
		t.Fatalf("expected ID lookup for numeric segment, got id=%d hits=%d", svc.gotID, svc.byIDHits)
	}
}

func TestGetCategoryBySlug(t *testing.T) {
	svc := &stubCategoryService{cat: &types.Category{ID: 7, Name: "Go", Slug: "go"}}
	r := newCategoryRouter(svc)

	w := doRequest(r, http.MethodGet, "/categories/go", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", w.Code)
	}
	if svc.gotSlug != "go" {
		t.Fatalf("slug: want=%q got=%q", "go", svc.gotSlug)
	}
	if svc.byIDHits != 0 {
		t.Fatalf("slug segment must not hit the ID lookup")
	}
	var body struct {
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Slug != "go" {
		t.Fatalf("body slug: got=%q", body.Slug)
	}
}

func TestGetCategoryBySlugNotFound(t *testing.T) {
	svc := &stubCategoryService{err: apierr.NotFound("category %q not found", "nope")}
	r := newCategoryRouter(svc)

	w := doRequest(r, http.MethodGet, "/categories/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: want=404 got=%d", w.Code)
	}
}
