package services

import (
	"context"
	"testing"

	"github.com/openshelf/openshelf-backend/internal/platform/apierr"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/types"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Programming", "programming"},
		{"Data Science", "data-science"},
		{"C++ & Systems", "c-systems"},
		{"  Trimmed  ", "trimmed"},
		{"---", ""},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("%q: want=%q got=%q", tc.in, tc.want, got)
		}
	}
}

func TestCreateCategoryDerivesSlug(t *testing.T) {
	repo := newFakeCategoryRepo()
	svc := NewCategoryService(logger.NewNop(), repo)

	cat, err := svc.Create(context.Background(), CategoryInput{Name: strptr("Data Science")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if cat.Slug != "data-science" {
		t.Fatalf("slug: want=%q got=%q", "data-science", cat.Slug)
	}
}

func TestCreateCategoryKeepsExplicitSlug(t *testing.T) {
	repo := newFakeCategoryRepo()
	svc := NewCategoryService(logger.NewNop(), repo)

	cat, err := svc.Create(context.Background(), CategoryInput{Name: strptr("Data Science"), Slug: strptr("ds")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if cat.Slug != "ds" {
		t.Fatalf("slug: want=%q got=%q", "ds", cat.Slug)
	}
}

func TestCreateCategoryRequiresName(t *testing.T) {
	svc := NewCategoryService(logger.NewNop(), newFakeCategoryRepo())
	if _, err := svc.Create(context.Background(), CategoryInput{}); !apierr.IsCode(err, "validation_error") {
		t.Fatalf("want validation_error, got %v", err)
	}
}

func TestGetCategoryBySlug(t *testing.T) {
	repo := newFakeCategoryRepo(&types.Category{ID: 1, Name: "Data Science", Slug: "data-science"})
	svc := NewCategoryService(logger.NewNop(), repo)

	cat, err := svc.GetBySlug(context.Background(), "data-science")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if cat.ID != 1 {
		t.Fatalf("id: want=1 got=%d", cat.ID)
	}
}

func TestGetCategoryBySlugNotFound(t *testing.T) {
	svc := NewCategoryService(logger.NewNop(), newFakeCategoryRepo())
	if _, err := svc.GetBySlug(context.Background(), "missing"); !apierr.IsCode(err, "not_found") {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestGetCategoryBySlugEmpty(t *testing.T) {
	svc := NewCategoryService(logger.NewNop(), newFakeCategoryRepo())
	if _, err := svc.GetBySlug(context.Background(), "  "); !apierr.IsCode(err, "validation_error") {
		t.Fatalf("want validation_error, got %v", err)
	}
}

func TestDeleteCategoryBlockedByReferences(t *testing.T) {
	repo := newFakeCategoryRepo(&types.Category{ID: 1, Name: "Go", Slug: "go"})
	repo.refCount = 3
	svc := NewCategoryService(logger.NewNop(), repo)

	err := svc.Delete(context.Background(), 1)
	if !apierr.IsCode(err, "conflict") {
		t.Fatalf("want conflict, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("referenced category must not be deleted")
	}
}

func TestDeleteCategoryUnreferenced(t *testing.T) {
	repo := newFakeCategoryRepo(&types.Category{ID: 1, Name: "Go", Slug: "go"})
	svc := NewCategoryService(logger.NewNop(), repo)

	if err := svc.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Fatalf("expected delete to reach the repo")
	}
}

func TestDeleteCategoryNotFound(t *testing.T) {
	svc := NewCategoryService(logger.NewNop(), newFakeCategoryRepo())
	if err := svc.Delete(context.Background(), 9); !apierr.IsCode(err, "not_found") {
		t.Fatalf("want not_found, got %v", err)
	}
}
