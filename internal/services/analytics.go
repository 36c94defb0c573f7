package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/openshelf/openshelf-backend/internal/platform/apierr"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type OverviewReport struct {
	TotalBooks      int64 `json:"total_books"`
	TotalTutorials  int64 `json:"total_tutorials"`
	TotalUsers      int64 `json:"total_users"`
	TotalCategories int64 `json:"total_categories"`
	TotalDownloads  int64 `json:"total_downloads"`
	TotalViews      int64 `json:"total_views"`
}

type TopItem struct {
	ContentID int64  `json:"content_id"`
	Title     string `json:"title"`
	Count     int64  `json:"count"`
}

type TopContentReport struct {
	TopDownloadedBooks []TopItem `json:"top_downloaded_books"`
	TopViewedTutorials []TopItem `json:"top_viewed_tutorials"`
}

type CategoryUsage struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Books      int64  `json:"books"`
	Tutorials  int64  `json:"tutorials"`
}

type AnalyticsService interface {
	Overview(ctx context.Context) (*OverviewReport, error)
	PerCategory(ctx context.Context) ([]CategoryUsage, error)
	TopContent(ctx context.Context, limit int) (*TopContentReport, error)
}

type analyticsService struct {
	log        *logger.Logger
	books      repos.BookRepo
	tutorials  repos.TutorialRepo
	categories repos.CategoryRepo
	users      repos.UserRepo
	activity   repos.ActivityRepo
}

func NewAnalyticsService(
	log *logger.Logger,
	books repos.BookRepo,
	tutorials repos.TutorialRepo,
	categories repos.CategoryRepo,
	users repos.UserRepo,
	activity repos.ActivityRepo,
) AnalyticsService {
	return &analyticsService{
		log:        log.With("service", "AnalyticsService"),
		books:      books,
		tutorials:  tutorials,
		categories: categories,
		users:      users,
		activity:   activity,
	}
}

// Overview fans the independent aggregate queries out concurrently.
func (s *analyticsService) Overview(ctx context.Context) (*OverviewReport, error) {
	var report OverviewReport

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		books, err := s.books.List(gctx, nil)
		if err != nil {
			return err
		}
		report.TotalBooks = int64(len(books))
		return nil
	})
	g.Go(func() error {
		tutorials, err := s.tutorials.List(gctx, nil)
		if err != nil {
			return err
		}
		report.TotalTutorials = int64(len(tutorials))
		return nil
	})
	g.Go(func() error {
		users, err := s.users.List(gctx)
		if err != nil {
			return err
		}
		report.TotalUsers = int64(len(users))
		return nil
	})
	g.Go(func() error {
		categories, err := s.categories.List(gctx)
		if err != nil {
			return err
		}
		report.TotalCategories = int64(len(categories))
		return nil
	})
	g.Go(func() error {
		n, err := s.activity.TotalByAction(gctx, types.ActivityDownload)
		if err != nil {
			return err
		}
		report.TotalDownloads = n
		return nil
	})
	g.Go(func() error {
		n, err := s.activity.TotalByAction(gctx, types.ActivityView)
		if err != nil {
			return err
		}
		report.TotalViews = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, apierr.Database(err)
	}
	return &report, nil
}

// PerCategory counts books and tutorials filed under each category. The
// per-category pairs are independent, so they run concurrently.
func (s *analyticsService) PerCategory(ctx context.Context) ([]CategoryUsage, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, apierr.Database(err)
	}

	usage := make([]CategoryUsage, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		g.Go(func() error {
			books, err := s.books.CountByCategory(gctx, category.ID)
			if err != nil {
				return err
			}
			tutorials, err := s.tutorials.CountByCategory(gctx, category.ID)
			if err != nil {
				return err
			}
			usage[i] = CategoryUsage{
				CategoryID: category.ID,
				Name:       category.Name,
				Slug:       category.Slug,
				Books:      books,
				Tutorials:  tutorials,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apierr.Database(err)
	}
	return usage, nil
}

func (s *analyticsService) TopContent(ctx context.Context, limit int) (*TopContentReport, error) {
	if limit <= 0 {
		limit = 10
	}
	report := &TopContentReport{
		TopDownloadedBooks: []TopItem{},
		TopViewedTutorials: []TopItem{},
	}

	bookCounts, err := s.activity.TopContent(ctx, types.ContentTypeBook, types.ActivityDownload, limit)
	if err != nil {
		return nil, apierr.Database(err)
	}
	for _, row := range bookCounts {
		item := TopItem{ContentID: row.ContentID, Count: row.Count}
		if book, err := s.books.GetByID(ctx, row.ContentID); err == nil {
			item.Title = book.Title
		}
		report.TopDownloadedBooks = append(report.TopDownloadedBooks, item)
	}

	tutorialCounts, err := s.activity.TopContent(ctx, types.ContentTypeTutorial, types.ActivityView, limit)
	if err != nil {
		return nil, apierr.Database(err)
	}
	for _, row := range tutorialCounts {
		item := TopItem{ContentID: row.ContentID, Count: row.Count}
		if tutorial, err := s.tutorials.GetByID(ctx, row.ContentID); err == nil {
			item.Title = tutorial.Title
		}
		report.TopViewedTutorials = append(report.TopViewedTutorials, item)
	}

	return report, nil
}
