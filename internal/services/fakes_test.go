package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/types"
)

// fakeBookRepo is an in-memory stand-in keyed by ID.
type fakeBookRepo struct {
	books  map[int64]*types.Book
	nextID int64

	thumbWrites int
	coverWrites int
	updateCalls []map[string]any

	getErr      error
	setThumbErr error
	setCoverErr error
	createErr   error
	updatesErr  error
}

func newFakeBookRepo(books ...*types.Book) *fakeBookRepo {
	r := &fakeBookRepo{books: map[int64]*types.Book{}, nextID: 1}
	for _, b := range books {
		if b.ID == 0 {
			b.ID = r.nextID
		}
		if b.ID >= r.nextID {
			r.nextID = b.ID + 1
		}
		r.books[b.ID] = b
	}
	return r
}

func (r *fakeBookRepo) Create(_ context.Context, _ *gorm.DB, book *types.Book) (*types.Book, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	book.ID = r.nextID
	r.nextID++
	r.books[book.ID] = book
	return book, nil
}

func (r *fakeBookRepo) GetByID(_ context.Context, id int64) (*types.Book, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	b, ok := r.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return b, nil
}

func (r *fakeBookRepo) List(_ context.Context, categoryID *int64) ([]*types.Book, error) {
	var out []*types.Book
	for _, b := range r.books {
		if categoryID != nil && b.CategoryID != *categoryID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *fakeBookRepo) Updates(_ context.Context, _ *gorm.DB, id int64, updates map[string]any) error {
	if r.updatesErr != nil {
		return r.updatesErr
	}
	if _, ok := r.books[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.updateCalls = append(r.updateCalls, updates)
	return nil
}

func (r *fakeBookRepo) Delete(_ context.Context, _ *gorm.DB, id int64) error {
	if _, ok := r.books[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.books, id)
	return nil
}

func (r *fakeBookRepo) SetCoverPath(_ context.Context, _ *gorm.DB, id int64, coverPath string) error {
	if r.setCoverErr != nil {
		return r.setCoverErr
	}
	b, ok := r.books[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.coverWrites++
	b.CoverImagePath = &coverPath
	return nil
}

func (r *fakeBookRepo) SetThumbnail(_ context.Context, _ *gorm.DB, id int64, content []byte, mime string) error {
	if r.setThumbErr != nil {
		return r.setThumbErr
	}
	b, ok := r.books[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.thumbWrites++
	b.ThumbnailContent = content
	b.ThumbnailMime = &mime
	return nil
}

func (r *fakeBookRepo) CountByCategory(_ context.Context, categoryID int64) (int64, error) {
	var n int64
	for _, b := range r.books {
		if b.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

type fakeCategoryRepo struct {
	categories map[int64]*types.Category
	nextID     int64
	refCount   int64
	deleted    []int64
}

func newFakeCategoryRepo(categories ...*types.Category) *fakeCategoryRepo {
	r := &fakeCategoryRepo{categories: map[int64]*types.Category{}, nextID: 1}
	for _, c := range categories {
		if c.ID == 0 {
			c.ID = r.nextID
		}
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
		r.categories[c.ID] = c
	}
	return r
}

func (r *fakeCategoryRepo) Create(_ context.Context, _ *gorm.DB, category *types.Category) (*types.Category, error) {
	category.ID = r.nextID
	r.nextID++
	r.categories[category.ID] = category
	return category, nil
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, id int64) (*types.Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *fakeCategoryRepo) GetBySlug(_ context.Context, slug string) (*types.Category, error) {
	for _, c := range r.categories {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCategoryRepo) List(_ context.Context) ([]*types.Category, error) {
	var out []*types.Category
	for _, c := range r.categories {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeCategoryRepo) Updates(_ context.Context, _ *gorm.DB, id int64, _ map[string]any) error {
	if _, ok := r.categories[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *fakeCategoryRepo) Delete(_ context.Context, _ *gorm.DB, id int64) error {
	if _, ok := r.categories[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.categories, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeCategoryRepo) ReferenceCount(_ context.Context, _ int64) (int64, error) {
	return r.refCount, nil
}

type fakeTutorialRepo struct {
	tutorials map[int64]*types.Tutorial
	nextID    int64
}

func newFakeTutorialRepo(tutorials ...*types.Tutorial) *fakeTutorialRepo {
	r := &fakeTutorialRepo{tutorials: map[int64]*types.Tutorial{}, nextID: 1}
	for _, tut := range tutorials {
		if tut.ID == 0 {
			tut.ID = r.nextID
		}
		if tut.ID >= r.nextID {
			r.nextID = tut.ID + 1
		}
		r.tutorials[tut.ID] = tut
	}
	return r
}

func (r *fakeTutorialRepo) Create(_ context.Context, _ *gorm.DB, tutorial *types.Tutorial) (*types.Tutorial, error) {
	tutorial.ID = r.nextID
	r.nextID++
	r.tutorials[tutorial.ID] = tutorial
	return tutorial, nil
}

func (r *fakeTutorialRepo) GetByID(_ context.Context, id int64) (*types.Tutorial, error) {
	tut, ok := r.tutorials[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return tut, nil
}

func (r *fakeTutorialRepo) List(_ context.Context, categoryID *int64) ([]*types.Tutorial, error) {
	var out []*types.Tutorial
	for _, tut := range r.tutorials {
		if categoryID != nil && tut.CategoryID != *categoryID {
			continue
		}
		out = append(out, tut)
	}
	return out, nil
}

func (r *fakeTutorialRepo) Updates(_ context.Context, _ *gorm.DB, id int64, _ map[string]any) error {
	if _, ok := r.tutorials[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *fakeTutorialRepo) Delete(_ context.Context, _ *gorm.DB, id int64) error {
	if _, ok := r.tutorials[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.tutorials, id)
	return nil
}

func (r *fakeTutorialRepo) CountByCategory(_ context.Context, categoryID int64) (int64, error) {
	var n int64
	for _, tut := range r.tutorials {
		if tut.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

type fakeUserRepo struct {
	users map[string]*types.User
}

func newFakeUserRepo(users ...*types.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*types.User{}}
	for _, u := range users {
		r.users[u.Email] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, _ *gorm.DB, user *types.User) (*types.User, error) {
	user.ID = int64(len(r.users) + 1)
	r.users[user.Email] = user
	return user, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*types.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*types.User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]*types.User, error) {
	var out []*types.User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepo) Updates(_ context.Context, _ *gorm.DB, _ int64, _ map[string]any) error {
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, _ *gorm.DB, id int64) error {
	for email, u := range r.users {
		if u.ID == id {
			delete(r.users, email)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) TouchLastLogin(_ context.Context, _ int64) error { return nil }

func (r *fakeUserRepo) GetOrCreateRole(_ context.Context, _ *gorm.DB, name string) (*types.Role, error) {
	return &types.Role{ID: 1, Name: name}, nil
}

func (r *fakeUserRepo) AssignRole(_ context.Context, _ *gorm.DB, userID int64, roleName string) error {
	u, err := r.GetByID(context.Background(), userID)
	if err != nil {
		return err
	}
	u.Roles = append(u.Roles, types.Role{Name: roleName})
	return nil
}

func (r *fakeUserRepo) RemoveRole(_ context.Context, _ *gorm.DB, userID int64, roleName string) error {
	u, err := r.GetByID(context.Background(), userID)
	if err != nil {
		return err
	}
	var kept []types.Role
	for _, role := range u.Roles {
		if role.Name != roleName {
			kept = append(kept, role)
		}
	}
	u.Roles = kept
	return nil
}

type fakeActivityRepo struct {
	entries []*types.ActivityLog
	counts  map[int64]int64
}

func (r *fakeActivityRepo) Append(_ context.Context, entry *types.ActivityLog) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeActivityRepo) CountByContent(_ context.Context, _ types.ContentType, contentID int64, _ types.ActivityAction) (int64, error) {
	return r.counts[contentID], nil
}

func (r *fakeActivityRepo) TopContent(_ context.Context, _ types.ContentType, _ types.ActivityAction, _ int) ([]repos.ContentCount, error) {
	return nil, nil
}

func (r *fakeActivityRepo) TotalByAction(_ context.Context, action types.ActivityAction) (int64, error) {
	var n int64
	for _, e := range r.entries {
		if e.Action == action {
			n++
		}
	}
	return n, nil
}

type fakeRatingRepo struct {
	outcome  repos.VoteOutcome
	lastVote int
	lastType types.ContentType
	counts   repos.VoteCounts
	userVote *int
	err      error
}

func (r *fakeRatingRepo) CastVote(_ context.Context, _ int64, contentType types.ContentType, _ int64, vote int) (repos.VoteOutcome, error) {
	if r.err != nil {
		return "", r.err
	}
	r.lastVote = vote
	r.lastType = contentType
	return r.outcome, nil
}

func (r *fakeRatingRepo) CountVotes(_ context.Context, _ types.ContentType, _ int64) (repos.VoteCounts, error) {
	return r.counts, nil
}

func (r *fakeRatingRepo) GetUserVote(_ context.Context, _ int64, _ types.ContentType, _ int64) (*int, error) {
	return r.userVote, nil
}

// fakeStore records presign calls without talking to any backend.
type fakeStore struct {
	presignedKey string
	presignURL   string
	presignErr   error
}

func (s *fakeStore) Put(_ context.Context, key string, _ io.Reader, _ int64, _ string) (string, error) {
	return "s3://test-bucket/" + key, nil
}

func (s *fakeStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	s.presignedKey = key
	return s.presignURL, nil
}

func (s *fakeStore) Remove(_ context.Context, _ string) error { return nil }

func (s *fakeStore) Bucket() string { return "test-bucket" }

// fakeRenderer satisfies rasterize.Renderer without shelling out. renderOut
// is returned as the produced page path; calls are counted so tests can
// assert the conversion was or was not attempted. Like the real renderer,
// the input pdf must exist on disk when rendering starts, and temp files
// land in os.TempDir, so sweep interactions are exercised for real.
type fakeRenderer struct {
	renderOut   string
	renderErr   error
	renderCalls int

	pages    int
	pagesErr error

	tempPath string
	tempErr  error
}

func (f *fakeRenderer) RenderFirstPage(_ context.Context, pdfPath, _, _ string) (string, error) {
	f.renderCalls++
	if f.renderErr != nil {
		return "", f.renderErr
	}
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("input pdf missing: %s", pdfPath)
	}
	return f.renderOut, nil
}

func (f *fakeRenderer) CountPages(_ context.Context, _ string) (int, error) {
	if f.pagesErr != nil {
		return 0, f.pagesErr
	}
	return f.pages, nil
}

func (f *fakeRenderer) WriteTempFile(data []byte, pattern string) (string, func(), error) {
	if f.tempErr != nil {
		return "", func() {}, f.tempErr
	}
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", func() {}, err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", func() {}, err
	}
	if err := tmp.Close(); err != nil {
		return "", func() {}, err
	}
	f.tempPath = tmp.Name()
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}
