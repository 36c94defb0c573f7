package services

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/openshelf/openshelf-backend/internal/platform/apierr"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type fakeAvatars struct {
	path  string
	calls int
}

func (f *fakeAvatars) GenerateUserAvatar(_ *types.User) (string, error) {
	f.calls++
	return f.path, nil
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(logger.NewNop(), repo, nil)

	user, err := svc.Create(context.Background(), UserInput{
		Username: strptr("reader"),
		Email:    strptr("Reader@Example.com"),
		Password: strptr("sekret"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.Email != "reader@example.com" {
		t.Fatalf("email should be lowercased, got %q", user.Email)
	}
	if user.PasswordHash == "sekret" || user.PasswordHash == "" {
		t.Fatalf("password must be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("sekret")); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
	if !user.IsActive {
		t.Fatalf("new users start active")
	}
}

func TestCreateUserAssignsDefaultRole(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(logger.NewNop(), repo, nil)

	user, err := svc.Create(context.Background(), UserInput{
		Username: strptr("reader"),
		Email:    strptr("reader@example.com"),
		Password: strptr("sekret"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !user.HasRole(types.RoleUser) {
		t.Fatalf("default role missing: %+v", user.Roles)
	}
}

func TestCreateUserGeneratesAvatar(t *testing.T) {
	repo := newFakeUserRepo()
	avatars := &fakeAvatars{path: "/uploads/avatar_1.png"}
	svc := NewUserService(logger.NewNop(), repo, avatars)

	if _, err := svc.Create(context.Background(), UserInput{
		Username: strptr("reader"),
		Email:    strptr("reader@example.com"),
		Password: strptr("sekret"),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if avatars.calls != 1 {
		t.Fatalf("avatar generation calls: want=1 got=%d", avatars.calls)
	}
}

func TestCreateUserRequiredFields(t *testing.T) {
	svc := NewUserService(logger.NewNop(), newFakeUserRepo(), nil)
	cases := []UserInput{
		{Email: strptr("a@b.c"), Password: strptr("p")},
		{Username: strptr("u"), Password: strptr("p")},
		{Username: strptr("u"), Email: strptr("a@b.c")},
	}
	for i, input := range cases {
		if _, err := svc.Create(context.Background(), input); !apierr.IsCode(err, "validation_error") {
			t.Fatalf("case %d: want validation_error, got %v", i, err)
		}
	}
}

func TestGetUserNotFound(t *testing.T) {
	svc := NewUserService(logger.NewNop(), newFakeUserRepo(), nil)
	if _, err := svc.Get(context.Background(), 9); !apierr.IsCode(err, "not_found") {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestAssignRoleRequiresName(t *testing.T) {
	svc := NewUserService(logger.NewNop(), newFakeUserRepo(), nil)
	if _, err := svc.AssignRole(context.Background(), 1, ""); !apierr.IsCode(err, "validation_error") {
		t.Fatalf("want validation_error, got %v", err)
	}
}
