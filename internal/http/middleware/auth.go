package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf-backend/internal/http/response"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/types"
)

const (
	// UserEmailHeader is the trust boundary inherited from the admin UI:
	// the caller asserts its identity via this header and no further
	// credential is checked.
	UserEmailHeader = "x-user-email"

	ContextUserKey = "auth_user"
)

type AuthMiddleware struct {
	log   *logger.Logger
	users repos.UserRepo
}

func NewAuthMiddleware(log *logger.Logger, users repos.UserRepo) *AuthMiddleware {
	return &AuthMiddleware{
		log:   log.With("middleware", "Auth"),
		users: users,
	}
}

func (m *AuthMiddleware) lookup(c *gin.Context) *types.User {
	email := strings.ToLower(strings.TrimSpace(c.GetHeader(UserEmailHeader)))
	if email == "" {
		return nil
	}
	user, err := m.users.GetByEmail(c.Request.Context(), email)
	if err != nil {
		return nil
	}
	return user
}

// RequireUser rejects requests without a resolvable, active user.
func (m *AuthMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := m.lookup(c)
		if user == nil || !user.IsActive {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
			c.Abort()
			return
		}
		c.Set(ContextUserKey, user)
		if err := m.users.TouchLastLogin(c.Request.Context(), user.ID); err != nil {
			m.log.Warn("failed to touch last_login", "user_id", user.ID, "error", err)
		}
		c.Next()
	}
}

// RequireAdmin additionally demands the admin role.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := m.lookup(c)
		if user == nil || !user.IsActive {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
			c.Abort()
			return
		}
		if !user.HasRole(types.RoleAdmin) {
			response.RespondError(c, http.StatusForbidden, "forbidden", nil)
			c.Abort()
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user attached by RequireUser/RequireAdmin, if any.
func CurrentUser(c *gin.Context) *types.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*types.User)
	return user
}
