package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/affiliateboard/backend/internal/auth"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/util"
)

// AdminLoginPage is where unauthenticated admin page requests are sent
const AdminLoginPage = "/admin/login"

// adminPublicPaths are reachable under the admin prefixes without a session
var adminPublicPaths = map[string]bool{
	AdminLoginPage:       true,
	"/api/admin/login":   true,
	"/api/admin/logout":  true,
	"/api/admin/session": true,
}

// IsAdminPath reports whether path is behind the admin gate
func IsAdminPath(path string) bool {
	if adminPublicPaths[path] {
		return false
	}
	return path == "/admin" || strings.HasPrefix(path, "/admin/") ||
		path == "/api/admin" || strings.HasPrefix(path, "/api/admin/")
}

// AdminToken returns the session token from the admin cookie, or from an
// "Authorization: Bearer" header for API clients.
func AdminToken(c *gin.Context, cookieName string) string {
	if token, err := c.Cookie(cookieName); err == nil && token != "" {
		return token
	}
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// AdminGate guards the admin pages and API. It runs on every request and only
// acts on admin paths: page requests without a valid session are redirected to
// the login page, API requests get 401.
func AdminGate(authenticator auth.AdminAuthenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !IsAdminPath(path) {
			c.Next()
			return
		}

		claims, err := authenticator.VerifyToken(AdminToken(c, cookieName))
		if err != nil {
			logger.Log.Debug("Admin gate rejected request",
				zap.String("path", path),
				logger.WithIP(c.ClientIP()),
				zap.Error(err),
			)
			if strings.HasPrefix(path, "/api/") {
				util.RespondUnauthorized(c)
				return
			}
			c.Redirect(http.StatusFound, AdminLoginPage+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}

		c.Set(util.ContextKeyAdmin, claims.Subject)
		c.Next()
	}
}
