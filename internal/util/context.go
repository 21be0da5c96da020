package util

import (
	"github.com/gin-gonic/gin"
)

// Context keys shared by middleware and handlers
const (
	ContextKeyRequestID = "request_id"
	ContextKeyAdmin     = "admin_subject"
	ContextKeyVisitorID = "visitor_id"
)

// GetRequestID returns the request id set by the request-id middleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// GetAdminSubject returns the verified admin subject and whether the request
// carried a valid admin token.
func GetAdminSubject(c *gin.Context) (string, bool) {
	sub := c.GetString(ContextKeyAdmin)
	return sub, sub != ""
}
