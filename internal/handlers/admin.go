package handlers

import (
	"net/http"

	"github.com/pringgosatmoko/Creativestudio/pkg/middleware"
)

// RequireAdmin aborts requests whose authenticated email is not on the
// admin allow-list.
func RequireAdmin() middleware.HandlerFunc {
	return func(c middleware.Context) {
		email := c.GetString("email")
		if email == "" || !store.IsAdmin(email) {
			c.JSON(http.StatusForbidden, middleware.H{"error": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
