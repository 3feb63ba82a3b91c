package handlers

import (
	"net/http"

	"github.com/pringgosatmoko/Creativestudio/pkg/middleware"
)

// Heartbeat marks the authenticated member as online. The dashboard calls
// this on a fixed interval while a session is open.
func Heartbeat(c middleware.Context) {
	email := c.GetString("email")

	if err := store.Touch(c.Request.Context(), email); err != nil {
		logger.WithField("email", email).WithField("error", err.Error()).Error("Failed to record heartbeat")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Failed to record heartbeat"})
		return
	}
	c.JSON(http.StatusOK, middleware.H{"status": "ok"})
}

// ListMembers returns every member with balance and presence. Admin only.
func ListMembers(c middleware.Context) {
	members, err := store.Members(c.Request.Context())
	if err != nil {
		logger.WithField("error", err.Error()).Error("Failed to list members")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Failed to list members"})
		return
	}

	online := 0
	for _, m := range members {
		if m.Online {
			online++
		}
	}
	c.JSON(http.StatusOK, middleware.H{"members": members, "online": online})
}
