package handlers

import (
	"net/http"

	"github.com/pringgosatmoko/Creativestudio/pkg/middleware"
)

// GetKeyAudit reports which credential slots are configured and which one
// is active. Key material itself is never returned. Admin only.
func GetKeyAudit(c middleware.Context) {
	slots := pool.Audit()
	configured := 0
	for _, s := range slots {
		if s.Configured {
			configured++
		}
	}
	c.JSON(http.StatusOK, middleware.H{
		"slots":      slots,
		"configured": configured,
	})
}
