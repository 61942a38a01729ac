package handlers

import (
	"net/http"

	"github.com/m1z23r/drift/pkg/drift"
)

// Endpoints lists the top-level routes of the service.
func Endpoints(c *drift.Context) {
	_ = c.JSON(http.StatusOK, map[string]string{
		"/user.json": "Notebook project information about the current user",
		"/library":   "Browse, publish or copy published notebook projects",
		"/sharing":   "Share projects with other users",
	})
}
