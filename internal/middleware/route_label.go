package middleware

import "github.com/gin-gonic/gin"

const unmatchedRoute = "unmatched"

// routeLabel is the matched route template, e.g. /api/v1/courses/:id.
// Unmatched paths share one label so raw URLs never become label values.
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}
