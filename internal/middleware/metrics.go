package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/inventory-loan-api/internal/service"
)

const unmatchedRoute = "unmatched"

// MetricsOptions controls how requests are labelled.
type MetricsOptions struct {
	// APIPrefix is stripped from route templates so labels survive a version bump.
	APIPrefix string
	// Skip lists route templates that are never observed, typically the scrape endpoint.
	Skip []string
}

// Metrics records one observation per request, labelled by route template
// rather than raw path so item and loan ids do not explode label cardinality.
func Metrics(metricsSvc *service.MetricsService, opts MetricsOptions) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(opts.Skip))
	for _, route := range opts.Skip {
		skip[route] = struct{}{}
	}
	prefix := strings.TrimSuffix(opts.APIPrefix, "/")

	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if _, ok := skip[route]; ok && route != "" {
			return
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, routeLabel(route, prefix), c.Writer.Status(), time.Since(start))
	}
}

func routeLabel(route, prefix string) string {
	if route == "" {
		return unmatchedRoute
	}
	if prefix != "" && strings.HasPrefix(route, prefix+"/") {
		return strings.TrimPrefix(route, prefix)
	}
	return route
}
