package middleware

import (
	"strings"
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var (
	promMu        sync.Mutex
	promInstances = map[string]*fiberprometheus.FiberPrometheus{}
)

// InitMetrics returns the HTTP request collectors for serviceName. Collectors
// live in the default registry, so one instance per name is shared by every
// server built in the process.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promMu.Lock()
	defer promMu.Unlock()
	if prom, ok := promInstances[serviceName]; ok {
		return prom
	}
	prom := fiberprometheus.New(serviceName)
	promInstances[serviceName] = prom
	return prom
}

// MetricsMiddleware records request metrics, skipping the scrape and probe endpoints.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	handler := prom.Middleware
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/metrics" || strings.HasPrefix(path, "/health") {
			return c.Next()
		}
		return handler(c)
	}
}
