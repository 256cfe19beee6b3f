package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/eventsdb/internal/types"
)

// AllowedHosts refuses requests whose Host header matches none of hosts.
// "*" matches any host and an entry starting with a dot matches the domain
// and all its subdomains.
func AllowedHosts(hosts []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		host := c.Hostname()
		if HostAllowed(host, hosts) {
			return c.Next()
		}
		return types.NewCustomError(fiber.StatusBadRequest,
			fmt.Sprintf("Invalid HTTP_HOST header: %q", host), types.ErrorTypeHost)
	}
}

// HostAllowed matches host, with or without a port, against patterns
func HostAllowed(host string, patterns []string) bool {
	host = strings.ToLower(strings.TrimSuffix(stripPort(host), "."))
	if host == "" {
		return false
	}
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		switch {
		case pattern == "*":
			return true
		case strings.HasPrefix(pattern, "."):
			if host == pattern[1:] || strings.HasSuffix(host, pattern) {
				return true
			}
		case host == pattern:
			return true
		}
	}
	return false
}

func stripPort(host string) string {
	if strings.HasPrefix(host, "[") {
		if end := strings.Index(host, "]"); end > 0 {
			return host[1:end]
		}
		return host
	}
	if i := strings.LastIndex(host, ":"); i >= 0 && strings.Count(host, ":") == 1 {
		return host[:i]
	}
	return host
}
