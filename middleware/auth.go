// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"daily-quest-service/services"

	"github.com/gofiber/fiber/v2"
)

// SessionKey is the fiber Locals key holding the request's services.Session.
const SessionKey = "session"

// UserContextMiddleware builds the session from the identity headers the
// Gateway sets. Requests without X-User-ID are rejected.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := services.NewSession(c.Get("X-User-ID"), splitRoles(c.Get("X-User-Roles"))...)
		if err != nil {
			log.Printf("❌ [USER_CTX] X-User-ID required but missing: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		c.Locals(SessionKey, sess)
		log.Printf("👤 [USER_CTX] UserID=%s, Roles=%v | Path: %s", sess.UserID, sess.Roles, c.Path())
		return c.Next()
	}
}

// RequireRole lets the request through only if the session carries role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := SessionFrom(c)
		if !ok || !sess.HasRole(role) {
			log.Printf("🚫 [USER_CTX] Role %q required for %s", role, c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "insufficient role",
			})
		}
		return c.Next()
	}
}

// SessionFrom returns the session attached by UserContextMiddleware or
// SSEAuthMiddleware.
func SessionFrom(c *fiber.Ctx) (services.Session, bool) {
	sess, ok := c.Locals(SessionKey).(services.Session)
	return sess, ok
}

func splitRoles(raw string) []string {
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		r = strings.TrimSpace(r)
		if r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
