// middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"daily-quest-service/services"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware authenticates EventSource clients, which cannot set
// headers, from the `token` and `user_id` query params.
//
// Usage:
//
//	app.Get("/user/profile/stream", middleware.SSEAuthMiddleware(token), handler)
func SSEAuthMiddleware(expectedToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		userID := strings.TrimSpace(c.Query("user_id"))

		if token == "" || userID == "" {
			log.Printf("[SSEAuth] ❌ Missing query params for %s (token len=%d, user_id=%q)", c.Path(), len(token), userID)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or user_id in query",
			})
		}

		if !tokenMatches(token, expectedToken) {
			log.Printf("[SSEAuth] ❌ Invalid token for user %s", userID)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		sess, err := services.NewSession(userID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		c.Locals(SessionKey, sess)

		log.Printf("[SSEAuth] ✅ Authenticated user %s", sess.UserID)
		return c.Next()
	}
}
