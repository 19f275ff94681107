// handlers/progression_routes.go
package handlers

import (
	"strings"

	"daily-quest-service/services"

	"github.com/gofiber/fiber/v2"
)

// SetupProgressionRoutes registers the admin XP grant. Users earn XP only by
// completing their daily tasks.
func SetupProgressionRoutes(admin fiber.Router, svc Services) {
	admin.Post("/xp/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			XP     int64  `json:"xp"`
			Reason string `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.XP < 1 || len(req.Reason) > 255 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "xp must be at least 1 and reason at most 255 characters",
			})
		}

		target, err := services.NewSession(req.UserID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user_id is required",
			})
		}

		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			reason = "admin_grant"
		}

		res, err := svc.Leveling.ApplyXPGain(c.UserContext(), target, req.XP, reason)
		if err != nil {
			return respondError(c, err, "XP award failed")
		}

		return c.JSON(fiber.Map{
			"message": "XP granted successfully",
			"user_id": target.UserID,
			"xp":      req.XP,
			"result":  res,
		})
	})
}
