// handlers/routes.go
package handlers

import (
	"context"
	"errors"
	"time"

	"daily-quest-service/middleware"
	"daily-quest-service/services"

	"github.com/gofiber/fiber/v2"
)

// Services bundles what the HTTP routes call into.
type Services struct {
	Profiles *services.ProfileService
	Leveling *services.LevelingService
	Tasks    *services.TaskService
	Seeder   *services.DailyTaskSeeder
	Now      func() time.Time
}

func (s Services) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Setup registers every gateway-authenticated route. The gateway middleware
// itself is installed by the caller.
func Setup(app *fiber.App, svc Services) {
	app.Get("/today", today(svc))

	// The gateway forwards /api/v1/quest/user/... -> /user/...
	user := app.Group("/user", middleware.UserContextMiddleware())
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	SetupProfileRoutes(user, svc)
	SetupProgressionRoutes(admin, svc)
	SetupTaskRoutes(user, admin, svc)
}

func sessionOf(c *fiber.Ctx) (services.Session, error) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		return services.Session{}, services.ErrNoSession
	}
	return sess, nil
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *fiber.Ctx, err error, msg string) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrProfileNotFound), errors.Is(err, services.ErrTaskNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidAmount):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrNoSession):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrStoreUnavailable):
		status = fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = fiber.StatusGatewayTimeout
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}
