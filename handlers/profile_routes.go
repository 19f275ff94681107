// handlers/profile_routes.go
package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"daily-quest-service/middleware"
	"daily-quest-service/services"
	"daily-quest-service/utils"

	"github.com/gofiber/fiber/v2"
)

const streamKeepAlive = 15 * time.Second

func SetupProfileRoutes(user fiber.Router, svc Services) {
	user.Get("/profile", func(c *fiber.Ctx) error {
		sess, err := sessionOf(c)
		if err != nil {
			return respondError(c, err, "no session")
		}

		p, err := svc.Profiles.EnsureProfile(c.UserContext(), sess)
		if err != nil {
			return respondError(c, err, "failed to load profile")
		}
		return c.JSON(services.NewProfileView(*p))
	})
}

// SetupStreamRoutes registers the live profile stream. EventSource clients
// authenticate with query params, so this must be registered before the
// gateway header check.
func SetupStreamRoutes(app *fiber.App, profiles *services.ProfileService, gatewayToken string) {
	app.Get("/user/profile/stream", middleware.SSEAuthMiddleware(gatewayToken), streamProfile(profiles))
}

func streamProfile(profiles *services.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := sessionOf(c)
		if err != nil {
			return respondError(c, err, "no session")
		}

		if _, err := profiles.EnsureProfile(c.UserContext(), sess); err != nil {
			return respondError(c, err, "failed to load profile")
		}

		ctx, cancel := context.WithCancel(context.Background())
		updates, err := profiles.Watch(ctx, sess)
		if err != nil {
			cancel()
			return respondError(c, err, "failed to watch profile")
		}

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		shutdown := c.Context().Done()
		userID := sess.UserID

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer cancel()

			keepAlive := time.NewTicker(streamKeepAlive)
			defer keepAlive.Stop()

			w.WriteString(":\n\n")
			if err := w.Flush(); err != nil {
				return
			}

			for {
				select {
				case p, ok := <-updates:
					if !ok {
						return
					}
					payload, err := json.Marshal(services.NewProfileView(p))
					if err != nil {
						log.Printf("[SSE] Encode error for user %s: %v", userID, err)
						continue
					}
					fmt.Fprintf(w, "event: profile\ndata: %s\n\n", payload)
					if err := w.Flush(); err != nil {
						// Client disconnected
						return
					}

				case <-keepAlive.C:
					w.WriteString(":\n\n")
					if err := w.Flush(); err != nil {
						return
					}

				case <-shutdown:
					return
				}
			}
		})

		return nil
	}
}

func today(svc Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := svc.now()
		return c.JSON(fiber.Map{
			"date":  now.Format("2006-01-02"),
			"label": utils.FormatHeaderDate(now),
		})
	}
}
