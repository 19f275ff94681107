// handlers/task_routes.go
package handlers

import (
	"sort"

	"daily-quest-service/models"
	"daily-quest-service/utils"

	"github.com/gofiber/fiber/v2"
)

type taskView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	XP    int64  `json:"xp"`
	Label string `json:"label"`
}

func newTaskView(t models.DailyTask) taskView {
	return taskView{ID: t.ID, Name: t.Name, XP: t.XP, Label: utils.TaskLabel(t.XP)}
}

func SetupTaskRoutes(user, admin fiber.Router, svc Services) {
	user.Get("/tasks", func(c *fiber.Ctx) error {
		sess, err := sessionOf(c)
		if err != nil {
			return respondError(c, err, "no session")
		}

		tasks, err := svc.Tasks.ListDailyTasks(c.UserContext(), sess)
		if err != nil {
			return respondError(c, err, "failed to list tasks")
		}

		views := make([]taskView, 0, len(tasks))
		for _, t := range tasks {
			views = append(views, newTaskView(t))
		}
		sort.SliceStable(views, func(i, j int) bool {
			return utils.SortKey(views[i].Name) < utils.SortKey(views[j].Name)
		})
		return c.JSON(views)
	})

	user.Post("/tasks/:id/complete", func(c *fiber.Ctx) error {
		sess, err := sessionOf(c)
		if err != nil {
			return respondError(c, err, "no session")
		}

		res, err := svc.Tasks.CompleteTask(c.UserContext(), sess, c.Params("id"))
		if err != nil {
			return respondError(c, err, "failed to complete task")
		}
		return c.JSON(res)
	})

	admin.Post("/tasks/seed", func(c *fiber.Ctx) error {
		n, err := svc.Seeder.SeedAll(c.UserContext())
		if err != nil {
			return respondError(c, err, "daily task seeding failed")
		}
		return c.JSON(fiber.Map{
			"message": "daily tasks seeded",
			"created": n,
		})
	})
}
