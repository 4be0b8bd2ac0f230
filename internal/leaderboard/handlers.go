package leaderboard

import (
	"github.com/gofiber/fiber/v2"
)

const defaultLimit = 20

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", defaultLimit)
		if limit < 1 || limit > 100 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 100")
		}
		entries, err := svc.Top(c.Context(), limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(entries)
	})
}
