package run

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/PriyaanshPandey/KadamClashBackend/internal/shared/geom"
	"github.com/PriyaanshPandey/KadamClashBackend/internal/territory"
)

func RegisterRoutes(r fiber.Router, svc *Service, authRequired fiber.Handler) {
	r.Post("/", authRequired, func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(string)
		if !ok || userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "user not authenticated")
		}

		var req SubmitRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		resp, err := svc.Submit(c.Context(), userID, req)
		switch {
		case errors.Is(err, ErrInvalidAttempt),
			errors.Is(err, geom.ErrMalformedPath),
			errors.Is(err, geom.ErrTooSmall):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, territory.ErrTerritoryChanged):
			return fiber.NewError(fiber.StatusConflict, "territories changed during evaluation, retry the run")
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		status := fiber.StatusCreated
		if resp.Defended {
			status = fiber.StatusOK
		}
		return c.Status(status).JSON(resp)
	})
}
