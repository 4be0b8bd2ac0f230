package territory

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/", func(c *fiber.Ctx) error {
		minLon, err1 := strconv.ParseFloat(c.Query("min_lon"), 64)
		minLat, err2 := strconv.ParseFloat(c.Query("min_lat"), 64)
		maxLon, err3 := strconv.ParseFloat(c.Query("max_lon"), 64)
		maxLat, err4 := strconv.ParseFloat(c.Query("max_lat"), 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return fiber.NewError(fiber.StatusBadRequest, "min_lon, min_lat, max_lon, max_lat required")
		}
		territories, err := svc.InViewport(c.Context(), minLon, minLat, maxLon, maxLat)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(territories)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		terr, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "territory not found")
		}
		return c.JSON(terr)
	})

	r.Get("/:id/attempts", func(c *fiber.Ctx) error {
		attempts, err := svc.Attempts(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(attempts)
	})
}
