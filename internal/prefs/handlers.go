package prefs

import (
	"errors"
	"regexp"

	"github.com/gofiber/fiber/v2"
)

var validKey = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

func RegisterRoutes(r fiber.Router, store Store, authMiddleware fiber.Handler) {
	r.Get("/:userID/onboarding", authMiddleware, func(c *fiber.Ctx) error {
		seen, err := OnboardingSeen(c.Context(), store, c.Params("userID"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"seen": seen})
	})

	r.Post("/:userID/onboarding", authMiddleware, func(c *fiber.Ctx) error {
		if err := MarkOnboardingSeen(c.Context(), store, c.Params("userID")); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/:userID", authMiddleware, func(c *fiber.Ctx) error {
		all, err := store.All(c.Context(), c.Params("userID"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(all)
	})

	r.Get("/:userID/:key", authMiddleware, func(c *fiber.Ctx) error {
		key := c.Params("key")
		if !validKey.MatchString(key) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid key")
		}
		v, err := store.Get(c.Context(), c.Params("userID"), key)
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"key": key, "value": v})
	})

	r.Put("/:userID/:key", authMiddleware, func(c *fiber.Ctx) error {
		key := c.Params("key")
		if !validKey.MatchString(key) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid key")
		}
		var body struct {
			Value string `json:"value"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := store.Set(c.Context(), c.Params("userID"), key, body.Value); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Delete("/:userID/:key", authMiddleware, func(c *fiber.Ctx) error {
		if err := store.Delete(c.Context(), c.Params("userID"), c.Params("key")); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
