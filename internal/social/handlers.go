package social

import (
	"errors"
	"strconv"

	"backend-runmate/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/selfies", authMiddleware, func(c *fiber.Ctx) error {
		var req Selfie
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.UserID == "" || req.PhotoURL == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id and photo_url required")
		}
		if !geo.ValidCoordinate(req.Lat, req.Lng) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid location")
		}
		selfie, err := svc.CreateSelfie(c.Context(), req)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(selfie)
	})

	r.Post("/selfies/:id/reactions", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			UserID string `json:"user_id"`
			Kind   string `json:"kind"`
		}
		if err := c.BodyParser(&body); err != nil || body.UserID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id and kind required")
		}
		reaction, err := svc.React(c.Context(), c.Params("id"), body.UserID, body.Kind)
		if errors.Is(err, ErrInvalidReaction) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(reaction)
	})

	r.Delete("/selfies/:id/reactions/:userID", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Unreact(c.Context(), c.Params("id"), c.Params("userID")); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/selfies/nearby", func(c *fiber.Ctx) error {
		lat, _ := strconv.ParseFloat(c.Query("lat"), 64)
		lng, _ := strconv.ParseFloat(c.Query("lng"), 64)
		radius, _ := strconv.ParseFloat(c.Query("radius_km"), 64)
		if radius <= 0 {
			radius = 5
		}
		if !geo.ValidCoordinate(lat, lng) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid location")
		}
		selfies, err := svc.Nearby(c.Context(), lat, lng, radius)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(selfies)
	})

	r.Post("/friends", authMiddleware, func(c *fiber.Ctx) error {
		var req Friend
		if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.FriendID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id and friend_id required")
		}
		err := svc.AddFriend(c.Context(), req.UserID, req.FriendID)
		if errors.Is(err, ErrSelfFriend) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	r.Delete("/friends/:userID/:friendID", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.RemoveFriend(c.Context(), c.Params("userID"), c.Params("friendID")); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/friends/:userID", authMiddleware, func(c *fiber.Ctx) error {
		friends, err := svc.Friends(c.Context(), c.Params("userID"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(friends)
	})

	r.Get("/feed", authMiddleware, func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		if userID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		feed, err := svc.Feed(c.Context(), userID, c.QueryInt("limit", 20))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(feed)
	})
}
