package runs

import (
	"context"
	"errors"
	"time"

	"backend-runmate/internal/running"
	"backend-runmate/internal/sensor"
	"backend-runmate/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

const pushTimeout = 2 * time.Second

// errorMessages are the user-facing texts shown by the app for each failure.
var errorMessages = map[running.ErrorKind]string{
	running.KindLocationNotAuthorized: "Location access is required to track your run.",
	running.KindMotionNotAuthorized:   "Motion access is required to measure cadence.",
	running.KindSensorUnavailable:     "Location tracking is unavailable on this device.",
	running.KindAlreadyRunning:        "A run is already in progress.",
	running.KindInvalidState:          "That action is not available right now.",
	running.KindRuntime:               "Tracking stopped because of a sensor error.",
}

func RegisterRoutes(r fiber.Router, reg *Registry, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req StartRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.UserID == "" {
			if uid, ok := c.Locals("user_id").(string); ok {
				req.UserID = uid
			}
		}
		if req.UserID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user_id required")
		}
		run, err := reg.Start(c.Context(), req)
		if err != nil {
			return runError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(run.View())
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		run, err := reg.Get(c.Params("id"))
		if err != nil {
			return runError(err)
		}
		return c.JSON(run.View())
	})

	r.Post("/:id/coordinates", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Coordinates []CoordinateInput `json:"coordinates"`
		}
		if err := c.BodyParser(&body); err != nil || len(body.Coordinates) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "coordinates required")
		}
		coords := make([]running.Coordinate, 0, len(body.Coordinates))
		for _, in := range body.Coordinates {
			if !geo.ValidCoordinate(in.Latitude, in.Longitude) || in.PaceSec < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "invalid coordinate")
			}
			coords = append(coords, in.coordinate())
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), pushTimeout)
		defer cancel()
		if err := reg.PushCoordinates(ctx, c.Params("id"), coords); err != nil {
			return runError(err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Post("/:id/motion", authMiddleware, func(c *fiber.Ctx) error {
		var body MotionInput
		if err := c.BodyParser(&body); err != nil || body.Steps < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "steps required")
		}
		if body.CapturedAt.IsZero() {
			body.CapturedAt = time.Now()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), pushTimeout)
		defer cancel()
		sample := running.MotionSample{Steps: body.Steps, CapturedAt: body.CapturedAt}
		if err := reg.PushMotion(ctx, c.Params("id"), sample); err != nil {
			return runError(err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Post("/:id/sensor-error", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Message string `json:"message"`
		}
		if err := c.BodyParser(&body); err != nil || body.Message == "" {
			return fiber.NewError(fiber.StatusBadRequest, "message required")
		}
		run, err := reg.ReportSensorError(c.UserContext(), c.Params("id"), body.Message)
		if err != nil {
			return runError(err)
		}
		return c.JSON(run.View())
	})

	r.Post("/:id/pause", authMiddleware, func(c *fiber.Ctx) error {
		run, err := reg.Pause(c.Params("id"))
		if err != nil {
			return runError(err)
		}
		return c.JSON(run.View())
	})

	r.Post("/:id/resume", authMiddleware, func(c *fiber.Ctx) error {
		run, err := reg.Resume(c.Params("id"))
		if err != nil {
			return runError(err)
		}
		return c.JSON(run.View())
	})

	r.Post("/:id/stop", authMiddleware, func(c *fiber.Ctx) error {
		run, err := reg.Stop(c.UserContext(), c.Params("id"))
		if err != nil {
			return runError(err)
		}
		return c.JSON(run.View())
	})
}

func runError(err error) error {
	switch {
	case errors.Is(err, ErrRunNotFound):
		return fiber.NewError(fiber.StatusNotFound, "run not found")
	case errors.Is(err, ErrRateLimited):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	case errors.Is(err, sensor.ErrNotTracking):
		return fiber.NewError(fiber.StatusConflict, "run is not tracking")
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusServiceUnavailable, "run is not accepting samples")
	}

	kind, ok := running.KindOf(err)
	if !ok {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return fiber.NewError(statusFor(kind), errorMessages[kind])
}

func statusFor(kind running.ErrorKind) int {
	switch kind {
	case running.KindLocationNotAuthorized, running.KindMotionNotAuthorized:
		return fiber.StatusForbidden
	case running.KindSensorUnavailable:
		return fiber.StatusServiceUnavailable
	case running.KindAlreadyRunning, running.KindInvalidState:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
