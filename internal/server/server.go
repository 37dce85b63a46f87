package server

import (
	"context"
	"errors"

	"backend-runmate/internal/auth"
	"backend-runmate/internal/config"
	applog "backend-runmate/internal/logger"
	"backend-runmate/internal/prefs"
	"backend-runmate/internal/runs"
	"backend-runmate/internal/social"
	"backend-runmate/internal/storage"
	"backend-runmate/internal/stream"
	"backend-runmate/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Runs   *runs.Registry
	Prefs  prefs.Store
	Logger *zap.Logger
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(log)})
	app.Use(recover.New())
	app.Use(logger.New())

	hub := stream.NewHub(redisClient, applog.Component(log, "stream"))

	// without a database live runs still stream, they are just not persisted
	var recorder runs.Recorder
	if db != nil {
		recorder = tracking.NewService(db)
	}

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: hub,
		Runs: runs.NewRegistry(recorder, hub, runs.Config{
			PaceWindow: cfg.PaceWindow,
			Buffer:     cfg.SnapshotBuffer,
			Tick:       cfg.SnapshotTick,
			RateLimit:  cfg.SampleRateLimit,
			RateBurst:  cfg.SampleRateBurst,
		}, applog.Component(log, "runs")),
		Prefs:  prefs.NewStore(redisClient),
		Logger: log,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	runs.RegisterRoutes(s.App.Group("/runs"), s.Runs, jwtMiddleware)
	tracking.RegisterRoutes(s.App.Group("/tracking"), tracking.NewService(s.DB))
	social.RegisterRoutes(s.App.Group("/social"), social.NewService(s.DB), jwtMiddleware)
	storage.RegisterRoutes(s.App.Group("/storage"), storage.NewService(s.DB, s.Cfg.StorageBaseURL), jwtMiddleware)
	prefs.RegisterRoutes(s.App.Group("/prefs"), s.Prefs, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}

// Shutdown ends every live run, finalizing their sessions, and stops the
// redis relay.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Runs.Shutdown(ctx)
	s.Stream.Close()
	return err
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}
