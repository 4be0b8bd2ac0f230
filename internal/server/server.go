package server

import (
	"github.com/PriyaanshPandey/KadamClashBackend/internal/auth"
	"github.com/PriyaanshPandey/KadamClashBackend/internal/config"
	"github.com/PriyaanshPandey/KadamClashBackend/internal/leaderboard"
	"github.com/PriyaanshPandey/KadamClashBackend/internal/run"
	"github.com/PriyaanshPandey/KadamClashBackend/internal/stream"
	"github.com/PriyaanshPandey/KadamClashBackend/internal/territory"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		postgresOK := s.DB != nil && s.DB.Ping(c.Context()) == nil
		redisOK := s.Redis != nil && s.Redis.Ping(c.Context()).Err() == nil
		return c.JSON(fiber.Map{
			"status":   "ok",
			"postgres": postgresOK,
			"redis":    redisOK,
		})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	territorySvc := territory.NewService(s.DB)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	run.RegisterRoutes(s.App.Group("/runs"), run.NewService(territorySvc, s.Stream), jwtMiddleware)
	territory.RegisterRoutes(s.App.Group("/territories"), territorySvc)
	leaderboard.RegisterRoutes(s.App.Group("/leaderboard"), leaderboard.NewService(s.DB, s.Redis))
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
