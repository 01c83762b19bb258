package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/maheshrc27/crosspost/internal/api/handlers"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
	job "github.com/maheshrc27/crosspost/internal/jobs"
	"github.com/maheshrc27/crosspost/internal/queue"
	"github.com/robfig/cron"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the publish worker and the token refresh job",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close()

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("request failed", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(cfg)
	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	handlers.Register(app, api,
		handlers.NewPostHandler(cfg, a.publish, a.posts, a.storage, a.ph, client, a.client),
		handlers.NewPlatformHandler(cfg, a.platform),
	)

	// cron jobs
	c := cron.New()
	if err := job.NewTokenRefreshJob(a.ir, a.creds).Schedule(c); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	// queue
	worker := queue.NewQueue(a.publish, a.client)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency:    cfg.Publish.WorkerConcurrency,
		RetryDelayFunc: queue.RetryDelay(cfg.Publish.RetryDelay),
	})
	go func() {
		slog.Info("starting the publish worker")
		if err := server.Run(worker.Mux()); err != nil {
			slog.Error("could not start asynq server", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info("server is running", "port", cfg.Port)

	return gracefulShutdown(cmd.Context(), app, server)
}

func gracefulShutdown(ctx context.Context, app *fiber.App, server *asynq.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	slog.Info("shutting down server")

	server.Shutdown()
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		slog.Error("failed to shut down server", "error", err)
		return err
	}

	slog.Info("server shutdown complete")
	return nil
}
