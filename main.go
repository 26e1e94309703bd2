package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"yt-segments/config"
	"yt-segments/handlers"
	"yt-segments/llm"
	"yt-segments/logger"
	"yt-segments/repository/sqlite"
	"yt-segments/services/segmentation"
	"yt-segments/services/transcription"
	"yt-segments/services/video"
	"yt-segments/validation"
	"yt-segments/videoproc"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/google/uuid"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.Setup(cfg.LogDir, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	accessLogConfig, err := logger.NewAccessLogConfig(cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to initialize access log: %v", err)
	}

	ctx := context.Background()

	// Initialize database
	db, err := sqlite.Open(ctx, cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize repository
	repo, err := sqlite.NewRepository(db)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}

	// Initialize Gemini client
	geminiClient, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
		APIKey:            cfg.Gemini.APIKey,
		Model:             cfg.Gemini.Model,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
	}, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize Gemini client: %v", err)
	}
	defer geminiClient.Close()

	// Initialize services
	transcriber := transcription.NewService(geminiClient, appLogger)
	segmenter := segmentation.NewService(geminiClient, appLogger)
	acquirer := videoproc.NewYTDLP(transcriber, videoproc.Config{
		TempDir: cfg.TempDir,
	}, appLogger)
	validator := validation.NewValidator()

	videoService := video.NewService(
		repo,
		acquirer,
		segmenter,
		validator,
		video.Config{
			ProcessTimeout: cfg.Video.ProcessTimeout,
		},
		appLogger,
	)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: !cfg.Debug,
		StrictRouting:         true,
		CaseSensitive:         true,
		AppName:               "yt-segments " + cfg.Version,
	})

	// Setup middleware
	setupMiddleware(app, cfg, accessLogConfig)

	// Setup routes
	videoHandler := handlers.NewVideoHandler(videoService)

	// API routes
	app.Post("/api/videos/process", videoHandler.Process)
	// "history" must be registered before the :id route.
	app.Get("/api/videos/history", videoHandler.History)
	app.Get("/api/videos/:id", videoHandler.Get)
	app.Delete("/api/videos/:id", videoHandler.Delete)

	// Health check
	app.Get("/health", handlers.HealthCheck)

	// Static files
	app.Static("/static", cfg.StaticDir)
	app.Static("/", cfg.StaticDir)

	// Graceful shutdown setup
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownChan
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}

		if err := db.Close(); err != nil {
			log.Printf("Database shutdown error: %v", err)
		}
	}()

	// Start server
	serverAddr := ":" + cfg.ServerPort
	if cfg.Debug {
		log.Printf("Server starting on http://localhost%s", serverAddr)
	}

	if err := app.Listen(serverAddr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

func setupMiddleware(app *fiber.App, cfg *config.Config, logConfig *fiberLogger.Config) {
	if cfg.Middleware.EnableRecover {
		app.Use(recover.New(recover.Config{
			EnableStackTrace: cfg.Debug,
		}))
	}

	if cfg.Middleware.EnableRequestID {
		app.Use(requestid.New(requestid.Config{
			Header: "X-Request-ID",
			Generator: func() string {
				return uuid.New().String()
			},
		}))
	}

	if cfg.Middleware.EnableLogger {
		app.Use(fiberLogger.New(*logConfig))
	}

	if cfg.Middleware.EnableTimeout {
		app.Use(timeout.New(func(c *fiber.Ctx) error {
			return c.Next()
		}, cfg.RequestTimeout))
	}

	if cfg.Middleware.EnableCORS {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(cfg.CORS.AllowedOrigins, ","),
			AllowMethods:     strings.Join(cfg.CORS.AllowedMethods, ","),
			AllowHeaders:     strings.Join(cfg.CORS.AllowedHeaders, ","),
			ExposeHeaders:    strings.Join(cfg.CORS.ExposedHeaders, ","),
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		}))
	}

	if cfg.Middleware.EnableRateLimit && cfg.RateLimit.Enabled {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit.RequestsPerMinute,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Rate limit exceeded",
				})
			},
		}))
	}

	if cfg.Middleware.EnableCompress {
		app.Use(compress.New(compress.Config{
			Level: compress.LevelDefault,
		}))
	}

	if cfg.Middleware.EnableETag {
		app.Use(etag.New())
	}

	if cfg.Middleware.EnableDebugMode && cfg.Debug {
		app.Use(func(c *fiber.Ctx) error {
			c.Set("X-Debug-Mode", "true")
			return c.Next()
		})
	}
}
