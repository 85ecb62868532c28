package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"alfredoptarigan/gst-invoice-extractor/internal/config"
	"alfredoptarigan/gst-invoice-extractor/internal/handlers"
	"alfredoptarigan/gst-invoice-extractor/internal/logging"
	"alfredoptarigan/gst-invoice-extractor/internal/repositories"
	"alfredoptarigan/gst-invoice-extractor/internal/services"
)

// multipartOverhead covers boundaries and form fields on top of file bytes.
const multipartOverhead = 1 << 20

func main() {
	cfg := config.Load()
	log := logging.New(os.Stdout, cfg.Log.Format, cfg.Log.Level)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error(ctx, "invalid configuration", "error", err)
		os.Exit(1)
	}
	log.Info(ctx, "config loaded", "env", cfg.Server.Env)

	invoiceRepo, closeRepo, err := initRepository(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialize database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer closeRepo()
	log.Info(ctx, "repository initialized", "driver", cfg.Database.Driver)

	storageService, err := services.NewStorageService(ctx, cfg.Storage)
	if err != nil {
		log.Error(ctx, "failed to initialize storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}

	ocrService, err := services.NewOCRService(cfg.OCR, log)
	if err != nil {
		log.Error(ctx, "failed to initialize OCR", "provider", cfg.OCR.Provider, "error", err)
		os.Exit(1)
	}

	geminiService, err := services.NewGeminiService(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error(ctx, "failed to initialize Gemini", "error", err)
		os.Exit(1)
	}
	log.Info(ctx, "services initialized",
		"storage", cfg.Storage.Driver,
		"ocr", ocrService.Name(),
		"model", cfg.Gemini.Model,
	)

	opts := services.ProcessorOptionsFromConfig(cfg)
	extractor := services.NewInvoiceExtractor(ocrService, geminiService, log)
	processor := services.NewInvoiceProcessor(
		extractor,
		invoiceRepo,
		storageService,
		services.NewPDFParserService(),
		opts,
		log,
	)
	reprocessor := services.NewReprocessor(invoiceRepo, storageService, extractor, opts, log)

	worker := services.NewWorker(
		invoiceRepo,
		reprocessor,
		cfg.Worker.Concurrency,
		cfg.Worker.PollInterval,
		log,
	)
	worker.Start(ctx)

	uploadHandler := handlers.NewUploadHandler(
		processor,
		cfg.Storage.MaxFiles,
		cfg.Storage.MaxFileSize,
		log,
	)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceRepo, storageService, log)
	reprocessHandler := handlers.NewReprocessHandler(invoiceRepo, worker)

	app := fiber.New(fiber.Config{
		AppName:      "GST Invoice Extractor API",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		BodyLimit:    cfg.Storage.MaxFiles*int(cfg.Storage.MaxFileSize) + multipartOverhead,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	if cfg.Storage.Driver == "local" {
		app.Static("/files", cfg.Storage.UploadPath)
	}

	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	invoices := api.Group("/invoices")
	invoices.Post("/upload", uploadHandler.HandleUpload)
	invoices.Get("/", invoiceHandler.HandleList)
	invoices.Get("/:id", invoiceHandler.HandleGet)
	invoices.Patch("/:id/reconciliation", invoiceHandler.HandleUpdateReconciliation)
	invoices.Delete("/:id", invoiceHandler.HandleDelete)
	invoices.Post("/:id/reprocess", reprocessHandler.HandleReprocess)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "GST Invoice Extractor API",
			"version": "1.0.0",
			"endpoints": []string{
				"GET /api/v1/health",
				"POST /api/v1/invoices/upload",
				"GET /api/v1/invoices?user_id=",
				"GET /api/v1/invoices/:id",
				"PATCH /api/v1/invoices/:id/reconciliation",
				"DELETE /api/v1/invoices/:id",
				"POST /api/v1/invoices/:id/reprocess",
			},
		})
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info(ctx, "shutting down server")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Error(ctx, "server forced to shutdown", "error", err)
		}
		worker.Stop()
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info(ctx, "server starting", "addr", addr)

	if err := app.Listen(addr); err != nil {
		log.Error(ctx, "failed to start server", "error", err)
		os.Exit(1)
	}
}

func initRepository(ctx context.Context, cfg *config.Config, log logging.Logger) (repositories.InvoiceRepository, func(), error) {
	switch cfg.Database.Driver {
	case "mongo":
		db, err := config.InitMongo(cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				log.Warn(ctx, "failed to disconnect mongodb", "error", err)
			}
		}
		if err := repositories.EnsureMongoIndexes(db); err != nil {
			closeFn()
			return nil, nil, err
		}
		return repositories.NewMongoInvoiceRepository(db), closeFn, nil
	default:
		db, err := config.InitDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return repositories.NewInvoiceRepository(db), closeFn, nil
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
