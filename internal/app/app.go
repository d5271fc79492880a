package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/profdeck/canvas-grader/internal/config"
	"github.com/profdeck/canvas-grader/internal/delivery/httpd"
	"github.com/profdeck/canvas-grader/internal/repository"
	"github.com/profdeck/canvas-grader/internal/service/canvas"
	"github.com/profdeck/canvas-grader/internal/service/extract"
	"github.com/profdeck/canvas-grader/internal/service/grading"
	"github.com/profdeck/canvas-grader/internal/service/notify"
	"github.com/profdeck/canvas-grader/internal/service/oracle"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

type App struct {
	server    *http.Server
	logger    zerolog.Logger
	config    *config.Config
	db        *sql.DB
	publisher notify.EventPublisher
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	canvasClient := canvas.NewClient(
		cfg.Canvas.BaseURL,
		cfg.Canvas.Token,
		cfg.Canvas.RequestTimeout,
		cfg.Canvas.DownloadTimeout,
		cfg.Canvas.RetryCount,
		cfg.Canvas.RetryDelay,
		log,
	)

	scorer := oracle.NewScorer(
		cfg.Oracle.Command,
		cfg.Oracle.Model,
		cfg.Oracle.ScoreTimeout,
		cfg.Oracle.MaxAttempts,
		log,
	)
	vision := oracle.NewVision(
		cfg.Oracle.Command,
		cfg.Oracle.VisionModel,
		cfg.Oracle.VisionTimeout,
		log,
	)

	extractor := extract.NewExtractor(
		canvasClient,
		vision,
		cfg.Grading.MaxAttachmentSize,
		log,
	)

	orchestrator := grading.NewOrchestrator(extractor, scorer, cfg.Grading.MaxWorkers, log)

	if cfg.Storage.Enabled {
		archive, err := repository.NewMinIOArchive(
			cfg.Storage.Endpoint,
			cfg.Storage.AccessKey,
			cfg.Storage.SecretKey,
			cfg.Storage.Bucket,
			cfg.Storage.Region,
			cfg.Storage.UseSSL,
			cfg.Storage.ConnectTimeout,
			log,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create archive storage, continuing without it")
		} else {
			orchestrator.SetArchiver(archive)
		}
	}

	var publisher notify.EventPublisher
	var notifier *notify.Notifier
	if cfg.RabbitMQ.Enabled {
		var err error
		publisher, err = notify.NewRabbitMQPublisher(
			cfg.RabbitMQ.URL,
			cfg.RabbitMQ.Exchange,
			cfg.RabbitMQ.RoutingKey,
			cfg.RabbitMQ.QueueName,
			log,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create RabbitMQ publisher, continuing without notifications")
		} else {
			notifier = notify.NewNotifier(publisher, log)
		}
	}

	var gradeLog repository.GradeLogRepository
	if db != nil {
		gradeLog = repository.NewGradeLogRepository(db, log)
	}

	cache := grading.NewSubmissionCache()
	committer := grading.NewGradeCommitter(canvasClient, cache, func(i, total int, name string) {
		log.Info().Int("current", i).Int("total", total).Str("student", name).Msg("Posting grade")
	}, log)
	session := grading.NewReviewSession(log)

	gradingService := grading.NewService(
		canvasClient,
		orchestrator,
		session,
		committer,
		cache,
		gradeLog,
		notifier,
		log,
	)

	handler := httpd.NewHandler(canvasClient, gradingService, log)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(120 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:    server,
		logger:    log,
		config:    cfg,
		db:        db,
		publisher: publisher,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info().Msgf("Starting canvas grader on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down canvas grader...")

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	return a.server.Shutdown(ctx)
}
