package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/RubachokBoss/edugrader/internal/auth"
	"github.com/RubachokBoss/edugrader/internal/config"
	"github.com/RubachokBoss/edugrader/internal/delivery/httpd"
	"github.com/RubachokBoss/edugrader/internal/metrics"
	"github.com/RubachokBoss/edugrader/internal/repository"
	"github.com/RubachokBoss/edugrader/internal/service"
	"github.com/RubachokBoss/edugrader/internal/service/integration"
	"github.com/RubachokBoss/edugrader/internal/storage"
	"github.com/RubachokBoss/edugrader/pkg/hash"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

type App struct {
	server   *http.Server
	logger   zerolog.Logger
	config   *config.Config
	db       *sql.DB
	notifier integration.Notifier
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		m.RegisterDB(db)
	}

	files, err := newStorage(cfg, log)
	if err != nil {
		return nil, err
	}

	notifier := newNotifier(cfg.RabbitMQ, log)
	if m != nil {
		notifier = m.InstrumentNotifier(notifier)
	}

	// Репозитории
	userRepo := repository.NewUserRepository(db, log)
	courseRepo := repository.NewCourseRepository(db, log)
	enrollmentRepo := repository.NewEnrollmentRepository(db, log)
	assignmentRepo := repository.NewAssignmentRepository(db, log)
	submissionRepo := repository.NewSubmissionRepository(db, log)
	gradeRepo := repository.NewGradeRepository(db, log)
	appealRepo := repository.NewAppealRepository(db, log)
	auditRepo := repository.NewAuditRepository(db, log)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	passwords := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	services := httpd.Services{
		Auth:        service.NewAuthService(userRepo, tokens, passwords, log),
		Courses:     service.NewCourseService(courseRepo, enrollmentRepo, userRepo, auditRepo, log),
		Assignments: service.NewAssignmentService(assignmentRepo, courseRepo, enrollmentRepo, auditRepo, notifier, log),
		Submissions: service.NewSubmissionService(
			submissionRepo,
			assignmentRepo,
			enrollmentRepo,
			auditRepo,
			files,
			storage.NewValidator(cfg.Storage.MaxUploadSize, cfg.Storage.AllowedExtensions),
			hash.NewFileHasher(hash.SHA256),
			notifier,
			log,
		),
		Grades: service.NewGradeService(
			gradeRepo,
			submissionRepo,
			assignmentRepo,
			courseRepo,
			appealRepo,
			auditRepo,
			notifier,
			log,
		),
		Audit: service.NewAuditService(auditRepo, log),
		Users: service.NewUserService(userRepo, log),
	}

	handler := httpd.NewHandler(
		services,
		repository.NewPostgresRepository(db, log),
		httpd.Options{
			DefaultLimit:  cfg.Pagination.DefaultLimit,
			MaxLimit:      cfg.Pagination.MaxLimit,
			MaxUploadSize: cfg.Storage.MaxUploadSize,
		},
		log,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(httpd.RequestLogger(log))
	router.Use(httpd.Recovery(log))
	router.Use(httpd.ClientInfo)
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	if m != nil {
		router.Use(m.Middleware)
		router.Method(http.MethodGet, cfg.Metrics.Path, m.Handler())
	}

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:   server,
		logger:   log,
		config:   cfg,
		db:       db,
		notifier: notifier,
	}, nil
}

func newStorage(cfg *config.Config, log zerolog.Logger) (storage.Storage, error) {
	switch cfg.Storage.Provider {
	case "minio":
		s, err := storage.NewMinIOStorage(storage.MinIOConfig{
			Endpoint:       cfg.MinIO.Endpoint,
			AccessKey:      cfg.MinIO.AccessKey,
			SecretKey:      cfg.MinIO.SecretKey,
			Bucket:         cfg.MinIO.Bucket,
			Region:         cfg.MinIO.Region,
			UseSSL:         cfg.MinIO.UseSSL,
			ConnectTimeout: cfg.MinIO.ConnectTimeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create minio storage: %w", err)
		}
		return s, nil
	default:
		s, err := storage.NewLocalStorage(cfg.Storage.UploadDir, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create local storage: %w", err)
		}
		return s, nil
	}
}

// newNotifier без брокера пишет события в лог, сервис продолжает работать.
func newNotifier(cfg config.RabbitMQConfig, log zerolog.Logger) integration.Notifier {
	if !cfg.Enabled {
		return integration.NewLogNotifier(log)
	}

	notifier, err := integration.NewRabbitMQNotifier(cfg.URL, cfg.Exchange, cfg.BufferSize, cfg.PublishTimeout, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to RabbitMQ, events will only be logged")
		return integration.NewLogNotifier(log)
	}
	return notifier
}

func (a *App) Run() error {
	a.logger.Info().Msgf("Starting edugrader on %s", a.config.Server.Address)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down edugrader...")

	// Сначала перестаём принимать запросы, затем закрываем зависимости
	err := a.server.Shutdown(ctx)

	if a.notifier != nil {
		if closeErr := a.notifier.Close(); closeErr != nil {
			a.logger.Error().Err(closeErr).Msg("Failed to close event notifier")
		}
	}

	if a.db != nil {
		if closeErr := a.db.Close(); closeErr != nil {
			a.logger.Error().Err(closeErr).Msg("Failed to close database connection")
		}
	}

	return err
}
