package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openphms/admin-api/internal/config"
	baseHandler "github.com/openphms/admin-api/internal/handler"
	adminHandler "github.com/openphms/admin-api/internal/handler/admin"
	analyticsHandler "github.com/openphms/admin-api/internal/handler/analytics"
	appointmentHandler "github.com/openphms/admin-api/internal/handler/appointment"
	authHandler "github.com/openphms/admin-api/internal/handler/auth"
	extractionHandler "github.com/openphms/admin-api/internal/handler/extraction"
	patientHandler "github.com/openphms/admin-api/internal/handler/patient"
	recordHandler "github.com/openphms/admin-api/internal/handler/record"
	"github.com/openphms/admin-api/internal/middleware"
	"github.com/openphms/admin-api/internal/repository/postgres"
	"github.com/openphms/admin-api/internal/router"
	analyticsService "github.com/openphms/admin-api/internal/service/analytics"
	appointmentService "github.com/openphms/admin-api/internal/service/appointment"
	authService "github.com/openphms/admin-api/internal/service/auth"
	chartService "github.com/openphms/admin-api/internal/service/chart"
	extractionService "github.com/openphms/admin-api/internal/service/extraction"
	patientService "github.com/openphms/admin-api/internal/service/patient"
	recordService "github.com/openphms/admin-api/internal/service/record"
	"github.com/openphms/admin-api/internal/session"
	"github.com/openphms/admin-api/pkg/gemini"
)

func main() {
	bootstrap := flag.Bool("bootstrap", false, "create the first administrator and exit")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()
	redisClient, err := session.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()

	sessions := session.NewManager(redisClient, cfg.Session.Secret, cfg.Session.TTL)

	adminRepo := postgres.NewAdminRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	snapshotRepo := postgres.NewSnapshotRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	statsRepo := postgres.NewStatsRepository(db)

	authSvc := authService.NewService(adminRepo, sessions)

	if *bootstrap {
		runBootstrap(ctx, authSvc)
		return
	}

	var extractor gemini.Extractor
	if cfg.Gemini.Enabled {
		extractor = gemini.NewClient(gemini.Config{
			APIKey:  cfg.Gemini.APIKey,
			BaseURL: cfg.Gemini.BaseURL,
			Model:   cfg.Gemini.Model,
			Timeout: cfg.Gemini.Timeout,
		})
	}

	patientSvc := patientService.NewService(patientRepo)
	recordSvc := recordService.NewService(snapshotRepo, patientRepo)
	chartSvc := chartService.NewService(recordSvc)
	appointmentSvc := appointmentService.NewService(appointmentRepo, patientRepo, adminRepo)
	analyticsSvc := analyticsService.NewService(statsRepo)
	extractionSvc := extractionService.NewService(extractor, recordSvc, patientRepo, extractionService.Config{
		UploadDir:  cfg.Upload.Dir,
		MaxBytes:   cfg.Upload.MaxBytes,
		PendingTTL: cfg.Upload.PendingTTL,
		SweepEvery: cfg.Upload.SweepEvery,
	})

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		baseHandler.NewHandler(db, redisClient),
		router.Config{
			RateLimitRPS:   cfg.RateLimit.RPS,
			RateLimitBurst: cfg.RateLimit.Burst,
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxBodySize:    1 << 20,
			MaxUploadSize:  cfg.Upload.MaxBytes,
			CORSConfig:     middleware.DefaultCORSConfig(),
		},
		adminHandler.NewHandler(authSvc),
		patientHandler.NewHandler(patientSvc),
		recordHandler.NewHandler(recordSvc, chartSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		extractionHandler.NewHandler(extractionSvc),
		analyticsHandler.NewHandler(analyticsSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

// runBootstrap creates the first administrator from PHMS_BOOTSTRAP_*
// environment variables. Meant to run once against an empty admins table.
func runBootstrap(ctx context.Context, authSvc *authService.Service) {
	userID := os.Getenv("PHMS_BOOTSTRAP_USER_ID")
	name := os.Getenv("PHMS_BOOTSTRAP_NAME")
	password := os.Getenv("PHMS_BOOTSTRAP_PASSWORD")
	secret := os.Getenv("PHMS_BOOTSTRAP_SECRET")

	if userID == "" || name == "" || password == "" || secret == "" {
		log.Fatal().Msg("PHMS_BOOTSTRAP_USER_ID, PHMS_BOOTSTRAP_NAME, PHMS_BOOTSTRAP_PASSWORD and PHMS_BOOTSTRAP_SECRET are required")
	}

	admin, err := authSvc.Bootstrap(ctx, userID, name, password, secret)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	log.Info().Str("admin_id", admin.ID.String()).Str("user_id", admin.UserID).Msg("administrator created")
}
