package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/zanzhit/voicetribe/internal/clients/ai"
	"github.com/zanzhit/voicetribe/internal/clients/audio"
	"github.com/zanzhit/voicetribe/internal/clients/mailer"
	"github.com/zanzhit/voicetribe/internal/config"
	authhandler "github.com/zanzhit/voicetribe/internal/http-server/handlers/auth"
	filehandler "github.com/zanzhit/voicetribe/internal/http-server/handlers/files"
	recordinghandler "github.com/zanzhit/voicetribe/internal/http-server/handlers/recordings"
	sharehandler "github.com/zanzhit/voicetribe/internal/http-server/handlers/shares"
	authmiddleware "github.com/zanzhit/voicetribe/internal/http-server/middleware/auth"
	"github.com/zanzhit/voicetribe/internal/http-server/middleware/logger"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
	authservice "github.com/zanzhit/voicetribe/internal/services/auth"
	recordingservice "github.com/zanzhit/voicetribe/internal/services/recordings"
	sharingservice "github.com/zanzhit/voicetribe/internal/services/sharing"
	summaryservice "github.com/zanzhit/voicetribe/internal/services/summary"
	transcriptionservice "github.com/zanzhit/voicetribe/internal/services/transcription"
	uploadservice "github.com/zanzhit/voicetribe/internal/services/upload"
	localstore "github.com/zanzhit/voicetribe/internal/storage/objects/local"
	s3store "github.com/zanzhit/voicetribe/internal/storage/objects/s3"
	"github.com/zanzhit/voicetribe/internal/storage/postgres"
	authstorage "github.com/zanzhit/voicetribe/internal/storage/postgres/auth"
	recordingstorage "github.com/zanzhit/voicetribe/internal/storage/postgres/recordings"
	sharestorage "github.com/zanzhit/voicetribe/internal/storage/postgres/shares"
	usagestorage "github.com/zanzhit/voicetribe/internal/storage/postgres/usage"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env, cfg.LogFile)

	log.Info("starting application", slog.String("env", cfg.Env), slog.String("address", cfg.HTTPServer.Address))

	if cfg.DB.Password == "" {
		panic("POSTGRES_PASSWORD is required")
	}
	if cfg.Secret == "" {
		panic("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := postgres.New(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer storage.Close()

	objects, files, err := setupObjectStore(ctx, log, cfg.Storage)
	if err != nil {
		panic(err)
	}

	sender, err := setupMailSender(ctx, cfg.Mail)
	if err != nil {
		panic(err)
	}

	authStorage := authstorage.New(storage)
	recordingStorage := recordingstorage.New(storage)
	shareStorage := sharestorage.New(storage)
	usageStorage := usagestorage.New(storage)

	aiClient := ai.New(cfg.OpenAI)

	uploadService := uploadservice.New(log, objects)
	recordingService := recordingservice.New(
		log,
		recordingStorage,
		recordingStorage,
		uploadService,
		aiClient,
		usageStorage,
		cfg.Pipeline.TTSMonthlyLimit,
	)
	transcriptionService := transcriptionservice.New(
		log,
		recordingStorage,
		recordingStorage,
		audio.New(cfg.OpenAI.Timeout),
		aiClient,
		cfg.Pipeline.TranscriptionWorkers,
	)
	summaryService := summaryservice.New(log, aiClient, recordingStorage, transcriptionService)
	sharingService := sharingservice.New(
		log,
		recordingStorage,
		authStorage,
		shareStorage,
		shareStorage,
		mailer.New(sender, cfg.AppURL),
	)
	authService := authservice.New(log, authStorage, authStorage, sharingService, cfg.TokenTTL, cfg.Secret)

	authHandler := authhandler.New(log, authService)
	recordingHandler := recordinghandler.New(
		log,
		recordingService,
		transcriptionService,
		summaryService,
		cfg.HTTPServer.MaxUploadBytes,
	)
	shareHandler := sharehandler.New(log, sharingService)

	router := newRouter(log, cfg.HTTPServer, cfg.Secret, routes{
		auth:       authHandler,
		recordings: recordingHandler,
		shares:     shareHandler,
		files:      files,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.RequestTimeout + cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", sl.Err(err))
			stop()
		}
	}()

	log.Info("server started")

	<-ctx.Done()

	log.Info("stopping server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop server", sl.Err(err))

		return
	}

	log.Info("server stopped")
}

type routes struct {
	auth       *authhandler.AuthHandler
	recordings *recordinghandler.RecordingHandler
	shares     *sharehandler.ShareHandler
	files      *filehandler.FileHandler
}

// newRouter mounts the API. Object keys and tags keep their dots, so the
// router does not strip URL format suffixes.
func newRouter(log *slog.Logger, cfg config.HTTPServer, secret string, h routes) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(logger.New(log))
	router.Use(middleware.Recoverer)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.auth.RegisterNewUser)
		r.Post("/login", h.auth.Login)
	})

	if h.files != nil {
		router.Get("/files/*", h.files.Serve)
	}

	router.Group(func(r chi.Router) {
		r.Use(authmiddleware.JWTAuth(secret))
		r.Use(middleware.Timeout(cfg.RequestTimeout))

		r.Route("/recordings", func(r chi.Router) {
			r.Get("/", h.recordings.List)
			r.Post("/", h.recordings.Create)
			r.Post("/synthesize", h.recordings.Synthesize)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.recordings.Recording)
				r.Patch("/", h.recordings.UpdateField)
				r.Delete("/", h.recordings.Delete)
				r.Post("/tags", h.recordings.AddTag)
				r.Delete("/tags/{tag}", h.recordings.RemoveTag)
				r.Post("/image", h.recordings.AttachImage)
				r.Post("/transcribe", h.recordings.Transcribe)
				r.Post("/summary", h.recordings.SummarizeRecording)
				r.Post("/shares", h.shares.Share)
				r.Get("/shares", h.shares.Shares)
			})
		})

		r.Post("/summaries", h.recordings.Summarize)
		r.Post("/transcriptions/pending", h.recordings.TranscribePending)
		r.Delete("/shares/{id}", h.shares.Revoke)
	})

	return router
}

func setupObjectStore(ctx context.Context, log *slog.Logger, cfg config.Storage) (uploadservice.ObjectStore, *filehandler.FileHandler, error) {
	switch cfg.Backend {
	case "s3":
		if cfg.S3.Private && cfg.S3.PublicBaseURL == "" {
			return nil, nil, errors.New("storage.s3.public_base_url must point at /files for a private bucket")
		}

		store, err := s3store.NewFromConfig(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		if cfg.S3.Private {
			return store, filehandler.NewPresigned(log, store, cfg.S3.PresignTTL), nil
		}

		return store, nil, nil
	case "local", "":
		store, err := localstore.New(cfg.Local.Root, cfg.Local.PublicBaseURL)
		if err != nil {
			return nil, nil, err
		}

		return store, filehandler.NewLocal(log, store), nil
	}

	return nil, nil, errors.New("unknown storage backend: " + cfg.Backend)
}

func setupMailSender(ctx context.Context, cfg config.Mail) (mailer.Sender, error) {
	switch cfg.Provider {
	case "ses":
		return mailer.NewSES(ctx, cfg.SESRegion, cfg.FromName, cfg.From)
	case "sendgrid", "":
		if cfg.SendgridAPIKey == "" {
			return nil, errors.New("SENDGRID_API_KEY is required")
		}

		return mailer.NewSendgrid(cfg.SendgridAPIKey, cfg.FromName, cfg.From), nil
	}

	return nil, errors.New("unknown mail provider: " + cfg.Provider)
}

func setupLogger(env, logFile string) *slog.Logger {
	var out io.Writer = os.Stdout
	if logFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	}

	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
