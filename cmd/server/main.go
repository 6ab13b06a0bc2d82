package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/auraflora/shopbot-server-go/internal/ai"
	"github.com/auraflora/shopbot-server-go/internal/catalog"
	"github.com/auraflora/shopbot-server-go/internal/config"
	"github.com/auraflora/shopbot-server-go/internal/database"
	"github.com/auraflora/shopbot-server-go/internal/dedup"
	"github.com/auraflora/shopbot-server-go/internal/handler"
	"github.com/auraflora/shopbot-server-go/internal/jobs"
	"github.com/auraflora/shopbot-server-go/internal/middleware"
	"github.com/auraflora/shopbot-server-go/internal/notify"
	"github.com/auraflora/shopbot-server-go/internal/redis"
	"github.com/auraflora/shopbot-server-go/internal/repository"
	"github.com/auraflora/shopbot-server-go/internal/service"
	"github.com/auraflora/shopbot-server-go/internal/transcribe"
	"github.com/auraflora/shopbot-server-go/internal/whatsapp"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	senderRepo := repository.NewSenderRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)

	var dedupCache dedup.Cache
	var inflight dedup.InflightGuard
	switch cfg.DedupBackend {
	case "redis":
		dedupCache = dedup.NewRedisCache(redisClient, 0)
		inflight = dedup.NewRedisInflightGuard(redisClient, config.InflightTTL)
	default:
		dedupCache = dedup.NewMemoryCache(cfg.DedupCapacity)
		inflight = dedup.NewMemoryInflightGuard()
	}
	log.Info().Str("backend", cfg.DedupBackend).Msg("dedup cache ready")

	waClient := whatsapp.NewClient(
		cfg.WhatsAppToken, cfg.WhatsAppPhoneID,
		whatsapp.WithHTTPClient(&http.Client{Timeout: cfg.SendTimeout()}),
	)
	catalogClient := catalog.NewClient(cfg.WhatsAppToken, cfg.WhatsAppCatalogID)

	aiClient, err := ai.NewClient(cfg.AIAPIKey, cfg.AIModel, ai.WithBaseURL(cfg.AIBaseURL))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build ai client")
	}

	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.FulfillmentURL != "" {
		notifier = notify.NewHTTPNotifier(cfg.FulfillmentURL, cfg.FulfillmentToken)
	}

	var transcriber transcribe.Transcriber = transcribe.Disabled{}
	if cfg.TranscriptionEnabled {
		transcriber = transcribe.NewWhisperTranscriber(cfg.AIAPIKey, cfg.AIBaseURL)
	}

	sessionManager := service.NewSessionManager(senderRepo, sessionRepo, cfg.SessionTTL())
	conversationStore := service.NewConversationStore(db, messageRepo, sessionRepo, cfg.HistoryLimit)
	orderAggregator := service.NewOrderAggregator(sessionRepo, catalogClient, notifier, sessionManager)
	dispatcher := service.NewCommandDispatcher(catalogClient, waClient, orderAggregator, inflight, conversationStore)

	pipeline := service.NewPipeline(service.PipelineParams{
		Dedup:          dedupCache,
		Store:          conversationStore,
		Sessions:       sessionManager,
		Dispatcher:     dispatcher,
		Completer:      aiClient,
		Sender:         waClient,
		Media:          waClient,
		Catalog:        catalogClient,
		Transcriber:    transcriber,
		StaleThreshold: cfg.StaleThreshold(),
		AITimeout:      cfg.AITimeout(),
	})

	webhookHandler := handler.NewWebhookHandler(pipeline, cfg.WebhookVerifyToken)

	rateLimiter := service.NewRateLimiter(redisClient.Client)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	signatureMiddleware := middleware.NewSignatureMiddleware(cfg.WebhookAppSecret)
	webhookRateLimit := middleware.NewIPRateLimitMiddleware(
		rateLimiter, cfg.WebhookRatePerMin, time.Minute, "webhook",
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", webhookHandler.Health)

	r.Route("/whatsapp/webhook", func(r chi.Router) {
		r.Get("/", webhookHandler.Verify)
		r.With(signatureMiddleware.Handler, webhookRateLimit.Handler).
			Post("/", webhookHandler.Receive)
	})

	cleanupJob := jobs.NewCleanupJob(senderRepo, cfg.SessionTTL(), config.IdleSessionJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
