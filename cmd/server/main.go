package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/trades-marketplace/internal/config"
	"github.com/ignatzorin/trades-marketplace/internal/db"
	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/http/middleware"
	httpRouter "github.com/ignatzorin/trades-marketplace/internal/http/router"
	"github.com/ignatzorin/trades-marketplace/internal/infrastructure/cache"
	"github.com/ignatzorin/trades-marketplace/internal/infrastructure/messaging"
	"github.com/ignatzorin/trades-marketplace/internal/infrastructure/notification"
	"github.com/ignatzorin/trades-marketplace/internal/infrastructure/payments"
	"github.com/ignatzorin/trades-marketplace/internal/infrastructure/persistence"
	"github.com/ignatzorin/trades-marketplace/internal/infrastructure/persistence/dynamo"
	"github.com/ignatzorin/trades-marketplace/internal/interface/http/handler"
	"github.com/ignatzorin/trades-marketplace/internal/logger"
	"github.com/ignatzorin/trades-marketplace/internal/service"
	"github.com/ignatzorin/trades-marketplace/internal/usecase/checkout"
	"github.com/ignatzorin/trades-marketplace/internal/usecase/job"
	"github.com/ignatzorin/trades-marketplace/internal/usecase/quote"
	"github.com/ignatzorin/trades-marketplace/internal/usecase/webhook"
	"github.com/ignatzorin/trades-marketplace/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if !cfg.IsProduction() {
		logger.SetTextFormatter()
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.PoolConfig{})
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrationsDir(ctx, dbConn, cfg.MigrationsPath); err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}

	healthChecks := map[string]handler.HealthCheck{
		"database": dbConn.PingContext,
	}

	// Redis: идемпотентность checkout и лимиты запросов. Без Redis работаем на памяти одного инстанса.
	var redisClient *redis.Client
	var idempotency repository.IdempotencyStore
	if cfg.Redis.URL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Log.Fatalf("main: %v", err)
		}
		defer redisClient.Close()
		idempotency = cache.NewRedisStore(redisClient)
		healthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		logger.Log.Warn("main: REDIS_URL не задан, ключи идемпотентности хранятся в памяти процесса")
		idempotency = cache.NewMemoryStore(ctx)
	}

	limiterStore, err := middleware.NewRateLimitStore(redisClient)
	if err != nil {
		logger.Log.Fatalf("main: %v", err)
	}

	// Платёжный шлюз.
	var gateway repository.PaymentGateway
	if cfg.Payments.Mock {
		logger.Log.Warn("main: используется mock платёжного шлюза")
		gateway = payments.NewMockGateway(cfg.Payments.PublicBaseURL)
	} else {
		gateway, err = payments.NewStripeGateway(payments.StripeConfig{
			SecretKey:  cfg.Payments.SecretKey,
			SuccessURL: cfg.Payments.SuccessURL,
			CancelURL:  cfg.Payments.CancelURL,
			Timeout:    cfg.Payments.Timeout,
			APIURL:     cfg.Payments.APIURL,
		})
		if err != nil {
			logger.Log.Fatalf("main: не удалось создать клиент платёжного шлюза: %v", err)
		}
	}
	verifier := payments.NewStripeWebhookVerifier(cfg.Payments.WebhookSecret, cfg.Payments.WebhookMaxAge)

	// Журнал событий провайдера.
	var events repository.PaymentEventRepository
	switch cfg.Ledger.Backend {
	case config.LedgerBackendDynamo:
		ddb, err := dynamo.NewClient(ctx, dynamo.ClientConfig{
			Region:          cfg.Ledger.DynamoRegion,
			Endpoint:        cfg.Ledger.DynamoEndpoint,
			AccessKeyID:     cfg.Ledger.AccessKeyID,
			SecretAccessKey: cfg.Ledger.SecretAccessKey,
		})
		if err != nil {
			logger.Log.Fatalf("main: %v", err)
		}
		events = dynamo.NewPaymentEventLedger(ddb, cfg.Ledger.DynamoTable)
	default:
		events = persistence.NewPaymentEventRepositoryAdapter(dbConn)
	}

	// Уведомления: WebSocket и, если настроен, брокер.
	hub := ws.NewHub()
	go hub.Run(ctx)

	var notifier *notification.Fanout
	if cfg.AMQP.URL != "" {
		publisher, err := messaging.Dial(messaging.Config{URL: cfg.AMQP.URL, Exchange: cfg.AMQP.Exchange})
		if err != nil {
			logger.Log.Fatalf("main: %v", err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Log.WithError(err).Warn("main: ошибка закрытия соединения с брокером")
			}
		}()
		notifier = notification.NewFanout(hub, publisher)
	} else {
		notifier = notification.NewFanout(hub, nil)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret)

	// Репозитории.
	jobRepo := persistence.NewJobRepositoryAdapter(dbConn)
	quoteRepo := persistence.NewQuoteRepositoryAdapter(dbConn)
	tradespersonRepo := persistence.NewTradespersonRepositoryAdapter(dbConn)

	// Use cases.
	paymentState := job.NewPaymentStateUseCase(jobRepo, quoteRepo, notifier)

	jobHandler := handler.NewJobHandler(
		job.NewCreateJobUseCase(jobRepo),
		job.NewGetJobUseCase(jobRepo),
		job.NewListMyJobsUseCase(jobRepo),
		job.NewAcceptQuoteUseCase(jobRepo, quoteRepo, notifier),
		job.NewCancelJobUseCase(jobRepo),
		job.NewStartWorkUseCase(jobRepo),
		job.NewCompleteJobUseCase(jobRepo, gateway),
	)
	quoteHandler := handler.NewQuoteHandler(
		quote.NewSubmitQuoteUseCase(quoteRepo, jobRepo, tradespersonRepo, cfg.TierPolicy, notifier),
		quote.NewGetQuotaUseCase(quoteRepo, tradespersonRepo, cfg.TierPolicy),
		quote.NewWithdrawQuoteUseCase(quoteRepo),
		quote.NewRejectQuoteUseCase(quoteRepo, jobRepo),
		quote.NewListJobQuotesUseCase(quoteRepo, jobRepo),
		quote.NewListMyQuotesUseCase(quoteRepo),
	)
	checkoutHandler := handler.NewCheckoutHandler(checkout.NewCreateCheckoutUseCase(
		jobRepo, quoteRepo, tradespersonRepo, gateway, idempotency,
		checkout.Settings{
			Currency:       cfg.Payments.Currency,
			FeeBasisPoints: cfg.Payments.FeeBasisPoints,
			IdempotencyTTL: cfg.Payments.IdempotencyTTL,
		},
	))
	webhookHandler := handler.NewWebhookHandler(webhook.NewProcessEventUseCase(verifier, events, gateway, quoteRepo, paymentState))

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Job:      jobHandler,
		Quote:    quoteHandler,
		Checkout: checkoutHandler,
		Webhook:  webhookHandler,
		Health:   handler.NewHealthHandler(healthChecks),
		WS:       handler.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
	}, tokenManager, limiterStore)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	}()

	logger.Log.WithField("port", cfg.HTTPPort).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Log.WithError(err).Error("main: ошибка закрытия базы")
	}
}
