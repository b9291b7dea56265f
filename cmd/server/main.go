package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadgate/internal/config"
	"leadgate/internal/db"
	"leadgate/internal/handlers"
	"leadgate/internal/middleware"
	"leadgate/internal/payments"
	"leadgate/internal/platforms"
	"leadgate/internal/services"
	"leadgate/internal/store"
	"leadgate/internal/websocket"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger, err := newLogger(cfg.AppEnv)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	users := store.NewUserStore(database)
	configs := store.NewImportConfigStore(database)
	leads := store.NewLeadStore(database)
	balances := store.NewBalanceStore(database)
	transactions := store.NewTransactionStore(database)
	notifications := store.NewNotificationStore(database)
	methods := store.NewPaymentMethodStore(database)
	events := store.NewEventLogStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	ledger := services.NewLedgerService(txRunner, balances, transactions, cfg.DefaultRechargeThresholdCents, cfg.DefaultRechargeAmountCents)
	charges := payments.NewStripeClient(cfg.StripeSecretKey)
	recharge := services.NewRechargeService(methods, charges, ledger, cfg.ChargeCurrency, cfg.ChargeTimeout, logger)
	settlement := services.NewSettlementService(configs, leads, ledger, recharge, notifications, hub, logger)
	graph := platforms.NewGraphClient(cfg.GraphAPIBase, cfg.LeadFetchTimeout)

	limiter := middleware.NewRateLimiter(rateLimitStore(cfg, logger), logger)

	handler := handlers.New(txRunner, cfg, logger, users, configs, leads, transactions, notifications, methods, events, balances, ledger, recharge, settlement, graph, limiter, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("lead ingestion API listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("shutdown error", zap.Error(err))
	}
}

func newLogger(appEnv string) (*zap.Logger, error) {
	if appEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// rateLimitStore picks the counter backend: Redis when an address is
// configured (shared across instances), per-process buckets otherwise.
func rateLimitStore(cfg config.Config, logger *zap.Logger) middleware.RateLimitStore {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		logger.Info("webhook rate limiting backed by redis", zap.String("addr", cfg.RedisAddr))
		return middleware.NewRedisStore(client, cfg.WebhookRPS*int(cfg.WebhookWindow/time.Second), cfg.WebhookWindow)
	}
	memory := middleware.NewMemoryStore(cfg.WebhookRPS, cfg.WebhookBurst)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			memory.Reset()
		}
	}()
	return memory
}
