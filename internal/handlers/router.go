package handlers

import (
	"net/http"

	"leadgate/internal/config"
	"leadgate/internal/db"
	"leadgate/internal/middleware"
	"leadgate/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handler struct {
	txRunner      db.TxRunner
	cfg           config.Config
	logger        *zap.Logger
	users         UserStore
	configs       ConfigStore
	leads         LeadStore
	transactions  TransactionStore
	notifications NotificationStore
	methods       PaymentMethodStore
	events        EventLogStore
	balances      BalanceSettingsStore
	ledger        LedgerService
	recharge      RechargeService
	settlement    SettlementService
	leadFetcher   LeadFetcher
	limiter       *middleware.RateLimiter
	hub           *websocket.Hub
}

func New(txRunner db.TxRunner, cfg config.Config, logger *zap.Logger, users UserStore, configs ConfigStore, leads LeadStore, transactions TransactionStore, notifications NotificationStore, methods PaymentMethodStore, events EventLogStore, balances BalanceSettingsStore, ledger LedgerService, recharge RechargeService, settlement SettlementService, leadFetcher LeadFetcher, limiter *middleware.RateLimiter, hub *websocket.Hub) *Handler {
	return &Handler{
		txRunner:      txRunner,
		cfg:           cfg,
		logger:        logger,
		users:         users,
		configs:       configs,
		leads:         leads,
		transactions:  transactions,
		notifications: notifications,
		methods:       methods,
		events:        events,
		balances:      balances,
		ledger:        ledger,
		recharge:      recharge,
		settlement:    settlement,
		leadFetcher:   leadFetcher,
		limiter:       limiter,
		hub:           hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/webhooks", func(r chi.Router) {
		r.Use(h.limiter.Handler)
		r.Get("/meta", h.MetaVerify)
		r.Post("/meta", h.MetaWebhook)
		r.Post("/tiktok", h.TikTokWebhook)
		r.Post("/custom/{configID}", h.CustomWebhook)
		r.Post("/google", h.NotImplementedWebhook)
		r.Post("/linkedin", h.NotImplementedWebhook)
	})

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})

	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/billing/balance", h.GetBalance)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Post("/billing/recharge", h.Recharge)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Put("/billing/settings", h.UpdateRechargeSettings)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Post("/billing/payment-methods", h.AddPaymentMethod)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/billing/payment-methods", h.ListPaymentMethods)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/transactions", h.ListTransactions)

	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/leads", h.ListLeads)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/leads/{id}", h.GetLead)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Post("/leads/settle", h.SettleLead)

	router.With(middleware.Auth(h.cfg.JWTSecret)).Post("/configs", h.CreateConfig)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/configs", h.ListConfigs)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Post("/configs/{id}/deactivate", h.DeactivateConfig)

	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/notifications", h.ListNotifications)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Post("/notifications/{id}/read", h.MarkNotificationRead)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/events", h.ListWebhookEvents)

	router.Get("/ws/notifications", h.WSNotifications)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
