package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"leadgate/internal/auth"
	"leadgate/internal/config"
	"leadgate/internal/middleware"
	"leadgate/internal/services"
	"leadgate/internal/store"
	"leadgate/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn     func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	getByEmailFn func(ctx context.Context, email string) (store.User, error)
	getByIDFn    func(ctx context.Context, userID string) (store.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (store.User, error) {
	if s.getByEmailFn == nil {
		return store.User{}, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (store.User, error) {
	if s.getByIDFn == nil {
		return store.User{}, nil
	}
	return s.getByIDFn(ctx, userID)
}

type stubConfigStore struct {
	createFn      func(ctx context.Context, tx store.Execer, input store.ImportConfig) error
	getByIDFn     func(ctx context.Context, configID string) (store.ImportConfig, error)
	getByCampaign func(ctx context.Context, platform, campaignID string) (store.ImportConfig, error)
	listByUserFn  func(ctx context.Context, userID string) ([]store.ImportConfig, error)
	deactivateFn  func(ctx context.Context, configID, userID string) (int64, error)
}

func (s stubConfigStore) Create(ctx context.Context, tx store.Execer, input store.ImportConfig) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubConfigStore) GetActiveByID(ctx context.Context, configID string) (store.ImportConfig, error) {
	if s.getByIDFn == nil {
		return store.ImportConfig{}, nil
	}
	return s.getByIDFn(ctx, configID)
}

func (s stubConfigStore) GetActiveByCampaign(ctx context.Context, platform, campaignID string) (store.ImportConfig, error) {
	if s.getByCampaign == nil {
		return store.ImportConfig{}, nil
	}
	return s.getByCampaign(ctx, platform, campaignID)
}

func (s stubConfigStore) ListByUser(ctx context.Context, userID string) ([]store.ImportConfig, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID)
}

func (s stubConfigStore) Deactivate(ctx context.Context, configID, userID string) (int64, error) {
	if s.deactivateFn == nil {
		return 1, nil
	}
	return s.deactivateFn(ctx, configID, userID)
}

type stubLeadStore struct {
	getByIDFn func(ctx context.Context, leadID string) (store.Lead, error)
	listFn    func(ctx context.Context, userID, status string, limit, offset int) ([]map[string]any, error)
}

func (s stubLeadStore) GetByID(ctx context.Context, leadID string) (store.Lead, error) {
	if s.getByIDFn == nil {
		return store.Lead{}, nil
	}
	return s.getByIDFn(ctx, leadID)
}

func (s stubLeadStore) ListByUser(ctx context.Context, userID, status string, limit, offset int) ([]map[string]any, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, userID, status, limit, offset)
}

type stubTransactionStore struct {
	listFn func(ctx context.Context, userID, txType string, limit, offset int) ([]map[string]any, error)
	sumFn  func(ctx context.Context, userID string) (int64, error)
}

func (s stubTransactionStore) ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]map[string]any, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, userID, txType, limit, offset)
}

func (s stubTransactionStore) SumByUser(ctx context.Context, userID string) (int64, error) {
	if s.sumFn == nil {
		return 0, nil
	}
	return s.sumFn(ctx, userID)
}

type stubNotificationStore struct {
	listFn     func(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]map[string]any, error)
	markReadFn func(ctx context.Context, userID, notificationID string) error
}

func (s stubNotificationStore) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]map[string]any, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, userID, unreadOnly, limit, offset)
}

func (s stubNotificationStore) MarkRead(ctx context.Context, userID, notificationID string) error {
	if s.markReadFn == nil {
		return nil
	}
	return s.markReadFn(ctx, userID, notificationID)
}

type stubPaymentMethodStore struct {
	createFn       func(ctx context.Context, tx store.Execer, input store.PaymentMethod) error
	clearDefaultFn func(ctx context.Context, tx store.Execer, userID string) error
	listFn         func(ctx context.Context, userID string) ([]store.PaymentMethod, error)
}

func (s stubPaymentMethodStore) Create(ctx context.Context, tx store.Execer, input store.PaymentMethod) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubPaymentMethodStore) ClearDefault(ctx context.Context, tx store.Execer, userID string) error {
	if s.clearDefaultFn == nil {
		return nil
	}
	return s.clearDefaultFn(ctx, tx, userID)
}

func (s stubPaymentMethodStore) ListByUser(ctx context.Context, userID string) ([]store.PaymentMethod, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, userID)
}

// recordingEventLog captures audit rows for assertions.
type recordingEventLog struct {
	mu      sync.Mutex
	records []store.EventLogInput
	listFn  func(ctx context.Context, platform string, limit, offset int) ([]map[string]any, error)
}

func (s *recordingEventLog) Record(ctx context.Context, input store.EventLogInput) error {
	s.mu.Lock()
	s.records = append(s.records, input)
	s.mu.Unlock()
	return nil
}

func (s *recordingEventLog) List(ctx context.Context, platform string, limit, offset int) ([]map[string]any, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, platform, limit, offset)
}

type stubBalanceSettings struct {
	updateFn func(ctx context.Context, userID string, autoRecharge bool, thresholdCents, rechargeCents int64) error
}

func (s stubBalanceSettings) UpdateRechargeSettings(ctx context.Context, userID string, autoRecharge bool, thresholdCents, rechargeCents int64) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, userID, autoRecharge, thresholdCents, rechargeCents)
}

type stubLedger struct {
	getBalanceFn func(ctx context.Context, userID string) (store.Balance, error)
}

func (s stubLedger) GetBalance(ctx context.Context, userID string) (store.Balance, error) {
	if s.getBalanceFn == nil {
		return store.Balance{}, nil
	}
	return s.getBalanceFn(ctx, userID)
}

type stubRecharge struct {
	topupFn func(ctx context.Context, userID string, amountCents int64) (string, error)
}

func (s stubRecharge) Topup(ctx context.Context, userID string, amountCents int64) (string, error) {
	if s.topupFn == nil {
		return "", nil
	}
	return s.topupFn(ctx, userID, amountCents)
}

// recordingSettlement captures ProcessLead calls for assertions.
type recordingSettlement struct {
	mu        sync.Mutex
	calls     []settlementCall
	processFn func(ctx context.Context, ref services.ConfigRef, payload map[string]any, sourceLeadID string) (string, error)
}

type settlementCall struct {
	ref          services.ConfigRef
	payload      map[string]any
	sourceLeadID string
}

func (s *recordingSettlement) ProcessLead(ctx context.Context, ref services.ConfigRef, payload map[string]any, sourceLeadID string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, settlementCall{ref: ref, payload: payload, sourceLeadID: sourceLeadID})
	s.mu.Unlock()
	if s.processFn == nil {
		return "lead-1", nil
	}
	return s.processFn(ctx, ref, payload, sourceLeadID)
}

type stubFetcher struct {
	fetchFn func(ctx context.Context, leadID, accessToken string) (map[string]any, error)
}

func (s stubFetcher) FetchLead(ctx context.Context, leadID, accessToken string) (map[string]any, error) {
	if s.fetchFn == nil {
		return map[string]any{}, nil
	}
	return s.fetchFn(ctx, leadID, accessToken)
}

type testDeps struct {
	txRunner      fakeTxRunner
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
}

func newTestHandler(deps testDeps) *Handler {
	cfg := config.Config{
		AppEnv:           "test",
		JWTSecret:        "secret",
		TokenTTL:         time.Minute,
		AllowedOrigins:   "*",
		MetaVerifyToken:  "verify-token",
		LeadFetchTimeout: time.Second,
	}
	if deps.users == nil {
		deps.users = stubUserStore{}
	}
	if deps.configs == nil {
		deps.configs = stubConfigStore{}
	}
	if deps.leads == nil {
		deps.leads = stubLeadStore{}
	}
	if deps.transactions == nil {
		deps.transactions = stubTransactionStore{}
	}
	if deps.notifications == nil {
		deps.notifications = stubNotificationStore{}
	}
	if deps.methods == nil {
		deps.methods = stubPaymentMethodStore{}
	}
	if deps.events == nil {
		deps.events = &recordingEventLog{}
	}
	if deps.balances == nil {
		deps.balances = stubBalanceSettings{}
	}
	if deps.ledger == nil {
		deps.ledger = stubLedger{}
	}
	if deps.recharge == nil {
		deps.recharge = stubRecharge{}
	}
	if deps.settlement == nil {
		deps.settlement = &recordingSettlement{}
	}
	if deps.leadFetcher == nil {
		deps.leadFetcher = stubFetcher{}
	}
	limiter := middleware.NewRateLimiter(middleware.NewMemoryStore(100, 100), zap.NewNop())
	return New(deps.txRunner, cfg, zap.NewNop(), deps.users, deps.configs, deps.leads, deps.transactions, deps.notifications, deps.methods, deps.events, deps.balances, deps.ledger, deps.recharge, deps.settlement, deps.leadFetcher, limiter, websocket.NewHub())
}

func withChiParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func serveWithAuth(t *testing.T, handler http.HandlerFunc, userID string, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateToken("secret", userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	rr := httptest.NewRecorder()
	req.Header.Set("Authorization", "Bearer "+token)
	middleware.Auth("secret")(handler).ServeHTTP(rr, req)
	return rr
}
