//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-match-analysis/internal/domain"
	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/adapter"
	"telegram-match-analysis/internal/domain/ports/repository"
	"telegram-match-analysis/internal/infra/redis"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// =============================
// Transaction manager
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless a test installs WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, opts, fn)
	}
	return fn(ctx, repository.NoTX)
}

// serialTxManager mimics the per-account advisory lock: transactions run one
// at a time, so concurrent debits observe each other's writes.
type serialTxManager struct {
	mu sync.Mutex
}

var _ repository.TransactionManager = (*serialTxManager)(nil)

func (m *serialTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, repository.NoTX)
}

// lockTxManager models transaction-scoped row and advisory locks the way
// Postgres holds them: transactions run concurrently, repos take named locks
// through the lockTx handle, and everything held is released only when the
// transaction function returns. Unlike serialTxManager it does not serialize
// whole transactions, so interleavings between reads and lock acquisition
// are observable.
type lockTxManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTxManager() *lockTxManager {
	return &lockTxManager{locks: make(map[string]*sync.Mutex)}
}

var _ repository.TransactionManager = (*lockTxManager)(nil)

func (m *lockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx := &lockTx{mgr: m}
	defer tx.release()
	return fn(ctx, tx)
}

func (m *lockTxManager) lockFor(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// lockTx is the qx handle handed to repositories by lockTxManager.
type lockTx struct {
	mgr  *lockTxManager
	mu   sync.Mutex
	held []*sync.Mutex
}

func (t *lockTx) acquire(key string) {
	l := t.mgr.lockFor(key)
	l.Lock()
	t.mu.Lock()
	t.held = append(t.held, l)
	t.mu.Unlock()
}

func (t *lockTx) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}

// =============================
// Repositories (in-memory)
// =============================

type memAccountRepo struct {
	mu      sync.RWMutex
	store   map[int64]*model.Account
	saveErr error
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{store: make(map[int64]*model.Account)}
}

var _ repository.AccountRepository = (*memAccountRepo)(nil)

func (m *memAccountRepo) Save(ctx context.Context, _ repository.Tx, a *model.Account) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store[a.TelegramID] = &cp
	return nil
}

func (m *memAccountRepo) FindByTelegramID(ctx context.Context, _ repository.Tx, tgID int64) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAccountRepo) LockByTelegramID(ctx context.Context, qx repository.Tx, tgID int64) (*model.Account, error) {
	if tx, ok := qx.(*lockTx); ok {
		tx.acquire(fmt.Sprintf("account:%d", tgID))
	}
	return m.FindByTelegramID(ctx, qx, tgID)
}

func (m *memAccountRepo) List(ctx context.Context, _ repository.Tx, search string, offset, limit int) ([]*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Account
	for _, a := range m.store {
		if search != "" && !strings.Contains(strings.ToLower(a.Username), strings.ToLower(search)) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memAccountRepo) Count(ctx context.Context, _ repository.Tx, search string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.store {
		if search != "" && !strings.Contains(strings.ToLower(a.Username), strings.ToLower(search)) {
			continue
		}
		n++
	}
	return n, nil
}

func (m *memAccountRepo) CountActiveSince(ctx context.Context, _ repository.Tx, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.store {
		if !a.LastActiveAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memAccountRepo) CountPremium(ctx context.Context, _ repository.Tx, now time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.store {
		if a.HasActivePremium(now) {
			n++
		}
	}
	return n, nil
}

// ----

type memMessageRepo struct {
	mu       sync.RWMutex
	messages []*model.Message
}

func newMemMessageRepo() *memMessageRepo { return &memMessageRepo{} }

var _ repository.MessageRepository = (*memMessageRepo)(nil)

func (m *memMessageRepo) Append(ctx context.Context, _ repository.Tx, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *memMessageRepo) Count(ctx context.Context, _ repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages), nil
}

func (m *memMessageRepo) CountSince(ctx context.Context, _ repository.Tx, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, msg := range m.messages {
		if !msg.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memMessageRepo) ListByAccount(ctx context.Context, _ repository.Tx, tgID int64, offset, limit int) ([]*model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Message
	for _, msg := range m.messages {
		if msg.TelegramID == tgID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ----

type memPaymentRepo struct {
	mu       sync.RWMutex
	store    map[string]*model.Payment // keyed by checkout session id
	findHook func()                    // runs after each FindBySessionID, outside the repo lock
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: make(map[string]*model.Payment)}
}

var _ repository.PaymentRepository = (*memPaymentRepo)(nil)

func (m *memPaymentRepo) Save(ctx context.Context, _ repository.Tx, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.CheckoutSessionID] = &cp
	return nil
}

func (m *memPaymentRepo) FindBySessionID(ctx context.Context, _ repository.Tx, sessionID string) (*model.Payment, error) {
	m.mu.RLock()
	p, ok := m.store[sessionID]
	var cp model.Payment
	if ok {
		cp = *p
	}
	m.mu.RUnlock()
	if m.findHook != nil {
		m.findHook()
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cp, nil
}

func (m *memPaymentRepo) FindBySessionPattern(ctx context.Context, _ repository.Tx, pattern string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, p := range m.store {
		if strings.Contains(id, pattern) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) List(ctx context.Context, _ repository.Tx, f repository.PaymentFilter) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if f.TelegramID != 0 && p.TelegramID != f.TelegramID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Type != "" && p.Type != f.Type {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memPaymentRepo) Count(ctx context.Context, qx repository.Tx, f repository.PaymentFilter) (int, error) {
	ps, err := m.List(ctx, qx, f)
	return len(ps), err
}

func (m *memPaymentRepo) SumCompletedByPeriod(ctx context.Context, _ repository.Tx, period string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, p := range m.store {
		if p.Status == model.PaymentStatusCompleted {
			sum += p.Amount
		}
	}
	return sum, nil
}

// ----

type memSettingsRepo struct {
	mu       sync.RWMutex
	settings *model.Settings
	getErr   error
}

func newMemSettingsRepo() *memSettingsRepo { return &memSettingsRepo{} }

var _ repository.SettingsRepository = (*memSettingsRepo)(nil)

func (m *memSettingsRepo) Get(ctx context.Context, _ repository.Tx) (*model.Settings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		m.settings = model.DefaultSettings()
	}
	cp := *m.settings
	return &cp, nil
}

func (m *memSettingsRepo) Save(ctx context.Context, _ repository.Tx, s *model.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.settings = &cp
	return nil
}

// ----

type memInviteRepo struct {
	mu    sync.RWMutex
	store map[string]*model.InviteCode
}

func newMemInviteRepo() *memInviteRepo {
	return &memInviteRepo{store: make(map[string]*model.InviteCode)}
}

var _ repository.InviteCodeRepository = (*memInviteRepo)(nil)

func (m *memInviteRepo) Save(ctx context.Context, _ repository.Tx, c *model.InviteCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.store[c.Code] = &cp
	return nil
}

func (m *memInviteRepo) FindByCode(ctx context.Context, _ repository.Tx, code string) (*model.InviteCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.store[code]
	if !ok {
		return nil, domain.ErrCodeNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memInviteRepo) LockByCode(ctx context.Context, qx repository.Tx, code string) (*model.InviteCode, error) {
	if tx, ok := qx.(*lockTx); ok {
		tx.acquire("invite:" + code)
	}
	return m.FindByCode(ctx, qx, code)
}

func (m *memInviteRepo) List(ctx context.Context, _ repository.Tx) ([]*model.InviteCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.InviteCode
	for _, c := range m.store {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memInviteRepo) Delete(ctx context.Context, _ repository.Tx, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[code]; !ok {
		return domain.ErrCodeNotFound
	}
	delete(m.store, code)
	return nil
}

// =============================
// Adapters
// =============================

type MockGateway struct {
	EnsureCustomerFunc func(ctx context.Context, tgID int64, existingID string) (string, error)
	CreateCheckoutFunc func(ctx context.Context, req adapter.CheckoutRequest) (*adapter.CheckoutSession, error)

	mu       sync.Mutex
	Requests []adapter.CheckoutRequest
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (m *MockGateway) EnsureCustomer(ctx context.Context, tgID int64, existingID string) (string, error) {
	if m.EnsureCustomerFunc != nil {
		return m.EnsureCustomerFunc(ctx, tgID, existingID)
	}
	if existingID != "" {
		return existingID, nil
	}
	return "cus_test", nil
}

func (m *MockGateway) CreateCheckout(ctx context.Context, req adapter.CheckoutRequest) (*adapter.CheckoutSession, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	n := len(m.Requests)
	m.mu.Unlock()
	if m.CreateCheckoutFunc != nil {
		return m.CreateCheckoutFunc(ctx, req)
	}
	return &adapter.CheckoutSession{ID: fmt.Sprintf("sess_%d", n), URL: "https://pay.example/s"}, nil
}

func (m *MockGateway) Name() string { return "mock" }

// ----

type MockAI struct {
	ChatFunc          func(ctx context.Context, msgs []adapter.Message) (string, error)
	ChatWithUsageFunc func(ctx context.Context, msgs []adapter.Message) (string, adapter.Usage, error)
	ChatVisionFunc    func(ctx context.Context, prompt string, image []byte) (string, error)

	mu      sync.Mutex
	Prompts []string
}

var _ adapter.AIAdapter = (*MockAI)(nil)

func (m *MockAI) record(msgs []adapter.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		m.Prompts = append(m.Prompts, msg.Content)
	}
}

func (m *MockAI) Chat(ctx context.Context, msgs []adapter.Message) (string, error) {
	m.record(msgs)
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, msgs)
	}
	return "ok", nil
}

func (m *MockAI) ChatWithUsage(ctx context.Context, msgs []adapter.Message) (string, adapter.Usage, error) {
	m.record(msgs)
	if m.ChatWithUsageFunc != nil {
		return m.ChatWithUsageFunc(ctx, msgs)
	}
	return "ok", adapter.Usage{}, nil
}

func (m *MockAI) ChatVision(ctx context.Context, prompt string, image []byte) (string, error) {
	if m.ChatVisionFunc != nil {
		return m.ChatVisionFunc(ctx, prompt, image)
	}
	return "{}", nil
}

func (m *MockAI) CountTokens(msgs []adapter.Message) int {
	n := 0
	for _, msg := range msgs {
		n += len(msg.Content) / 4
	}
	return n
}

func (m *MockAI) Name() string { return "mock" }

// ----

type MockFootball struct {
	SearchTeamFunc func(ctx context.Context, name string) (*model.TeamStats, error)
	Disabled       bool
}

var _ adapter.FootballStatsProvider = (*MockFootball)(nil)

func (m *MockFootball) SearchTeam(ctx context.Context, name string) (*model.TeamStats, error) {
	if m.SearchTeamFunc != nil {
		return m.SearchTeamFunc(ctx, name)
	}
	return nil, domain.ErrNotFound
}

func (m *MockFootball) Enabled() bool { return !m.Disabled }

type MockWeather struct {
	FetchFunc func(ctx context.Context, city string, kickoff *time.Time) (*model.WeatherReport, error)
	Disabled  bool
}

var _ adapter.WeatherProvider = (*MockWeather)(nil)

func (m *MockWeather) Fetch(ctx context.Context, city string, kickoff *time.Time) (*model.WeatherReport, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, city, kickoff)
	}
	return nil, domain.ErrNotFound
}

func (m *MockWeather) Enabled() bool { return !m.Disabled }

// =============================
// Redis
// =============================

type memRedis struct {
	mu    sync.Mutex
	store map[string]string
	err   error // non-nil simulates an outage on every call
}

func newMemRedis() *memRedis { return &memRedis{store: make(map[string]string)} }

var _ redis.Client = (*memRedis)(nil)

func (m *memRedis) Ping(ctx context.Context) error { return m.err }

func (m *memRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case string:
		m.store[key] = v
	case []byte:
		m.store[key] = string(v)
	}
	return nil
}

func (m *memRedis) Get(ctx context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.store[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memRedis) Incr(ctx context.Context, key string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return 1, nil
}

func (m *memRedis) Expire(ctx context.Context, key string, _ time.Duration) error { return m.err }

func (m *memRedis) Del(ctx context.Context, keys ...string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.store, k)
	}
	return nil
}

func (m *memRedis) Close() error { return nil }

func newTestCache(client redis.Client) *redis.Cache {
	return redis.NewCache(client, time.Minute, newTestLogger())
}
