package feishu

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/neilzhangpro/moltbot-feishu/internal/config"
)

// handle is one live connection.
type handle struct {
	accountID string
	appID     string
	cancel    context.CancelFunc
	done      chan struct{}
}

// Manager owns the persistent connections, at most one per account. Starting
// an account that is already running replaces its connection; stopping is
// idempotent.
type Manager struct {
	factory    StreamFactory
	baseDomain string

	mu      sync.Mutex
	handles map[string]*handle
	lastErr map[string]error
}

// NewManager builds a connection manager over the given stream factory.
// baseDomain may be empty for the default platform endpoint.
func NewManager(factory StreamFactory, baseDomain string) *Manager {
	if factory == nil {
		factory = NewStream
	}
	return &Manager{
		factory:    factory,
		baseDomain: baseDomain,
		handles:    make(map[string]*handle),
		lastErr:    make(map[string]error),
	}
}

// StartAccount validates credentials and starts the account's connection.
// An already-running connection for the account is stopped first so exactly
// one connection is live per account.
func (m *Manager) StartAccount(ctx context.Context, account *config.Account, router *Router) error {
	if account == nil {
		return fmt.Errorf("nil account")
	}
	if strings.TrimSpace(account.AppID) == "" || strings.TrimSpace(account.AppSecret) == "" {
		return fmt.Errorf("account %s: app id and secret are required", account.ID)
	}

	// Stop any live handle for the account. Re-check after re-locking: a
	// concurrent start may have inserted a new handle while the lock was
	// released, and overwriting it would leak an untracked connection.
	m.mu.Lock()
	for {
		old, ok := m.handles[account.ID]
		if !ok {
			break
		}
		m.mu.Unlock()
		m.stopHandle(old)
		m.mu.Lock()
	}

	stream := m.factory(account.AppID, account.AppSecret, m.baseDomain, router)
	runCtx, cancel := context.WithCancel(ctx)
	h := &handle{
		accountID: account.ID,
		appID:     account.AppID,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	m.handles[account.ID] = h
	delete(m.lastErr, account.ID)
	m.mu.Unlock()

	slog.Info("Feishu connection starting", "account", account.ID, "app_id", account.AppID)
	go func() {
		err := stream.Start(runCtx)
		if err != nil && runCtx.Err() == nil {
			slog.Error("Feishu connection terminated", "account", h.accountID, "error", err)
		} else {
			slog.Info("Feishu connection stopped", "account", h.accountID)
		}
		m.mu.Lock()
		if m.handles[h.accountID] == h {
			delete(m.handles, h.accountID)
			if err != nil && runCtx.Err() == nil {
				m.lastErr[h.accountID] = err
			}
		}
		m.mu.Unlock()
		close(h.done)
	}()
	return nil
}

// StopAccount stops the account's connection if one is running. Stopping an
// account that is not running is a no-op.
func (m *Manager) StopAccount(accountID string) {
	m.mu.Lock()
	h, ok := m.handles[accountID]
	m.mu.Unlock()
	if !ok {
		return
	}
	m.stopHandle(h)
}

// StopAll stops every live connection.
func (m *Manager) StopAll() {
	m.mu.Lock()
	var all []*handle
	for _, h := range m.handles {
		all = append(all, h)
	}
	m.mu.Unlock()
	for _, h := range all {
		m.stopHandle(h)
	}
}

func (m *Manager) stopHandle(h *handle) {
	h.cancel()
	<-h.done
	m.mu.Lock()
	if m.handles[h.accountID] == h {
		delete(m.handles, h.accountID)
	}
	m.mu.Unlock()
}

// ProbeResult reports the health of one account's connection.
type ProbeResult struct {
	OK  bool
	Err string
}

// Probe reports whether the account's connection is live, carrying the last
// termination error when it is not.
func (m *Manager) Probe(accountID string) ProbeResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.handles[accountID]; ok {
		return ProbeResult{OK: true}
	}
	if err, ok := m.lastErr[accountID]; ok {
		return ProbeResult{OK: false, Err: err.Error()}
	}
	return ProbeResult{OK: false, Err: "not running"}
}

// Running lists the account ids with live connections.
func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.handles))
	for id := range m.handles {
		ids = append(ids, id)
	}
	return ids
}
