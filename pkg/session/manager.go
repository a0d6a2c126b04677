package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"insightminer/pkg/auth"
	errs "insightminer/pkg/errors"
	"insightminer/pkg/instagram"
	"insightminer/pkg/logger"
	"insightminer/pkg/metrics"
)

// CredentialProvider supplies login credentials. *auth.Manager satisfies it.
type CredentialProvider interface {
	Retrieve(username string) (*auth.Account, error)
	RetrieveDefault() (*auth.Account, error)
}

// Manager owns the session lifecycle: load the persisted bundle, verify it
// with a cheap probe, and fall back to a fresh login when verification
// fails. The persisted session file is overwritten wholesale on login.
type Manager struct {
	store    *Store
	client   *instagram.Client
	creds    CredentialProvider
	username string
	logger   logger.Logger

	mu     sync.Mutex
	active *Bundle
}

// NewManager creates a session manager. username may be empty, in which
// case the default stored account is used for fresh logins.
func NewManager(store *Store, client *instagram.Client, creds CredentialProvider, username string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		store:    store,
		client:   client,
		creds:    creds,
		username: username,
		logger:   log,
	}
}

// EnsureSession guarantees the client carries a verified session, logging
// in fresh when the persisted one is missing, expired, or revoked.
//
// Failure classes: an auth error with no stored credentials means the
// operator must configure them; a challenge error requires manual
// intervention upstream; a rate_limit error means login itself is
// throttled. All are fatal for the current call.
func (m *Manager) EnsureSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Try the persisted session first
	if m.active == nil {
		bundle, err := m.store.Load()
		if err != nil {
			return err
		}
		m.active = bundle
	}

	if m.active.Valid() {
		m.apply(m.active)
		if err := m.client.VerifySession(ctx); err == nil {
			m.active.LastVerified = time.Now()
			logger.LogSession("verified", m.active.Username)
			return nil
		} else if errs.IsType(err, errs.ErrorTypeRateLimit) {
			// Throttled probe says nothing about session validity;
			// logging in now would only make it worse
			return err
		} else {
			logger.LogSession("invalidated", err.Error())
			m.active = nil
		}
	}

	return m.login(ctx)
}

// login performs a fresh login and persists the replacement bundle
func (m *Manager) login(ctx context.Context) error {
	account, err := m.lookupAccount()
	if err != nil {
		return err
	}

	if account.UserAgent != "" {
		m.client.SetHeader("User-Agent", account.UserAgent)
	}

	result, err := m.client.Login(ctx, account.Username, account.Password)
	if err != nil {
		logger.LogSession("login_failed", err.Error())
		return err
	}

	bundle := &Bundle{
		Username:     account.Username,
		UserID:       result.UserID,
		Cookies:      result.Cookies,
		Headers:      map[string]string{"User-Agent": m.client.Header("User-Agent")},
		CreatedAt:    time.Now(),
		LastVerified: time.Now(),
	}

	m.apply(bundle)

	if err := m.store.Save(bundle); err != nil {
		return fmt.Errorf("login succeeded but session could not be persisted: %w", err)
	}

	m.active = bundle
	metrics.SessionLogins.Inc()
	logger.LogSession("login", account.Username)

	return nil
}

// lookupAccount resolves the configured credentials
func (m *Manager) lookupAccount() (*auth.Account, error) {
	var (
		account *auth.Account
		err     error
	)

	if m.username != "" {
		account, err = m.creds.Retrieve(m.username)
	} else {
		account, err = m.creds.RetrieveDefault()
	}

	if err != nil || account == nil || account.Password == "" {
		return nil, errs.New(errs.ErrorTypeAuth, "no credentials configured", 0)
	}

	return account, nil
}

// apply attaches a bundle's state to the API client
func (m *Manager) apply(bundle *Bundle) {
	m.client.SetCookies(bundle.Cookies)
	if len(bundle.Headers) > 0 {
		m.client.SetHeaders(bundle.Headers)
	}
	if csrf := bundle.Cookies["csrftoken"]; csrf != "" {
		m.client.SetHeader("X-CSRFToken", csrf)
	}
}

// Status describes the current session for operator surfaces
type Status struct {
	Active       bool      `json:"active"`
	Username     string    `json:"username,omitempty"`
	LastVerified time.Time `json:"last_verified,omitempty"`
}

// Status reports the current session state without touching the network
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active.Valid() {
		return Status{Active: false}
	}

	return Status{
		Active:       true,
		Username:     m.active.Username,
		LastVerified: m.active.LastVerified,
	}
}

// Invalidate drops the in-memory session and deletes the persisted one
func (m *Manager) Invalidate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = nil
	return m.store.Delete()
}
