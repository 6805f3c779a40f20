package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

var ErrScopeMismatch = errors.New("oauth scope mismatch")

// expiryMargin is how long before expiry a cached access token stops being
// handed out.
const expiryMargin = 30 * time.Second

// Manager owns the rotating ThinQ refresh token. It keeps the access token in
// memory, persists every rotation to the state file and mirrors it to the
// blob store so another host can pick it up.
type Manager struct {
	decl       Declaration
	blobStore  BlobStore
	httpClient *http.Client
	config     *oauth2.Config
	refreshes  singleflight.Group

	mu    sync.Mutex
	token *oauth2.Token
	state State
}

func NewManager(decl Declaration, bootstrapPath string, blobStore BlobStore) (*Manager, error) {
	if bootstrapPath == "" {
		return nil, fmt.Errorf("bootstrap path is required")
	}
	bootstrap, err := LoadBootstrap(bootstrapPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return NewManagerFromBootstrap(decl, bootstrap, blobStore)
}

// NewManagerFromBootstrap resolves the starting refresh state from, in order,
// the local state file, the blob mirror and the bootstrap itself.
func NewManagerFromBootstrap(decl Declaration, bootstrap Bootstrap, blobStore BlobStore) (*Manager, error) {
	if err := decl.Validate(); err != nil {
		return nil, err
	}
	if blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if err := bootstrap.Validate(); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	m := &Manager{
		decl:       decl,
		blobStore:  blobStore,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		config:     decl.Config(bootstrap.ClientID, bootstrap.ClientSecret),
	}
	state, err := m.resolveState(context.Background(), bootstrap)
	if err != nil {
		return nil, err
	}
	m.state = state
	return m, nil
}

func (m *Manager) Start(ctx context.Context) {
	m.StartWithInterval(ctx, DefaultRefreshInterval)
}

// StartWithInterval refreshes once now and then every interval, renewing the
// access token when it would expire before the next tick.
func (m *Manager) StartWithInterval(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	threshold := max(interval, expiryMargin)
	m.logRefresh(m.refreshIfNeeded(ctx, threshold), "token refresh failed")
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.logRefresh(m.refreshIfNeeded(ctx, threshold), "token refresh failed")
			}
		}
	}()
}

// AccessToken returns a cached token, refreshing synchronously when it is
// missing or about to expire.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	if err := m.refreshIfNeeded(ctx, expiryMargin); err != nil {
		tokenValid.WithLabelValues(m.decl.Provider).Set(0)
		return "", fmt.Errorf("oauth token unavailable: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token.AccessToken, nil
}

// TriggerRefresh forces a refresh in the background, typically after the
// API rejected the current token. Concurrent triggers share one request.
func (m *Manager) TriggerRefresh(ctx context.Context) {
	go func() {
		_, err, _ := m.refreshes.Do("refresh", func() (any, error) {
			return nil, m.refresh(ctx)
		})
		m.logRefresh(err, "triggered refresh failed")
	}()
}

func (m *Manager) refreshIfNeeded(ctx context.Context, threshold time.Duration) error {
	if m.fresh(threshold) {
		return nil
	}
	_, err, _ := m.refreshes.Do("refresh", func() (any, error) {
		if m.fresh(threshold) {
			return nil, nil
		}
		return nil, m.refresh(ctx)
	})
	return err
}

func (m *Manager) fresh(threshold time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == nil || m.token.AccessToken == "" {
		return false
	}
	return m.token.Expiry.IsZero() || time.Until(m.token.Expiry) > threshold
}

func (m *Manager) refresh(ctx context.Context) error {
	m.mu.Lock()
	refreshToken := m.state.RefreshToken
	m.mu.Unlock()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	token, err := m.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		recordRefresh(m.decl.Provider, nil, false)
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return fmt.Errorf("token refresh failed %d: %s", retrieveErr.Response.StatusCode, strings.TrimSpace(string(retrieveErr.Body)))
		}
		return err
	}

	m.mu.Lock()
	m.token = token
	if token.RefreshToken != "" {
		m.state.RefreshToken = token.RefreshToken
	}
	m.state.UpdatedAt = time.Now().UTC()
	state := m.state
	m.mu.Unlock()

	if err := WriteState(m.decl.StatePath, state); err != nil {
		recordRefresh(m.decl.Provider, nil, false)
		return fmt.Errorf("persist state: %w", err)
	}
	if err := m.mirror(ctx, state); err != nil {
		log.Warn().Err(err).Str("component", "oauth").Str("provider", m.decl.Provider).Msg("blob mirror failed")
	}
	recordRefresh(m.decl.Provider, token, true)
	return nil
}

// resolveState picks the first usable refresh state. A state found only in
// the blob or bootstrap is written locally so the next start reads it first.
func (m *Manager) resolveState(ctx context.Context, bootstrap Bootstrap) (State, error) {
	local, localErr := LoadState(m.decl.StatePath)
	if localErr == nil {
		return m.adopt(ctx, local, bootstrap, "local")
	}

	blob, blobErr := m.loadFromBlob(ctx)
	switch {
	case blobErr == nil:
		return m.adopt(ctx, blob, bootstrap, "blob")
	case !errors.Is(blobErr, ErrBlobNotFound):
		if !errors.Is(localErr, ErrStateNotFound) {
			return State{}, localErr
		}
		return State{}, blobErr
	}

	if bootstrap.RefreshToken == "" {
		return State{}, fmt.Errorf("bootstrap missing refresh_token; run thinqhome oauth seed")
	}
	return m.adopt(ctx, bootstrap.State(bootstrap.RefreshToken, bootstrap.Scope), bootstrap, "bootstrap")
}

// adopt applies the bootstrap client credentials and declared scope to a
// candidate state, then persists it.
func (m *Manager) adopt(ctx context.Context, state State, bootstrap Bootstrap, source string) (State, error) {
	if state.Scope == "" {
		state.Scope = m.decl.Scope
	}
	if state.Scope != m.decl.Scope {
		scopeMismatch.WithLabelValues(m.decl.Provider).Inc()
		return State{}, ErrScopeMismatch
	}
	state.ClientID = bootstrap.ClientID
	state.ClientSecret = bootstrap.ClientSecret

	if source != "local" {
		if err := WriteState(m.decl.StatePath, state); err != nil {
			return State{}, err
		}
	}
	if err := m.mirror(ctx, state); err != nil {
		log.Debug().Err(err).Str("component", "oauth").Str("provider", m.decl.Provider).Msg("blob mirror failed")
	}
	log.Debug().Str("component", "oauth").Str("provider", m.decl.Provider).Str("source", source).Msg("refresh state loaded")
	return state, nil
}

func (m *Manager) loadFromBlob(ctx context.Context) (State, error) {
	data, err := m.blobStore.Load(ctx, m.decl.Provider)
	if err != nil {
		return State{}, err
	}
	return DecodeState(data)
}

func (m *Manager) mirror(ctx context.Context, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err == nil {
		err = m.blobStore.Save(ctx, m.decl.Provider, data)
	}
	recordMirror(m.decl.Provider, err)
	return err
}

func (m *Manager) logRefresh(err error, msg string) {
	if err != nil {
		log.Warn().Err(err).Str("component", "oauth").Str("provider", m.decl.Provider).Msg(msg)
	}
}
