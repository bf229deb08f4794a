// Package auth implements the AuthManager from spec §4.1: OAuth 2.0 device
// code flow against Project Online's tenant, with refresh-token renewal and
// an in-memory token cache, grounded on the teacher's session-based OAuth
// manager but reworked around golang.org/x/oauth2's device-flow helpers
// since there is no browser redirect collaborator in this engine.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/config"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/logging"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/migerr"
)

// refreshBuffer is how far ahead of expiry a cached token is treated as
// stale, matching the teacher's TokenRefreshBuffer default of 5 minutes.
const refreshBuffer = 5 * time.Minute

// TokenCacheStore persists the refresh token across process runs. The
// engine ships only an in-memory implementation; a durable on-disk or
// keychain-backed store is a deployment-specific collaborator concern.
type TokenCacheStore interface {
	Load(tenantID string) (*oauth2.Token, bool)
	Save(tenantID string, token *oauth2.Token)
	Clear(tenantID string)
	ClearAll()
}

// MemoryTokenCacheStore is the in-process TokenCacheStore shipped by
// default.
type MemoryTokenCacheStore struct {
	mu     sync.RWMutex
	tokens map[string]*oauth2.Token
}

// NewMemoryTokenCacheStore builds an empty MemoryTokenCacheStore.
func NewMemoryTokenCacheStore() *MemoryTokenCacheStore {
	return &MemoryTokenCacheStore{tokens: make(map[string]*oauth2.Token)}
}

func (s *MemoryTokenCacheStore) Load(tenantID string) (*oauth2.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[tenantID]
	return t, ok
}

func (s *MemoryTokenCacheStore) Save(tenantID string, token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tenantID] = token
}

func (s *MemoryTokenCacheStore) Clear(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, tenantID)
}

func (s *MemoryTokenCacheStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]*oauth2.Token)
}

// Manager obtains and refreshes Project Online access tokens via the OAuth
// device code flow (spec §4.1).
type Manager struct {
	cfg    *config.Config
	oauth  *oauth2.Config
	cache  TokenCacheStore
	log    *logging.Logger
	mu     sync.Mutex
}

// NewManager builds a Manager scoped to the tenant in cfg, with
// AllSites.Read/AllSites.Write scopes under the tenant root.
func NewManager(cfg *config.Config, cache TokenCacheStore, log *logging.Logger) *Manager {
	root := cfg.TenantRoot()
	return &Manager{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{
				AuthURL:       root + "/oauth2/authorize",
				TokenURL:      root + "/oauth2/token",
				DeviceAuthURL: root + "/oauth2/devicecode",
			},
			Scopes: []string{
				root + "/AllSites.Read",
				root + "/AllSites.Write",
			},
		},
		cache: cache,
		log:   log,
	}
}

// DeviceCodeHandler is invoked with the verification URL and user code so a
// CLI collaborator can display it; the engine itself never prints directly
// to stdout for this.
type DeviceCodeHandler func(verificationURI, userCode string)

// GetAccessToken returns a valid access token for the tenant, refreshing or
// re-authenticating as needed. onDeviceCode is called only when an
// interactive device-code grant is required (no cached/refreshable token).
func (m *Manager) GetAccessToken(ctx context.Context, onDeviceCode DeviceCodeHandler) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tok, ok := m.cache.Load(m.cfg.TenantID); ok {
		if time.Until(tok.Expiry) > refreshBuffer {
			return tok.AccessToken, nil
		}
		if tok.RefreshToken != "" {
			if refreshed, err := m.refresh(ctx, tok); err == nil {
				return refreshed.AccessToken, nil
			} else {
				m.log.Warnf("token refresh failed, falling back to device code flow: %v", err)
			}
		}
	}

	if !m.cfg.UseDeviceCodeFlow {
		return "", migerr.Auth(migerr.AuthExpired, "no cached token and device code flow is disabled", nil)
	}

	tok, err := m.deviceCodeGrant(ctx, onDeviceCode)
	if err != nil {
		return "", err
	}
	m.cache.Save(m.cfg.TenantID, tok)
	return tok.AccessToken, nil
}

func (m *Manager) refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	src := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})
	newTok, err := src.Token()
	if err != nil {
		return nil, migerr.Auth(migerr.AuthRefreshFailed, "failed to refresh access token", err)
	}
	m.cache.Save(m.cfg.TenantID, newTok)
	m.log.Debugf("token refreshed, new expiry %v", newTok.Expiry)
	return newTok, nil
}

func (m *Manager) deviceCodeGrant(ctx context.Context, onDeviceCode DeviceCodeHandler) (*oauth2.Token, error) {
	deviceAuth, err := m.oauth.DeviceAuth(ctx)
	if err != nil {
		return nil, migerr.Auth(migerr.AuthInvalidCode, "failed to start device code flow", err)
	}

	if onDeviceCode != nil {
		onDeviceCode(deviceAuth.VerificationURI, deviceAuth.UserCode)
	}

	tok, err := m.oauth.DeviceAccessToken(ctx, deviceAuth)
	if err != nil {
		return nil, classifyDeviceError(err)
	}

	m.log.Done("device code authentication succeeded, token expires %v", tok.Expiry)
	return tok, nil
}

// classifyDeviceError maps an x/oauth2 device-flow error to the spec §4.1
// AuthError{kind} taxonomy.
func classifyDeviceError(err error) error {
	var rErr *oauth2.RetrieveError
	if ok := asRetrieveError(err, &rErr); ok {
		switch rErr.ErrorCode {
		case "authorization_pending":
			return migerr.Auth(migerr.AuthPendingTimeout, "device code authorization still pending", err)
		case "slow_down":
			return migerr.Auth(migerr.AuthPendingTimeout, "device code polling too fast", err)
		case "access_denied":
			return migerr.Auth(migerr.AuthDeclined, "user declined the device code grant", err)
		case "expired_token":
			return migerr.Auth(migerr.AuthExpired, "device code expired before authorization", err)
		case "invalid_grant", "invalid_request":
			return migerr.Auth(migerr.AuthInvalidCode, "invalid device code grant", err)
		}
	}
	return migerr.Auth(migerr.AuthInvalidCode, fmt.Sprintf("device code flow failed: %v", err), err)
}

// ClearCache discards the cached token for this tenant, forcing the next
// GetAccessToken to re-authenticate.
func (m *Manager) ClearCache() {
	m.cache.Clear(m.cfg.TenantID)
}

// ClearAllCaches discards every cached token, regardless of tenant.
func (m *Manager) ClearAllCaches() {
	m.cache.ClearAll()
}

// TestAuthentication verifies the current credentials are usable without
// surfacing a token to the caller.
func (m *Manager) TestAuthentication(ctx context.Context) error {
	_, err := m.GetAccessToken(ctx, nil)
	return err
}
