package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/config"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/logging"
)

func testConfig() *config.Config {
	return &config.Config{
		TenantID:          "tenant-123",
		ClientID:          "client-abc",
		ProjectOnlineURL:  "https://contoso.sharepoint.com/sites/pwa",
		UseDeviceCodeFlow: true,
	}
}

func TestMemoryTokenCacheStoreRoundTrip(t *testing.T) {
	store := NewMemoryTokenCacheStore()
	_, ok := store.Load("tenant-123")
	assert.False(t, ok)

	tok := &oauth2.Token{AccessToken: "abc", Expiry: time.Now().Add(time.Hour)}
	store.Save("tenant-123", tok)

	loaded, ok := store.Load("tenant-123")
	assert.True(t, ok)
	assert.Equal(t, "abc", loaded.AccessToken)

	store.Clear("tenant-123")
	_, ok = store.Load("tenant-123")
	assert.False(t, ok)
}

func TestMemoryTokenCacheStoreClearAll(t *testing.T) {
	store := NewMemoryTokenCacheStore()
	store.Save("t1", &oauth2.Token{AccessToken: "a"})
	store.Save("t2", &oauth2.Token{AccessToken: "b"})
	store.ClearAll()
	_, ok1 := store.Load("t1")
	_, ok2 := store.Load("t2")
	assert.False(t, ok1)
	assert.False(t, ok2)
}

func TestGetAccessTokenReturnsCachedTokenWithinRefreshBuffer(t *testing.T) {
	cfg := testConfig()
	store := NewMemoryTokenCacheStore()
	store.Save(cfg.TenantID, &oauth2.Token{
		AccessToken: "cached-token",
		Expiry:      time.Now().Add(time.Hour),
	})

	mgr := NewManager(cfg, store, logging.New(logging.LevelSilent))
	tok, err := mgr.GetAccessToken(context.Background(), nil)
	assert.NoError(t, err)
	assert.Equal(t, "cached-token", tok)
}

func TestGetAccessTokenFailsWithoutDeviceCodeFlowOrCache(t *testing.T) {
	cfg := testConfig()
	cfg.UseDeviceCodeFlow = false
	store := NewMemoryTokenCacheStore()

	mgr := NewManager(cfg, store, logging.New(logging.LevelSilent))
	_, err := mgr.GetAccessToken(context.Background(), nil)
	assert.Error(t, err)
}

func TestTenantRootDerivesScopes(t *testing.T) {
	cfg := testConfig()
	mgr := NewManager(cfg, NewMemoryTokenCacheStore(), logging.New(logging.LevelSilent))
	assert.Contains(t, mgr.oauth.Scopes[0], "https://contoso.sharepoint.com")
	assert.Contains(t, mgr.oauth.Scopes[0], "AllSites.Read")
	assert.Contains(t, mgr.oauth.Scopes[1], "AllSites.Write")
}
