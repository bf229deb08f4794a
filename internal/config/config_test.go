package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	env := map[string]string{
		"SMARTSHEET_API_TOKEN": "abcdefghijklmnopqrstuvwxyz",
		"TENANT_ID":            "tenant-1",
		"CLIENT_ID":            "client-1",
		"PROJECT_ONLINE_URL":   "https://contoso.sharepoint.com/sites/pwa",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func TestLoadSucceedsWithAllRequiredFieldsSet(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SolutionStandaloneWorkspaces, cfg.SolutionType)
	assert.Equal(t, 3, cfg.MaxConcurrentProjects)
}

func TestLoadRejectsShortSmartsheetToken(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SMARTSHEET_API_TOKEN", "tooshort")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsMissingTenantID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TENANT_ID", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidProjectOnlineURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PROJECT_ONLINE_URL", "not-a-url")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownSolutionType(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SOLUTION_TYPE", "SomethingElse")
	_, err := Load()
	assert.Error(t, err)
}

func TestTenantRootReturnsSchemeAndHostOnly(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://contoso.sharepoint.com", cfg.TenantRoot())
}
