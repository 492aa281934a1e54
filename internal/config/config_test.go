package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("NETBOX_URL", "https://netbox.example.com/")
	t.Setenv("NETBOX_TOKEN", "0123456789abcdef")
	t.Setenv("NETBOX_SSL_VERIFY", "f")
	t.Setenv("NETBOX_OVERFETCH_FACTOR", "5")
	t.Setenv("NETBOX_MCP_JOURNAL_ENABLED", "off")

	cfg := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "https://netbox.example.com", cfg.NetBox.URL)
	assert.Equal(t, "0123456789abcdef", cfg.NetBox.Token)
	assert.False(t, cfg.NetBox.SSLVerify)
	assert.Equal(t, 5, cfg.NetBox.OverfetchFactor)
	assert.Equal(t, 30, cfg.NetBox.Timeout)
	assert.False(t, cfg.Journal.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("NETBOX_URL=http://nb.local\nNETBOX_TOKEN=secret\n"), 0600))

	// godotenv does not override variables that are already set.
	for _, key := range []string{"NETBOX_URL", "NETBOX_TOKEN"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := LoadConfig(envFile)
	assert.Equal(t, "http://nb.local", cfg.NetBox.URL)
	assert.Equal(t, "secret", cfg.NetBox.Token)
	assert.True(t, cfg.NetBox.SSLVerify)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing url", Config{NetBox: NetBoxConfig{Token: "x", OverfetchFactor: 3}}, "NETBOX_URL and NETBOX_TOKEN must be set"},
		{"missing token", Config{NetBox: NetBoxConfig{URL: "https://nb", OverfetchFactor: 3}}, "NETBOX_URL and NETBOX_TOKEN must be set"},
		{"bad scheme", Config{NetBox: NetBoxConfig{URL: "ftp://nb", Token: "x", OverfetchFactor: 3}}, "scheme must be http or https"},
		{"bad overfetch", Config{NetBox: NetBoxConfig{URL: "https://nb", Token: "x"}}, "overfetch factor"},
		{"ok", Config{NetBox: NetBoxConfig{URL: "https://nb", Token: "x", OverfetchFactor: 1}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	err := (&Config{}).Validate()
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestLoadConfigFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
netbox:
  url: https://yaml.example.com/
  ssl_verify: false
  max_retries: 0
journal:
  enabled: false
server:
  metrics_addr: ":9464"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg := &Config{NetBox: NetBoxConfig{Token: "from-env", SSLVerify: true, MaxRetries: 2}, Journal: JournalConfig{Enabled: true}}
	got, err := loadConfigFile(cfg, []string{filepath.Join(t.TempDir(), "nope.yaml"), path})
	require.NoError(t, err)

	assert.Equal(t, path, got)
	assert.Equal(t, "https://yaml.example.com", cfg.NetBox.URL)
	assert.Equal(t, "from-env", cfg.NetBox.Token)
	assert.False(t, cfg.NetBox.SSLVerify)
	assert.Equal(t, 0, cfg.NetBox.MaxRetries)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, ":9464", cfg.Server.MetricsAddr)
}

func TestLoadConfigFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"netbox":{"token":"json-token","overfetchFactor":4}}`), 0600))

	cfg := &Config{NetBox: NetBoxConfig{URL: "https://env", SSLVerify: true, OverfetchFactor: 3}}
	_, err := loadConfigFile(cfg, []string{path})
	require.NoError(t, err)

	assert.Equal(t, "https://env", cfg.NetBox.URL)
	assert.Equal(t, "json-token", cfg.NetBox.Token)
	assert.True(t, cfg.NetBox.SSLVerify)
	assert.Equal(t, 4, cfg.NetBox.OverfetchFactor)
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := loadConfigFile(&Config{}, []string{filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, err)
}

func TestGetEnvAsBool(t *testing.T) {
	for _, v := range []string{"true", "1", "t", "YES", "on"} {
		t.Setenv("NB_TEST_BOOL", v)
		assert.True(t, getEnvAsBool("NB_TEST_BOOL", false), v)
	}
	for _, v := range []string{"false", "0", "no", "garbage"} {
		t.Setenv("NB_TEST_BOOL", v)
		assert.False(t, getEnvAsBool("NB_TEST_BOOL", true), v)
	}
	os.Unsetenv("NB_TEST_BOOL")
	assert.True(t, getEnvAsBool("NB_TEST_BOOL", true))
}
