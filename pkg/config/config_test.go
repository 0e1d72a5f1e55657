package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("ONEVIEWSDK_IP", "10.0.0.1")
	t.Setenv("ONEVIEWSDK_USERNAME", "admin")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", cfg.IP)
	assert.Equal(t, "admin", cfg.Credentials.UserName)
	assert.Equal(t, 800, cfg.APIVersion)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 2*time.Second, cfg.TaskPollInterval)
	assert.Equal(t, time.Hour, cfg.TaskTimeout)
	assert.Equal(t, "https://10.0.0.1", cfg.BaseURL())
	assert.Empty(t, cfg.StreamerURL())
}

func TestLoadFileOverridesEnvironment(t *testing.T) {
	t.Setenv("ONEVIEWSDK_IP", "10.0.0.1")
	t.Setenv("ONEVIEWSDK_USERNAME", "env-user")
	t.Setenv("ONEVIEWSDK_PASSWORD", "env-pass")

	path := filepath.Join(t.TempDir(), "oneview_config.json")
	content := `{
		"ip": "172.16.1.1",
		"credentials": {"userName": "file-user", "authLoginDomain": "LOCAL"},
		"api_version": 1200,
		"image_streamer_ip": "172.16.1.2",
		"timeout": 5
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "172.16.1.1", cfg.IP)
	assert.Equal(t, "file-user", cfg.Credentials.UserName)
	assert.Equal(t, "env-pass", cfg.Credentials.Password)
	assert.Equal(t, "LOCAL", cfg.Credentials.AuthLoginDomain)
	assert.Equal(t, 1200, cfg.APIVersion)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 2*time.Second, cfg.TaskPollInterval)
	assert.Equal(t, "https://172.16.1.2", cfg.StreamerURL())
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("ONEVIEWSDK_IP", "")
	t.Setenv("ONEVIEWSDK_USERNAME", "")
	t.Setenv("ONEVIEWSDK_SESSIONID", "")

	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0600))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Controller
		wantErr bool
	}{
		{name: "user name", cfg: Controller{IP: "h", APIVersion: 800, Credentials: Credentials{UserName: "u"}}},
		{name: "session id", cfg: Controller{IP: "h", APIVersion: 800, SessionID: "s"}},
		{name: "missing ip", cfg: Controller{APIVersion: 800, SessionID: "s"}, wantErr: true},
		{name: "missing credentials", cfg: Controller{IP: "h", APIVersion: 800}, wantErr: true},
		{name: "bad api version", cfg: Controller{IP: "h", SessionID: "s"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEndpointKeepsScheme(t *testing.T) {
	cfg := Controller{IP: "http://127.0.0.1:8080"}
	assert.Equal(t, "http://127.0.0.1:8080", cfg.BaseURL())
}
