package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no real config or
// .env file leaks in.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	t.Setenv("CONFIG_ENV", "test")
	return dir
}

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(body), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "kick", cfg.Backpressure)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	require.Len(t, cfg.RTC.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.RTC.ICEServers[0].URLs)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := inTempDir(t)
	writeConfig(t, dir, `
port: 9000
backpressure: drop
store:
  driver: none
rtc:
  ice_transport_policy: relay
  ice_servers:
    - urls: ["turn:turn.example.org:3478"]
      username: hub
      credential: s3cret
`)
	t.Setenv("CLASSROOM_PORT", "9100")
	t.Setenv("CLASSROOM_STORE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "drop", cfg.Backpressure)
	assert.Equal(t, "postgres", cfg.Store.Driver)

	rtc := cfg.WebRTC()
	assert.Equal(t, webrtc.ICETransportPolicyRelay, rtc.ICETransportPolicy)
	require.Len(t, rtc.ICEServers, 1)
	assert.Equal(t, "hub", rtc.ICEServers[0].Username)
	assert.Equal(t, "s3cret", rtc.ICEServers[0].Credential)
	assert.Equal(t, webrtc.ICECredentialTypePassword, rtc.ICEServers[0].CredentialType)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"backpressure":     "backpressure: spin\n",
		"driver":           "store:\n  driver: mongo\n",
		"ice policy":       "rtc:\n  ice_transport_policy: nohost-maybe\n",
		"log level":        "log_level: loud\n",
		"ping":             "ping_period: 90s\npong_wait: 60s\n",
		"buffer":           "send_buffer: 0\n",
		"history zero":     "history_limit: 0\n",
		"history negative": "history_limit: -1\n",
		"join limit":       "join_limit: 0\n",
		"join interval":    "join_interval: 0s\n",
		"persist timeout":  "persist_timeout: -1s\n",
		"write timeout":    "write_timeout: 0s\n",
		"read limit":       "read_limit: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := inTempDir(t)
			writeConfig(t, dir, body)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidateRejectsNonPositiveLimits(t *testing.T) {
	inTempDir(t)
	base, err := Load()
	require.NoError(t, err)
	require.NoError(t, base.Validate())

	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"negative history", func(c *Config) { c.HistoryLimit = -1 }},
		{"zero history", func(c *Config) { c.HistoryLimit = 0 }},
		{"zero join limit", func(c *Config) { c.JoinLimit = 0 }},
		{"zero join interval", func(c *Config) { c.JoinInterval = 0 }},
		{"negative persist timeout", func(c *Config) { c.PersistTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.edit(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadWatchedReloads(t *testing.T) {
	dir := inTempDir(t)
	writeConfig(t, dir, "log_level: info\n")

	var level atomic.Value
	cfg, err := LoadWatched(func(c *Config) { level.Store(c.LogLevel) })
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)

	// give the watcher a moment to install before editing
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, dir, "log_level: debug\n")

	require.Eventually(t, func() bool {
		v, _ := level.Load().(string)
		return v == "debug"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestNewLoggerFormat(t *testing.T) {
	tests := []struct {
		mode string
		json bool
	}{
		{"debug", false},
		{"release", true},
		{"test", true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			var buf bytes.Buffer
			logger := (&Config{Mode: tt.mode}).NewLogger(&buf)
			logger.Info().Str("module", "config").Msg("hello")

			var line map[string]any
			err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line)
			if !tt.json {
				assert.Error(t, err)
				assert.Contains(t, buf.String(), "hello")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "hello", line["message"])
			assert.Equal(t, "config", line["module"])
			assert.Contains(t, line, "time")
		})
	}
}
