package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[logger]
log-level = "debug"

[node]
host = "0.0.0.0"
universes = ["0", "1", "0:1.2"]
reuse-port = true
read-timeout = "250ms"
watch = ["0/1", "0:1.2/511"]

[mqtt]
enabled = true
server = "broker"
qos = 1
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conf.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "text", cfg.Logger.Format)
	assert.Equal(t, DefaultPort, cfg.Node.Port)
	assert.True(t, cfg.Node.ReusePort)
	assert.Equal(t, 250*time.Millisecond, cfg.Node.ReadTimeout.Duration)
	assert.Equal(t, time.Minute, cfg.Node.StatsInterval.Duration)

	universes, err := cfg.Node.AllowedUniverses()
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 1, 0x0012}, universes)

	watch, err := cfg.Node.WatchPoints()
	require.NoError(t, err)
	assert.Equal(t, []WatchPoint{{Universe: 0, Channel: 1}, {Universe: 0x0012, Channel: 511}}, watch)

	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "broker", cfg.MQTT.Host)
	assert.Equal(t, "1883", cfg.MQTT.Port)
	assert.Equal(t, byte(1), cfg.MQTT.Qos)
	assert.Equal(t, "artnet", cfg.MQTT.TopicPrefix)
}

func TestNewConfigEnvUniverses(t *testing.T) {
	t.Setenv("ARTNET_UNIVERSES", "3, 4,,5")

	cfg, err := NewConfig(writeConfig(t, sample))
	require.NoError(t, err)

	universes, err := cfg.Node.AllowedUniverses()
	require.NoError(t, err)
	assert.Equal(t, []uint16{3, 4, 5}, universes)
}

func TestNewConfigEnvUniversesEmptyAcceptsAll(t *testing.T) {
	t.Setenv("ARTNET_UNIVERSES", "")

	cfg, err := NewConfig(writeConfig(t, sample))
	require.NoError(t, err)

	universes, err := cfg.Node.AllowedUniverses()
	require.NoError(t, err)
	assert.Nil(t, universes)
}

func TestNewConfigMissingFile(t *testing.T) {
	_, err := NewConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestNewConfigBadPort(t *testing.T) {
	_, err := NewConfig(writeConfig(t, "[node]\nport = 70000\n"))
	require.Error(t, err)
}

func TestAllowedUniversesEmpty(t *testing.T) {
	universes, err := NodeConf{}.AllowedUniverses()
	require.NoError(t, err)
	assert.Nil(t, universes)
}

func TestParseUniverse(t *testing.T) {
	tests := []struct {
		in      interface{}
		want    uint16
		wantErr bool
	}{
		{in: int64(0), want: 0},
		{in: int64(32767), want: 0x7fff},
		{in: "17", want: 17},
		{in: "1:2.3", want: 0x0123},
		{in: " 127:15.15 ", want: 0x7fff},
		{in: int64(32768), wantErr: true},
		{in: int64(-1), wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1:2", wantErr: true},
		{in: "128:0.0", wantErr: true},
		{in: "0:16.0", wantErr: true},
		{in: "0:0.16", wantErr: true},
		{in: "65536", wantErr: true},
		{in: int64(65536), wantErr: true},
		{in: int64(70000), wantErr: true},
		{in: "256:0.1", wantErr: true},
		{in: "0:256.1", wantErr: true},
		{in: "0:0.257", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseUniverse(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %v", tt.in)
			continue
		}
		require.NoError(t, err, "input %v", tt.in)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
	}
}

func TestWatchPointsInvalid(t *testing.T) {
	for _, w := range []string{"1", "1/512", "x/1", "1/x", "0/65536", "0/66048", "65536/0"} {
		_, err := NodeConf{Watch: []string{w}}.WatchPoints()
		assert.Error(t, err, w)
	}
}
