package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gobuffalo/envy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(key, fallback string) string {
	return func(key, fallback string) string {
		if v, ok := values[key]; ok {
			return v
		}
		return fallback
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Second, cfg.Mipmap.ReadbackTimeout.Duration)
	assert.Equal(t, AwaitBlocking, cfg.Mipmap.Await)
	assert.Equal(t, "linear", cfg.Renderer.FormatPolicy)
	assert.Len(t, cfg.DeviceOptions(), 5)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxy.toml")
	doc := `
[window]
title = "mips"
width = 640

[renderer]
alpha_blend = true

[mipmap]
levels = 4
readback_level = 3
readback_timeout = "250ms"
await = "cooperative"

[profiler]
enabled = true
interval = "2s"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mips", cfg.Window.Title)
	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height, "unset keys keep their defaults")
	assert.True(t, cfg.Renderer.AlphaBlend)
	assert.Equal(t, uint32(4), cfg.Mipmap.Levels)
	assert.Equal(t, uint32(3), cfg.Mipmap.ReadbackLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.Mipmap.ReadbackTimeout.Duration)
	assert.Equal(t, AwaitCooperative, cfg.Mipmap.Await)
	assert.True(t, cfg.Profiler.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Profiler.Interval.Duration)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorContains(t, err, "read config")

	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("[window]\ncolour = 3\n"), 0o644))
	_, err = Load(unknown)
	assert.ErrorContains(t, err, "colour")

	invalid := filepath.Join(dir, "invalid.toml")
	require.NoError(t, os.WriteFile(invalid, []byte("[mipmap]\nawait = \"spin\"\n"), 0o644))
	_, err = Load(invalid)
	assert.ErrorContains(t, err, "unknown await strategy")
}

func TestLoadWithEnvironment(t *testing.T) {
	t.Setenv(EnvWidth, "800")
	t.Setenv(EnvPresentMode, "uncapped")
	t.Setenv(EnvReadbackTimeout, "1s")
	envy.Reload()
	t.Cleanup(envy.Reload)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, "uncapped", cfg.Renderer.PresentMode)
	assert.Equal(t, time.Second, cfg.Mipmap.ReadbackTimeout.Duration)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		EnvHeight:        "480",
		EnvMipLevels:     "5",
		EnvReadbackLevel: "2",
		EnvForceFallback: "true",
		EnvFormatPolicy:  "srgb",
		EnvLogLevel:      "debug",
		EnvWGPULogLevel:  "trace",
	}))
	require.NoError(t, err)
	assert.Equal(t, 480, cfg.Window.Height)
	assert.Equal(t, uint32(5), cfg.Mipmap.Levels)
	assert.Equal(t, uint32(2), cfg.Mipmap.ReadbackLevel)
	assert.True(t, cfg.Renderer.ForceFallbackAdapter)
	assert.Equal(t, "srgb", cfg.Renderer.FormatPolicy)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "trace", cfg.Log.WGPULevel)

	cfg = Default()
	err = cfg.ApplyEnv(envMap(map[string]string{
		EnvWidth:           "wide",
		EnvForceFallback:   "maybe",
		EnvReadbackTimeout: "soon",
	}))
	require.Error(t, err)
	assert.ErrorContains(t, err, EnvWidth)
	assert.ErrorContains(t, err, EnvForceFallback)
	assert.ErrorContains(t, err, EnvReadbackTimeout)
	assert.Equal(t, 1280, cfg.Window.Width, "malformed values leave the setting untouched")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "zero width", mutate: func(c *Config) { c.Window.Width = 0 }, wantErr: "window is 0x720"},
		{name: "present mode", mutate: func(c *Config) { c.Renderer.PresentMode = "mailbox" }, wantErr: "unknown present mode"},
		{name: "format policy", mutate: func(c *Config) { c.Renderer.FormatPolicy = "hdr" }, wantErr: "unknown format policy"},
		{name: "limits profile", mutate: func(c *Config) { c.Renderer.LimitsProfile = "tiny" }, wantErr: "unknown limits profile"},
		{name: "log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "loud"},
		{name: "readback level", mutate: func(c *Config) { c.Mipmap.Levels = 2; c.Mipmap.ReadbackLevel = 2 }, wantErr: "readback level 2"},
		{name: "timeout", mutate: func(c *Config) { c.Mipmap.ReadbackTimeout = Duration{} }, wantErr: "readback timeout"},
		{name: "await", mutate: func(c *Config) { c.Mipmap.Await = "spin" }, wantErr: "unknown await strategy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestLevelCount(t *testing.T) {
	levels, err := MipmapConfig{}.LevelCount(256, 256)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), levels)

	levels, err = MipmapConfig{Levels: 3, ReadbackLevel: 2}.LevelCount(16, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), levels)

	_, err = MipmapConfig{Levels: 10}.LevelCount(256, 256)
	assert.ErrorIs(t, err, common.ErrInvalidMipCount)

	_, err = MipmapConfig{ReadbackLevel: 9}.LevelCount(256, 256)
	assert.ErrorIs(t, err, common.ErrInvalidMipCount)
}

func TestEncodeRoundTripsDurations(t *testing.T) {
	cfg := Default()
	cfg.Mipmap.ReadbackTimeout = Duration{1500 * time.Millisecond}

	data, err := Encode(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1.5s")

	decoded := Config{}
	require.NoError(t, Decode(data, &decoded))
	assert.Equal(t, cfg, decoded)
}

func TestColor(t *testing.T) {
	assert.Equal(t, wgpu.Color{R: 1, G: 0.5, B: 0, A: 1}, Color([4]float64{1, 0.5, 0, 1}))
}
