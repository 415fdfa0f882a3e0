package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/Carmen-Shannon/oxy-mip/engine/device"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gobuffalo/envy"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
)

// Await strategies for mip readbacks.
const (
	AwaitBlocking    = "blocking"
	AwaitCooperative = "cooperative"
)

// Environment variables that override file settings.
const (
	EnvWidth           = "OXY_WIDTH"
	EnvHeight          = "OXY_HEIGHT"
	EnvPresentMode     = "OXY_PRESENT_MODE"
	EnvFormatPolicy    = "OXY_FORMAT_POLICY"
	EnvForceFallback   = "OXY_FORCE_FALLBACK"
	EnvMipLevels       = "OXY_MIP_LEVELS"
	EnvReadbackLevel   = "OXY_READBACK_LEVEL"
	EnvReadbackTimeout = "OXY_READBACK_TIMEOUT"
	EnvLogLevel        = "OXY_LOG_LEVEL"
	EnvWGPULogLevel    = "WGPU_LOG_LEVEL"
)

// Duration is a time.Duration written as a Go duration string ("5s", "250ms") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the complete configuration of both binaries.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Mipmap   MipmapConfig   `toml:"mipmap"`
	Profiler ProfilerConfig `toml:"profiler"`
}

// LogConfig sets the logrus level and the wgpu-native log level.
type LogConfig struct {
	Level     string `toml:"level"`
	WGPULevel string `toml:"wgpu_level"`
}

// WindowConfig describes the viewer window.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// RendererConfig selects the device and surface settings.
type RendererConfig struct {
	PresentMode          string     `toml:"present_mode"`
	FormatPolicy         string     `toml:"format_policy"`
	LimitsProfile        string     `toml:"limits_profile"`
	ForceFallbackAdapter bool       `toml:"force_fallback_adapter"`
	AlphaBlend           bool       `toml:"alpha_blend"`
	ClearColor           [4]float64 `toml:"clear_color"`
}

// MipmapConfig drives the offline mip tool. Levels 0 means the full chain of the input image.
type MipmapConfig struct {
	Levels          uint32     `toml:"levels"`
	ReadbackLevel   uint32     `toml:"readback_level"`
	ReadbackTimeout Duration   `toml:"readback_timeout"`
	Await           string     `toml:"await"`
	DepadWorkers    int        `toml:"depad_workers"`
	PassClearColor  [4]float64 `toml:"pass_clear_color"`
}

// ProfilerConfig controls the frame time report.
type ProfilerConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"`
}

// Default returns a complete configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:     "info",
			WGPULevel: "warn",
		},
		Window: WindowConfig{
			Title:  "oxy-view",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			PresentMode:  "vsync",
			FormatPolicy: "linear",
			ClearColor:   [4]float64{0, 0, 0, 1},
		},
		Mipmap: MipmapConfig{
			Levels:          0,
			ReadbackLevel:   0,
			ReadbackTimeout: Duration{5 * time.Second},
			Await:           AwaitBlocking,
			PassClearColor:  [4]float64{1, 1, 1, 1},
		},
		Profiler: ProfilerConfig{
			Enabled:  false,
			Interval: Duration{time.Second},
		},
	}
}

// Load reads the defaults, then the TOML file at path (skipped when path is empty), then environment
// overrides, and validates the result.
//
// Parameters:
//   - path: the TOML file, or "" for defaults and environment only
//
// Returns:
//   - Config: the loaded configuration
//   - error: error if the file cannot be read or parsed, an override is malformed, or validation fails
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := Decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(envy.Get); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode parses TOML into cfg, keeping values the document does not set. Unknown keys are an error.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return errors.New(strict.String())
		}
		return err
	}
	return nil
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// ApplyEnv overrides settings from the environment. get returns the fallback when a variable is unset,
// matching envy.Get, which also reads a .env file when present.
//
// Parameters:
//   - get: the lookup function, usually envy.Get
//
// Returns:
//   - error: error naming the first malformed variable
func (c *Config) ApplyEnv(get func(key, fallback string) string) error {
	var errs []error
	intVar := func(key string, dst *int) {
		if v := get(key, ""); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	uintVar := func(key string, dst *uint32) {
		if v := get(key, ""); v != "" {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = uint32(n)
		}
	}

	intVar(EnvWidth, &c.Window.Width)
	intVar(EnvHeight, &c.Window.Height)
	uintVar(EnvMipLevels, &c.Mipmap.Levels)
	uintVar(EnvReadbackLevel, &c.Mipmap.ReadbackLevel)

	c.Renderer.PresentMode = get(EnvPresentMode, c.Renderer.PresentMode)
	c.Renderer.FormatPolicy = get(EnvFormatPolicy, c.Renderer.FormatPolicy)
	c.Log.Level = get(EnvLogLevel, c.Log.Level)
	c.Log.WGPULevel = get(EnvWGPULogLevel, c.Log.WGPULevel)

	if v := get(EnvForceFallback, ""); v != "" {
		force, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvForceFallback, err))
		} else {
			c.Renderer.ForceFallbackAdapter = force
		}
	}
	if v := get(EnvReadbackTimeout, ""); v != "" {
		if err := c.Mipmap.ReadbackTimeout.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvReadbackTimeout, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("environment overrides: %w", errors.Join(errs...))
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("%w: window is %dx%d", common.ErrInvalidDimensions, c.Window.Width, c.Window.Height))
	}
	if _, ok := device.ParsePresentMode(c.Renderer.PresentMode); !ok {
		errs = append(errs, fmt.Errorf("unknown present mode %q", c.Renderer.PresentMode))
	}
	if _, ok := device.ParseFormatPolicy(c.Renderer.FormatPolicy); !ok {
		errs = append(errs, fmt.Errorf("unknown format policy %q", c.Renderer.FormatPolicy))
	}
	if _, ok := device.ParseLimitsProfile(c.Renderer.LimitsProfile); !ok {
		errs = append(errs, fmt.Errorf("unknown limits profile %q", c.Renderer.LimitsProfile))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Mipmap.Levels > 0 && c.Mipmap.ReadbackLevel >= c.Mipmap.Levels {
		errs = append(errs, fmt.Errorf("%w: readback level %d outside a %d level chain",
			common.ErrInvalidMipCount, c.Mipmap.ReadbackLevel, c.Mipmap.Levels))
	}
	if c.Mipmap.ReadbackTimeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("readback timeout must be positive, got %v", c.Mipmap.ReadbackTimeout.Duration))
	}
	if c.Mipmap.Await != AwaitBlocking && c.Mipmap.Await != AwaitCooperative {
		errs = append(errs, fmt.Errorf("unknown await strategy %q", c.Mipmap.Await))
	}
	return errors.Join(errs...)
}

// LevelCount resolves the configured level count for an image and checks the readback level against it.
//
// Parameters:
//   - width: the image width
//   - height: the image height
//
// Returns:
//   - uint32: the level count, the full chain when Levels is 0
//   - error: ErrInvalidMipCount if the count or the readback level does not fit the image
func (m MipmapConfig) LevelCount(width, height uint32) (uint32, error) {
	levels := m.Levels
	if levels == 0 {
		levels = common.MaxMipLevels(width, height)
	}
	if err := common.ValidateMipCount(width, height, levels); err != nil {
		return 0, err
	}
	if m.ReadbackLevel >= levels {
		return 0, fmt.Errorf("%w: readback level %d outside a %d level chain", common.ErrInvalidMipCount, m.ReadbackLevel, levels)
	}
	return levels, nil
}

// Color converts a configured RGBA color to a wgpu.Color.
func Color(c [4]float64) wgpu.Color {
	return wgpu.Color{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// DeviceOptions returns the device options for these renderer and log settings.
// Call Validate first; unparsable names fall back to their defaults.
func (c Config) DeviceOptions() []device.DeviceBuilderOption {
	presentMode, _ := device.ParsePresentMode(c.Renderer.PresentMode)
	formatPolicy, _ := device.ParseFormatPolicy(c.Renderer.FormatPolicy)
	limitsProfile, _ := device.ParseLimitsProfile(c.Renderer.LimitsProfile)
	return []device.DeviceBuilderOption{
		device.WithPresentMode(presentMode),
		device.WithFormatPolicy(formatPolicy),
		device.WithLimitsProfile(limitsProfile),
		device.WithForceFallbackAdapter(c.Renderer.ForceFallbackAdapter),
		device.WithWGPULogLevel(c.Log.WGPULevel),
	}
}

// ConfigureLogging applies the log level to the logrus standard logger.
func (c Config) ConfigureLogging() error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}
