package device

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newConfiguredDevice builds a surface-backed device whose configure call is recorded instead of reaching the GPU.
func newConfiguredDevice(width, height uint32) (*gpuDevice, *[]wgpu.SurfaceConfiguration, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	applied := &[]wgpu.SurfaceConfiguration{}
	d := &gpuDevice{
		log: logrus.NewEntry(logger),
		config: wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment,
			Format:      wgpu.TextureFormatBGRA8Unorm,
			Width:       width,
			Height:      height,
			PresentMode: wgpu.PresentModeFifo,
		},
	}
	d.apply = func(config *wgpu.SurfaceConfiguration) {
		*applied = append(*applied, *config)
	}
	return d, applied, hook
}

func TestResizeAppliesConfiguration(t *testing.T) {
	d, applied, _ := newConfiguredDevice(800, 600)

	require.True(t, d.Resize(1024, 768))
	require.Len(t, *applied, 1)
	assert.Equal(t, uint32(1024), (*applied)[0].Width)
	assert.Equal(t, uint32(768), (*applied)[0].Height)
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, (*applied)[0].Format)
	assert.Equal(t, wgpu.TextureUsageRenderAttachment, (*applied)[0].Usage)

	cfg := d.SurfaceConfig()
	assert.Equal(t, uint32(1024), cfg.Width)
	assert.Equal(t, uint32(768), cfg.Height)
}

func TestResizeIgnoresZeroDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"zero width", 0, 600},
		{"zero height", 800, 0},
		{"both zero", 0, 0},
		{"negative", -1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, applied, hook := newConfiguredDevice(640, 480)

			assert.False(t, d.Resize(tt.width, tt.height))
			assert.Empty(t, *applied)

			cfg := d.SurfaceConfig()
			assert.Equal(t, uint32(640), cfg.Width)
			assert.Equal(t, uint32(480), cfg.Height)

			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, "ignoring zero-sized resize", hook.LastEntry().Message)
		})
	}
}

func TestReconfigureReappliesCurrentConfiguration(t *testing.T) {
	d, applied, _ := newConfiguredDevice(320, 240)

	d.Reconfigure()
	d.Reconfigure()
	require.Len(t, *applied, 2)
	assert.Equal(t, (*applied)[0], (*applied)[1])
	assert.Equal(t, uint32(320), (*applied)[1].Width)
}

func TestHeadlessResizeStoresSize(t *testing.T) {
	d := &gpuDevice{log: logrus.NewEntry(logrus.New())}

	assert.False(t, d.HasSurface())
	assert.True(t, d.Resize(16, 8))
	assert.Equal(t, uint32(16), d.SurfaceConfig().Width)
	assert.InDelta(t, 2.0, d.AspectRatio(), 1e-6)
}

func TestAspectRatio(t *testing.T) {
	d, _, _ := newConfiguredDevice(1920, 1080)
	assert.InDelta(t, 16.0/9.0, d.AspectRatio(), 1e-5)

	degenerate, _, _ := newConfiguredDevice(300, 0)
	assert.InDelta(t, 300.0, degenerate.AspectRatio(), 1e-5)

	empty := &gpuDevice{}
	assert.Equal(t, float32(0), empty.AspectRatio())
}

func TestFormatPolicySelect(t *testing.T) {
	srgbFirst := []wgpu.TextureFormat{
		wgpu.TextureFormatBGRA8UnormSrgb,
		wgpu.TextureFormatBGRA8Unorm,
		wgpu.TextureFormatRGBA8UnormSrgb,
	}
	allSrgb := []wgpu.TextureFormat{wgpu.TextureFormatRGBA8UnormSrgb, wgpu.TextureFormatBGRA8UnormSrgb}
	allLinear := []wgpu.TextureFormat{wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatBGRA8Unorm}

	tests := []struct {
		name    string
		policy  FormatPolicy
		formats []wgpu.TextureFormat
		want    wgpu.TextureFormat
	}{
		{"linear skips srgb", FormatPolicyPreferLinear, srgbFirst, wgpu.TextureFormatBGRA8Unorm},
		{"linear falls back to first", FormatPolicyPreferLinear, allSrgb, wgpu.TextureFormatRGBA8UnormSrgb},
		{"srgb picks srgb", FormatPolicyPreferSrgb, []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb}, wgpu.TextureFormatBGRA8UnormSrgb},
		{"srgb falls back to first", FormatPolicyPreferSrgb, allLinear, wgpu.TextureFormatRGBA8Unorm},
		{"first", FormatPolicyFirst, srgbFirst, wgpu.TextureFormatBGRA8UnormSrgb},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.policy.Select(tt.formats)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := FormatPolicyPreferLinear.Select(nil)
	assert.False(t, ok)
}

func TestParseFormatPolicy(t *testing.T) {
	p, ok := ParseFormatPolicy("srgb")
	assert.True(t, ok)
	assert.Equal(t, FormatPolicyPreferSrgb, p)

	p, ok = ParseFormatPolicy("")
	assert.True(t, ok)
	assert.Equal(t, FormatPolicyPreferLinear, p)

	_, ok = ParseFormatPolicy("bogus")
	assert.False(t, ok)
}

func TestPresentModeSelect(t *testing.T) {
	both := []wgpu.PresentMode{wgpu.PresentModeFifo, wgpu.PresentModeImmediate}
	assert.Equal(t, wgpu.PresentModeFifo, PresentModeVSync.Select(both))
	assert.Equal(t, wgpu.PresentModeImmediate, PresentModeUncapped.Select(both))
	assert.Equal(t, wgpu.PresentModeFifo, PresentModeUncapped.Select([]wgpu.PresentMode{wgpu.PresentModeFifo}))
}

func TestLimitsProfile(t *testing.T) {
	native := LimitsNative.Limits()
	web := LimitsWeb.Limits()

	assert.Equal(t, uint32(8192), native.MaxTextureDimension1D)
	assert.Equal(t, uint32(8192), native.MaxTextureDimension2D)
	assert.Equal(t, uint32(2048), native.MaxTextureDimension3D)
	assert.Equal(t, uint32(256), native.MaxTextureArrayLayers)
	assert.Equal(t, uint32(2048), web.MaxTextureDimension1D)
	assert.Equal(t, uint32(2048), web.MaxTextureDimension2D)
	assert.Equal(t, uint32(256), web.MaxTextureDimension3D)
	assert.Equal(t, uint32(256), web.MaxTextureArrayLayers)
	for _, limits := range []wgpu.Limits{native, web} {
		assert.NotEqual(t, uint32(wgpu.LimitU32Undefined), limits.MaxTextureDimension2D)
	}
	assert.Greater(t, native.MaxTextureDimension2D, web.MaxTextureDimension2D)

	p, ok := ParseLimitsProfile("web")
	assert.True(t, ok)
	assert.Equal(t, LimitsWeb, p)
	assert.Equal(t, "web", p.String())
}

func TestNewDeviceRejectsZeroSizedSurface(t *testing.T) {
	_, err := NewDevice(WithSurface(&wgpu.SurfaceDescriptor{}, 0, 600))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidDimensions))
}

func TestNewHeadlessDevice(t *testing.T) {
	d, err := NewDevice(WithLabel("test device"))
	if errors.Is(err, common.ErrDeviceUnavailable) {
		t.Skipf("no GPU adapter: %v", err)
	}
	require.NoError(t, err)
	defer d.Release()

	assert.False(t, d.HasSurface())
	assert.NotNil(t, d.Device())
	assert.NotNil(t, d.Queue())
	requested := DefaultLimitsProfile().Limits()
	actual := d.Limits()
	assert.Equal(t, requested.MaxTextureDimension2D, actual.MaxTextureDimension2D)
	assert.NotEqual(t, uint32(wgpu.LimitU32Undefined), actual.MaxTextureDimension2D)
	assert.GreaterOrEqual(t, d.Device().GetLimits().Limits.MaxTextureDimension2D, actual.MaxTextureDimension2D)
	d.Poll(false)
}
