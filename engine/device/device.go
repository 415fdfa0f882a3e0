package device

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// Device owns the graphics device, its command queue and, for windowed use, the presentable surface
// together with its configuration.
//
// A Device is driven by a single owner. None of its methods lock; resize and draw calls must come from
// the same goroutine.
type Device interface {
	// Device returns the logical wgpu device.
	Device() *wgpu.Device

	// Queue returns the device's command queue.
	Queue() *wgpu.Queue

	// Adapter returns the physical adapter the device was requested from.
	Adapter() *wgpu.Adapter

	// Surface returns the presentable surface, or nil for a headless device.
	Surface() *wgpu.Surface

	// HasSurface reports whether the device was created with a surface target.
	HasSurface() bool

	// SurfaceConfig returns a copy of the configuration last applied to the surface.
	// For a headless device only Width and Height are meaningful.
	//
	// Returns:
	//   - wgpu.SurfaceConfiguration: the current surface configuration
	SurfaceConfig() wgpu.SurfaceConfiguration

	// Limits returns the limits the device was requested with.
	Limits() wgpu.Limits

	// Resize updates the stored surface configuration and reapplies it to the surface.
	// A resize with either dimension at 0 (a minimized window) is ignored and leaves the prior
	// configuration untouched.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	//
	// Returns:
	//   - bool: true if the configuration was changed and reapplied
	Resize(width, height int) bool

	// Reconfigure reapplies the current configuration to the surface, used to recover a lost or outdated surface.
	Reconfigure()

	// AspectRatio returns width / max(height, 1) of the current configuration.
	AspectRatio() float32

	// Poll drives the device's pending callbacks, such as buffer map completions.
	//
	// Parameters:
	//   - wait: true to block until the queue is idle, false to only process what is already complete
	Poll(wait bool)

	// Release frees the queue, device, adapter and surface. The Device must not be used afterwards.
	Release()
}

type gpuDevice struct {
	log *logrus.Entry

	device  *wgpu.Device
	queue   *wgpu.Queue
	adapter *wgpu.Adapter
	surface *wgpu.Surface

	config wgpu.SurfaceConfiguration
	limits wgpu.Limits

	// apply pushes a configuration to the surface. Nil for headless devices.
	apply func(config *wgpu.SurfaceConfiguration)

	// Pre-creation config collected from builder options
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	powerPreference      wgpu.PowerPreference
	forceFallbackAdapter bool
	formatPolicy         FormatPolicy
	presentMode          PresentMode
	limitsProfile        LimitsProfile
	wgpuLogLevel         string
	label                string
}

var _ Device = &gpuDevice{}

// NewDevice selects an adapter, requests a device and queue with the limits of the configured profile and,
// when a surface descriptor is given, configures the surface for render attachment use.
//
// Parameters:
//   - options: DeviceBuilderOptions applied before any GPU object is created
//
// Returns:
//   - Device: the created Device
//   - error: ErrDeviceUnavailable wrapping the cause if no adapter or device could be obtained,
//     ErrInvalidDimensions if a surface is requested with a zero size
func NewDevice(options ...DeviceBuilderOption) (dev Device, err error) {
	d := &gpuDevice{
		log:           logrus.WithField("component", "device"),
		limitsProfile: DefaultLimitsProfile(),
		presentMode:   PresentModeVSync,
		label:         "Main Device",
	}
	for _, option := range options {
		option(d)
	}

	defer func() {
		if err != nil {
			d.Release()
			dev = nil
		}
	}()

	if d.surfaceDescriptor != nil && (d.config.Width == 0 || d.config.Height == 0) {
		return nil, fmt.Errorf("%w: surface size %dx%d", common.ErrInvalidDimensions, d.config.Width, d.config.Height)
	}

	ApplyLogLevel(d.wgpuLogLevel)

	// wgpu-native expects the thread that created the surface to keep driving it.
	runtime.LockOSThread()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	if d.surfaceDescriptor != nil {
		d.surface = instance.CreateSurface(d.surfaceDescriptor)
	}

	d.adapter, err = instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      d.powerPreference,
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: request adapter: %v", common.ErrDeviceUnavailable, err)
	}
	if d.adapter == nil {
		return nil, fmt.Errorf("%w: no compatible adapter", common.ErrDeviceUnavailable)
	}

	d.limits = d.limitsProfile.Limits()
	d.device, err = d.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: d.label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: d.limits,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: request device: %v", common.ErrDeviceUnavailable, err)
	}
	d.queue = d.device.GetQueue()

	d.log.WithFields(logrus.Fields{
		"limits":         d.limitsProfile.String(),
		"max_texture_2d": d.limits.MaxTextureDimension2D,
		"fallback":       d.forceFallbackAdapter,
	}).Info("device created")

	if d.surface != nil {
		if err := d.negotiateSurface(); err != nil {
			return nil, err
		}
		d.Reconfigure()
	}

	return d, nil
}

// negotiateSurface fills the stored configuration from the surface capabilities.
func (d *gpuDevice) negotiateSurface() error {
	capabilities := d.surface.GetCapabilities(d.adapter)

	format, ok := d.formatPolicy.Select(capabilities.Formats)
	if !ok {
		return fmt.Errorf("%w: surface reports no formats for this adapter", common.ErrDeviceUnavailable)
	}

	alphaMode := wgpu.CompositeAlphaModeAuto
	if len(capabilities.AlphaModes) > 0 {
		alphaMode = capabilities.AlphaModes[0]
	}

	d.config.Usage = wgpu.TextureUsageRenderAttachment
	d.config.Format = format
	d.config.PresentMode = d.presentMode.Select(capabilities.PresentModes)
	d.config.AlphaMode = alphaMode

	d.apply = func(config *wgpu.SurfaceConfiguration) {
		d.surface.Configure(d.adapter, d.device, config)
	}

	d.log.WithFields(logrus.Fields{
		"format":       format,
		"srgb":         IsSrgb(format),
		"present_mode": d.config.PresentMode,
	}).Info("surface negotiated")
	return nil
}

func (d *gpuDevice) Device() *wgpu.Device {
	return d.device
}

func (d *gpuDevice) Queue() *wgpu.Queue {
	return d.queue
}

func (d *gpuDevice) Adapter() *wgpu.Adapter {
	return d.adapter
}

func (d *gpuDevice) Surface() *wgpu.Surface {
	return d.surface
}

func (d *gpuDevice) HasSurface() bool {
	return d.surface != nil
}

func (d *gpuDevice) SurfaceConfig() wgpu.SurfaceConfiguration {
	return d.config
}

func (d *gpuDevice) Limits() wgpu.Limits {
	return d.limits
}

func (d *gpuDevice) Resize(width, height int) bool {
	if width <= 0 || height <= 0 {
		d.log.WithFields(logrus.Fields{"width": width, "height": height}).Debug("ignoring zero-sized resize")
		return false
	}
	d.config.Width = uint32(width)
	d.config.Height = uint32(height)
	d.Reconfigure()
	d.log.WithFields(logrus.Fields{"width": width, "height": height}).Debug("surface resized")
	return true
}

func (d *gpuDevice) Reconfigure() {
	if d.apply == nil || d.config.Width == 0 || d.config.Height == 0 {
		return
	}
	config := d.config
	d.apply(&config)
}

func (d *gpuDevice) AspectRatio() float32 {
	return float32(d.config.Width) / math32.Max(float32(d.config.Height), 1)
}

func (d *gpuDevice) Poll(wait bool) {
	if d.device == nil {
		return
	}
	d.device.Poll(wait, nil)
}

func (d *gpuDevice) Release() {
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	d.apply = nil
}

// ApplyLogLevel sets the wgpu-native log level from a name (OFF, ERROR, WARN, INFO, DEBUG, TRACE).
// Unknown or empty names leave the level unchanged.
//
// Parameters:
//   - level: the case-insensitive level name, usually the WGPU_LOG_LEVEL environment variable
func ApplyLogLevel(level string) {
	switch strings.ToUpper(level) {
	case "OFF":
		wgpu.SetLogLevel(wgpu.LogLevelOff)
	case "ERROR":
		wgpu.SetLogLevel(wgpu.LogLevelError)
	case "WARN":
		wgpu.SetLogLevel(wgpu.LogLevelWarn)
	case "INFO":
		wgpu.SetLogLevel(wgpu.LogLevelInfo)
	case "DEBUG":
		wgpu.SetLogLevel(wgpu.LogLevelDebug)
	case "TRACE":
		wgpu.SetLogLevel(wgpu.LogLevelTrace)
	}
}
