package device

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// DeviceBuilderOption is a functional option applied to a device during construction via NewDevice.
type DeviceBuilderOption func(*gpuDevice)

// WithSurface requests a presentable surface for the given platform descriptor at the given initial size.
// Without this option the device is headless.
//
// Parameters:
//   - descriptor: the platform surface descriptor, usually produced by the window
//   - width: the initial surface width in pixels, must be > 0
//   - height: the initial surface height in pixels, must be > 0
//
// Returns:
//   - DeviceBuilderOption: a function that applies the surface option to a device
func WithSurface(descriptor *wgpu.SurfaceDescriptor, width, height int) DeviceBuilderOption {
	return func(d *gpuDevice) {
		d.surfaceDescriptor = descriptor
		d.config.Width = uint32(max(width, 0))
		d.config.Height = uint32(max(height, 0))
	}
}

// WithPowerPreference sets the adapter power preference. The default lets the platform decide.
//
// Parameters:
//   - preference: the wgpu power preference
//
// Returns:
//   - DeviceBuilderOption: a function that applies the power preference option to a device
func WithPowerPreference(preference wgpu.PowerPreference) DeviceBuilderOption {
	return func(d *gpuDevice) {
		d.powerPreference = preference
	}
}

// WithForceFallbackAdapter forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the fallback adapter option to a device
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *gpuDevice) {
		d.forceFallbackAdapter = force
	}
}

// WithFormatPolicy sets how the surface format is chosen from the supported formats.
// The default is FormatPolicyPreferLinear.
//
// Parameters:
//   - policy: the FormatPolicy to apply
//
// Returns:
//   - DeviceBuilderOption: a function that applies the format policy option to a device
func WithFormatPolicy(policy FormatPolicy) DeviceBuilderOption {
	return func(d *gpuDevice) {
		d.formatPolicy = policy
	}
}

// WithPresentMode sets the surface present mode. Unsupported modes fall back to VSync.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the present mode option to a device
func WithPresentMode(mode PresentMode) DeviceBuilderOption {
	return func(d *gpuDevice) {
		d.presentMode = mode
	}
}

// WithLimitsProfile overrides the limits profile chosen from the build target.
//
// Parameters:
//   - profile: LimitsNative or LimitsWeb
//
// Returns:
//   - DeviceBuilderOption: a function that applies the limits option to a device
func WithLimitsProfile(profile LimitsProfile) DeviceBuilderOption {
	return func(d *gpuDevice) {
		d.limitsProfile = profile
	}
}

// WithWGPULogLevel sets the wgpu-native log level by name before the instance is created.
//
// Parameters:
//   - level: OFF, ERROR, WARN, INFO, DEBUG or TRACE
//
// Returns:
//   - DeviceBuilderOption: a function that applies the log level option to a device
func WithWGPULogLevel(level string) DeviceBuilderOption {
	return func(d *gpuDevice) {
		d.wgpuLogLevel = level
	}
}

// WithLabel sets the debug label of the logical device.
func WithLabel(label string) DeviceBuilderOption {
	return func(d *gpuDevice) {
		d.label = label
	}
}

// WithLogger sets the logger entry used by the device.
//
// Parameters:
//   - log: the logrus entry to log through
//
// Returns:
//   - DeviceBuilderOption: a function that applies the logger option to a device
func WithLogger(log *logrus.Entry) DeviceBuilderOption {
	return func(d *gpuDevice) {
		if log != nil {
			d.log = log.WithField("component", "device")
		}
	}
}
