package common

import "errors"

// Error taxonomy shared by every engine component. Callers match with errors.Is; components wrap
// these with fmt.Errorf("...: %w", err) to add context.
var (
	// ErrDeviceUnavailable is returned when no adapter or logical device could be obtained.
	// It is fatal: without a device nothing else can run.
	ErrDeviceUnavailable = errors.New("gpu device unavailable")

	// ErrSurfaceLost is returned when the swapchain texture cannot be acquired because the surface
	// was lost or became outdated. The frame is skipped and retried on the next redraw.
	ErrSurfaceLost = errors.New("surface lost")

	// ErrTimeout is returned when acquiring the swapchain texture timed out. The frame is skipped
	// and retried on the next redraw.
	ErrTimeout = errors.New("surface texture acquire timed out")

	// ErrUnsupportedUsage is returned when a texture is requested with a usage combination the
	// format or device cannot provide.
	ErrUnsupportedUsage = errors.New("unsupported texture usage")

	// ErrInvalidMipCount is returned when a mip level count is zero or exceeds the full chain
	// length for the base dimensions.
	ErrInvalidMipCount = errors.New("invalid mip level count")

	// ErrReadbackTimeout is returned when a staging buffer map callback did not fire within the
	// bounded wait. The caller may retry the whole copy and map sequence.
	ErrReadbackTimeout = errors.New("readback map timed out")

	// ErrUseAfterUnmap is returned when a mapped region is accessed after it was released.
	ErrUseAfterUnmap = errors.New("mapped region used after unmap")

	// ErrInvalidDimensions is returned when a width or height of zero reaches an operation that
	// needs a real extent.
	ErrInvalidDimensions = errors.New("invalid dimensions")
)
