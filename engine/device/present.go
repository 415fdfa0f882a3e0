package device

import "github.com/cogentcore/webgpu/wgpu"

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing. Every surface supports it.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ParsePresentMode maps a config string ("vsync", "uncapped") to a PresentMode.
func ParsePresentMode(s string) (PresentMode, bool) {
	switch s {
	case "vsync", "":
		return PresentModeVSync, true
	case "uncapped":
		return PresentModeUncapped, true
	default:
		return PresentModeVSync, false
	}
}

// Select returns the wgpu present mode for this PresentMode when the surface supports it,
// and FIFO otherwise.
func (m PresentMode) Select(supported []wgpu.PresentMode) wgpu.PresentMode {
	want := wgpu.PresentModeFifo
	if m == PresentModeUncapped {
		want = wgpu.PresentModeImmediate
	}
	for _, s := range supported {
		if s == want {
			return want
		}
	}
	return wgpu.PresentModeFifo
}
