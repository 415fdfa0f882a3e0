package device

import "github.com/cogentcore/webgpu/wgpu"

// FormatPolicy decides which of a surface's supported texture formats is configured.
type FormatPolicy int

const (
	// FormatPolicyPreferLinear picks the first format that is not sRGB color-corrected and
	// falls back to the first supported format when every format is sRGB.
	FormatPolicyPreferLinear FormatPolicy = iota

	// FormatPolicyPreferSrgb picks the first sRGB format, falling back to the first supported format.
	FormatPolicyPreferSrgb

	// FormatPolicyFirst always picks the first supported format.
	FormatPolicyFirst
)

// ParseFormatPolicy maps a config string ("linear", "srgb", "first") to a FormatPolicy.
// Unknown strings yield FormatPolicyPreferLinear and false.
func ParseFormatPolicy(s string) (FormatPolicy, bool) {
	switch s {
	case "linear", "":
		return FormatPolicyPreferLinear, true
	case "srgb":
		return FormatPolicyPreferSrgb, true
	case "first":
		return FormatPolicyFirst, true
	default:
		return FormatPolicyPreferLinear, false
	}
}

// Select applies the policy to a surface's supported formats.
//
// Parameters:
//   - formats: the formats reported by the surface capabilities, in preference order
//
// Returns:
//   - wgpu.TextureFormat: the chosen format
//   - bool: false when formats is empty
func (p FormatPolicy) Select(formats []wgpu.TextureFormat) (wgpu.TextureFormat, bool) {
	if len(formats) == 0 {
		return wgpu.TextureFormatUndefined, false
	}
	switch p {
	case FormatPolicyPreferLinear:
		for _, f := range formats {
			if !IsSrgb(f) {
				return f, true
			}
		}
	case FormatPolicyPreferSrgb:
		for _, f := range formats {
			if IsSrgb(f) {
				return f, true
			}
		}
	}
	return formats[0], true
}

// IsSrgb reports whether a presentable format applies sRGB color correction on write.
func IsSrgb(f wgpu.TextureFormat) bool {
	switch f {
	case wgpu.TextureFormatRGBA8UnormSrgb, wgpu.TextureFormatBGRA8UnormSrgb:
		return true
	default:
		return false
	}
}
