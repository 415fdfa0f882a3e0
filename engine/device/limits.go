package device

import (
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// LimitsProfile selects the device limits requested for the target platform.
type LimitsProfile int

const (
	// LimitsNative requests the WebGPU default texture limits: 8192 texel 1D/2D textures, 2048 texel 3D
	// textures and 256 array layers. Other limits are left to the adapter.
	LimitsNative LimitsProfile = iota

	// LimitsWeb requests the constrained downlevel limits browsers guarantee (2048 texel 2D textures).
	LimitsWeb
)

// Texture edges requested per profile. wgpu.DefaultLimits leaves every field undefined, so both
// profiles set the texture limits explicitly.
const (
	nativeMaxTextureDimension   = 8192
	nativeMaxTextureDimension3D = 2048
	webMaxTextureDimension      = 2048
	webMaxTextureDimension3D    = 256
	maxTextureArrayLayers       = 256
)

// DefaultLimitsProfile returns LimitsWeb when compiled for js/wasm and LimitsNative otherwise.
func DefaultLimitsProfile() LimitsProfile {
	if runtime.GOOS == "js" {
		return LimitsWeb
	}
	return LimitsNative
}

// ParseLimitsProfile maps a config string ("native", "web") to a LimitsProfile.
func ParseLimitsProfile(s string) (LimitsProfile, bool) {
	switch s {
	case "native":
		return LimitsNative, true
	case "web":
		return LimitsWeb, true
	case "":
		return DefaultLimitsProfile(), true
	default:
		return DefaultLimitsProfile(), false
	}
}

// Limits returns the limits to request from the adapter for this profile.
func (p LimitsProfile) Limits() wgpu.Limits {
	limits := wgpu.DefaultLimits()
	limits.MaxTextureArrayLayers = maxTextureArrayLayers
	if p == LimitsWeb {
		limits.MaxTextureDimension1D = webMaxTextureDimension
		limits.MaxTextureDimension2D = webMaxTextureDimension
		limits.MaxTextureDimension3D = webMaxTextureDimension3D
		return limits
	}
	limits.MaxTextureDimension1D = nativeMaxTextureDimension
	limits.MaxTextureDimension2D = nativeMaxTextureDimension
	limits.MaxTextureDimension3D = nativeMaxTextureDimension3D
	return limits
}

func (p LimitsProfile) String() string {
	if p == LimitsWeb {
		return "web"
	}
	return "native"
}
