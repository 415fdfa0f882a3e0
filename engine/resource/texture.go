package resource

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// knownTextureUsage is every usage flag a 2D texture can carry.
const knownTextureUsage = wgpu.TextureUsageCopySrc |
	wgpu.TextureUsageCopyDst |
	wgpu.TextureUsageTextureBinding |
	wgpu.TextureUsageStorageBinding |
	wgpu.TextureUsageRenderAttachment

// storageFormats lists the formats usable as write-only storage textures without optional features.
var storageFormats = map[wgpu.TextureFormat]bool{
	wgpu.TextureFormatRGBA8Unorm:  true,
	wgpu.TextureFormatRGBA8Snorm:  true,
	wgpu.TextureFormatRGBA8Uint:   true,
	wgpu.TextureFormatRGBA8Sint:   true,
	wgpu.TextureFormatRGBA16Uint:  true,
	wgpu.TextureFormatRGBA16Sint:  true,
	wgpu.TextureFormatRGBA16Float: true,
	wgpu.TextureFormatR32Uint:     true,
	wgpu.TextureFormatR32Sint:     true,
	wgpu.TextureFormatR32Float:    true,
	wgpu.TextureFormatRG32Uint:    true,
	wgpu.TextureFormatRG32Sint:    true,
	wgpu.TextureFormatRG32Float:   true,
	wgpu.TextureFormatRGBA32Uint:  true,
	wgpu.TextureFormatRGBA32Sint:  true,
	wgpu.TextureFormatRGBA32Float: true,
}

// fourByteFormats lists the color formats with four one-byte channels, the texel layout of
// TextureStagingData and of readback rows.
var fourByteFormats = map[wgpu.TextureFormat]bool{
	wgpu.TextureFormatRGBA8Unorm:     true,
	wgpu.TextureFormatRGBA8UnormSrgb: true,
	wgpu.TextureFormatRGBA8Snorm:     true,
	wgpu.TextureFormatRGBA8Uint:      true,
	wgpu.TextureFormatRGBA8Sint:      true,
	wgpu.TextureFormatBGRA8Unorm:     true,
	wgpu.TextureFormatBGRA8UnormSrgb: true,
}

// HasFourByteTexels reports whether a format stores each texel as four 8-bit channels.
func HasFourByteTexels(format wgpu.TextureFormat) bool {
	return fourByteFormats[format]
}

// SupportsStorage reports whether a format can carry TextureUsageStorageBinding.
func SupportsStorage(format wgpu.TextureFormat) bool {
	return storageFormats[format]
}

// MipChainUsage returns the usage a texture needs to have its mip chain rendered and read back:
// sampled, copy destination, copy source and render target, plus storage when the format allows it.
func MipChainUsage(format wgpu.TextureFormat) wgpu.TextureUsage {
	usage := wgpu.TextureUsageTextureBinding |
		wgpu.TextureUsageCopyDst |
		wgpu.TextureUsageCopySrc |
		wgpu.TextureUsageRenderAttachment
	if SupportsStorage(format) {
		usage |= wgpu.TextureUsageStorageBinding
	}
	return usage
}

// TextureDescriptor describes a 2D texture to allocate.
type TextureDescriptor struct {
	// Label is the debug label of the texture.
	Label string
	// Width and Height are the dimensions of mip level 0 in texels.
	Width, Height uint32
	// MipLevelCount is fixed at creation; zero means 1.
	MipLevelCount uint32
	// Format is the texel format.
	Format wgpu.TextureFormat
	// Usage must include every capability the texture will be used for.
	Usage wgpu.TextureUsage
}

// ValidateTextureDescriptor checks a descriptor against the device limits and the usage rules for its format.
//
// Parameters:
//   - desc: the descriptor to check
//   - limits: the limits of the device the texture will be created on
//
// Returns:
//   - error: a wrapped ErrInvalidDimensions, ErrInvalidMipCount or ErrUnsupportedUsage, or nil
func ValidateTextureDescriptor(desc TextureDescriptor, limits wgpu.Limits) error {
	if desc.Width == 0 || desc.Height == 0 {
		return fmt.Errorf("%w: texture %q is %dx%d", common.ErrInvalidDimensions, desc.Label, desc.Width, desc.Height)
	}
	if limits.MaxTextureDimension2D > 0 && max(desc.Width, desc.Height) > limits.MaxTextureDimension2D {
		return fmt.Errorf("%w: texture %q is %dx%d, device allows %d", common.ErrInvalidDimensions,
			desc.Label, desc.Width, desc.Height, limits.MaxTextureDimension2D)
	}
	if err := common.ValidateMipCount(desc.Width, desc.Height, common.Coalesce(desc.MipLevelCount, 1)); err != nil {
		return fmt.Errorf("texture %q: %w", desc.Label, err)
	}

	switch {
	case desc.Format == wgpu.TextureFormatUndefined:
		return fmt.Errorf("%w: texture %q has no format", common.ErrUnsupportedUsage, desc.Label)
	case desc.Usage == 0:
		return fmt.Errorf("%w: texture %q has no usage", common.ErrUnsupportedUsage, desc.Label)
	case desc.Usage&^knownTextureUsage != 0:
		return fmt.Errorf("%w: texture %q has unknown usage bits %#x", common.ErrUnsupportedUsage, desc.Label, uint64(desc.Usage&^knownTextureUsage))
	case desc.Usage&wgpu.TextureUsageStorageBinding != 0 && !SupportsStorage(desc.Format):
		return fmt.Errorf("%w: texture %q format %v cannot be a storage texture", common.ErrUnsupportedUsage, desc.Label, desc.Format)
	}
	return nil
}

// Texture is an allocated 2D texture together with the descriptor it was created from.
// Its mip level count never changes; regenerating mips renders into the existing levels.
type Texture struct {
	handle *wgpu.Texture
	desc   TextureDescriptor
}

// Handle returns the GPU texture.
func (t *Texture) Handle() *wgpu.Texture {
	return t.handle
}

func (t *Texture) Label() string {
	return t.desc.Label
}

func (t *Texture) Format() wgpu.TextureFormat {
	return t.desc.Format
}

func (t *Texture) Width() uint32 {
	return t.desc.Width
}

func (t *Texture) Height() uint32 {
	return t.desc.Height
}

func (t *Texture) MipLevelCount() uint32 {
	return common.Coalesce(t.desc.MipLevelCount, 1)
}

func (t *Texture) Usage() wgpu.TextureUsage {
	return t.desc.Usage
}

// HasUsage reports whether every flag in usage was requested at creation.
func (t *Texture) HasUsage(usage wgpu.TextureUsage) bool {
	return t.desc.Usage&usage == usage
}

// LevelSize returns the dimensions of a mip level of this texture.
func (t *Texture) LevelSize(level uint32) (uint32, uint32) {
	return common.MipLevelSize(t.desc.Width, t.desc.Height, level)
}

// Release frees the GPU texture.
func (t *Texture) Release() {
	if t.handle != nil {
		t.handle.Release()
		t.handle = nil
	}
}
