package common

import (
	"fmt"
	"math/bits"

	"github.com/cogentcore/webgpu/wgpu"
)

// BytesPerPixelRGBA8 is the texel size of every texture format handled by the mip pipeline.
const BytesPerPixelRGBA8 = 4

// MipLevelSize returns the logical dimensions of the given mip level for a base extent.
// Each level halves the previous one rounding down, with a floor of 1 in each axis.
//
// Parameters:
//   - width: the base (level 0) width in texels
//   - height: the base (level 0) height in texels
//   - level: the mip level index
//
// Returns:
//   - uint32: the width of the level
//   - uint32: the height of the level
func MipLevelSize(width, height, level uint32) (uint32, uint32) {
	return mipAxis(width, level), mipAxis(height, level)
}

func mipAxis(size, level uint32) uint32 {
	if level >= 32 {
		return 1
	}
	return max(1, size>>level)
}

// MaxMipLevels returns floor(log2(max(width, height))) + 1, the length of a full mip chain.
// A zero extent yields 0.
//
// Parameters:
//   - width: the base width in texels
//   - height: the base height in texels
//
// Returns:
//   - uint32: the number of levels in the full chain
func MaxMipLevels(width, height uint32) uint32 {
	largest := max(width, height)
	if largest == 0 {
		return 0
	}
	return uint32(bits.Len32(largest))
}

// ValidateMipCount checks a requested level count against the base extent. Counts are never
// clamped: asking for more levels than the chain holds is a caller error.
//
// Parameters:
//   - width: the base width in texels
//   - height: the base height in texels
//   - count: the requested number of mip levels
//
// Returns:
//   - error: ErrInvalidDimensions or ErrInvalidMipCount (wrapped) when invalid, nil otherwise
func ValidateMipCount(width, height, count uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	limit := MaxMipLevels(width, height)
	if count == 0 || count > limit {
		return fmt.Errorf("%w: %d requested, %dx%d allows 1..%d", ErrInvalidMipCount, count, width, height, limit)
	}
	return nil
}

// TextureBufferDims describes how a texture region is laid out in a linear buffer when copied
// with copyTextureToBuffer, where every row must start on a CopyBytesPerRowAlignment boundary.
type TextureBufferDims struct {
	Width           uint32
	Height          uint32
	UnpaddedRowSize uint32
	PaddedRowSize   uint32
}

// NewTextureBufferDims computes the buffer layout for an RGBA8 region of the given size.
func NewTextureBufferDims(width, height uint32) TextureBufferDims {
	unpadded := width * BytesPerPixelRGBA8
	return TextureBufferDims{
		Width:           width,
		Height:          height,
		UnpaddedRowSize: unpadded,
		PaddedRowSize:   PaddedBytesPerRow(unpadded),
	}
}

// PaddedBytesPerRow rounds a row size up to wgpu.CopyBytesPerRowAlignment.
func PaddedBytesPerRow(unpadded uint32) uint32 {
	align := uint32(wgpu.CopyBytesPerRowAlignment)
	return (unpadded + align - 1) / align * align
}

// PaddedSize is the number of bytes the copy writes into the staging buffer.
func (td TextureBufferDims) PaddedSize() uint64 {
	return uint64(td.PaddedRowSize) * uint64(td.Height)
}

// UnpaddedSize is the number of bytes of tightly packed pixel data, width * height * 4.
func (td TextureBufferDims) UnpaddedSize() uint64 {
	return uint64(td.UnpaddedRowSize) * uint64(td.Height)
}

// CopySize is the smallest buffer a padded copy of the region fits in: every row but the last
// occupies PaddedRowSize bytes, the last one only UnpaddedRowSize. A single row needs exactly
// width * 4 bytes.
func (td TextureBufferDims) CopySize() uint64 {
	if td.Height == 0 {
		return 0
	}
	return uint64(td.PaddedRowSize)*uint64(td.Height-1) + uint64(td.UnpaddedRowSize)
}

// HasNoPadding reports whether rows are already aligned.
func (td TextureBufferDims) HasNoPadding() bool {
	return td.UnpaddedRowSize == td.PaddedRowSize
}

// DepadRows copies rows [from, to) of padded into dst, dropping the per-row alignment padding.
// dst must hold UnpaddedSize bytes and padded must hold at least CopySize bytes.
func (td TextureBufferDims) DepadRows(dst, padded []byte, from, to uint32) {
	for row := from; row < to; row++ {
		src := uint64(row) * uint64(td.PaddedRowSize)
		out := uint64(row) * uint64(td.UnpaddedRowSize)
		copy(dst[out:out+uint64(td.UnpaddedRowSize)], padded[src:src+uint64(td.UnpaddedRowSize)])
	}
}
