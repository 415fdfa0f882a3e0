package mipmap

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/chewxy/math32"
)

// Color is an RGBA color with channels in [0, 255].
type Color [4]float32

// AverageColor returns the mean of every channel of tightly packed RGBA8 pixels.
//
// Parameters:
//   - rgba: pixel bytes, 4 per pixel
//
// Returns:
//   - Color: the per-channel mean
//   - error: ErrInvalidDimensions if rgba is empty or not a whole number of pixels
func AverageColor(rgba []byte) (Color, error) {
	if len(rgba) == 0 || len(rgba)%common.BytesPerPixelRGBA8 != 0 {
		return Color{}, fmt.Errorf("%w: %d bytes is not a whole number of RGBA pixels", common.ErrInvalidDimensions, len(rgba))
	}
	var sums [4]uint64
	for i := 0; i < len(rgba); i += common.BytesPerPixelRGBA8 {
		sums[0] += uint64(rgba[i])
		sums[1] += uint64(rgba[i+1])
		sums[2] += uint64(rgba[i+2])
		sums[3] += uint64(rgba[i+3])
	}
	pixels := float32(len(rgba) / common.BytesPerPixelRGBA8)
	var c Color
	for ch := range c {
		c[ch] = float32(sums[ch]) / pixels
	}
	return c, nil
}

// MaxChannelDelta returns the largest absolute per-channel difference between two colors.
func (c Color) MaxChannelDelta(other Color) float32 {
	var delta float32
	for ch := range c {
		delta = math32.Max(delta, math32.Abs(c[ch]-other[ch]))
	}
	return delta
}

// Bytes rounds the color to RGBA8.
func (c Color) Bytes() [4]byte {
	var out [4]byte
	for ch := range c {
		out[ch] = byte(math32.Round(math32.Min(math32.Max(c[ch], 0), 255)))
	}
	return out
}

func (c Color) String() string {
	b := c.Bytes()
	return fmt.Sprintf("#%02x%02x%02x%02x", b[0], b[1], b[2], b[3])
}
