package mipmap

import (
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
)

// ReferenceLevel computes a mip level on the CPU with a box filter, for checking GPU output.
// Level 0 returns a copy of the input.
//
// Parameters:
//   - data: the level 0 pixels
//   - level: the level to compute
//
// Returns:
//   - common.TextureStagingData: tightly packed RGBA pixels of the level
//   - error: error if data is invalid or the level is past the end of the full chain
func ReferenceLevel(data common.TextureStagingData, level uint32) (common.TextureStagingData, error) {
	if err := data.Validate(); err != nil {
		return common.TextureStagingData{}, err
	}
	if level >= common.MaxMipLevels(data.Width, data.Height) {
		return common.TextureStagingData{}, fmt.Errorf("%w: level %d of a %dx%d image", common.ErrInvalidMipCount, level, data.Width, data.Height)
	}

	src := &image.RGBA{
		Pix:    data.Pixels,
		Stride: int(data.Stride()),
		Rect:   image.Rect(0, 0, int(data.Width), int(data.Height)),
	}
	w, h := common.MipLevelSize(data.Width, data.Height, level)

	var out *image.RGBA
	if level == 0 {
		out = clone.AsRGBA(src)
	} else {
		out = transform.Resize(src, int(w), int(h), transform.Box)
	}
	return common.ImageToStagingData(out), nil
}

// StagingImage wraps tightly packed RGBA pixels as an image without copying.
func StagingImage(data common.TextureStagingData) *image.RGBA {
	return &image.RGBA{
		Pix:    data.Pixels,
		Stride: int(data.Width) * common.BytesPerPixelRGBA8,
		Rect:   image.Rect(0, 0, int(data.Width), int(data.Height)),
	}
}
