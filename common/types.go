// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// TextureStagingData holds RGBA pixel data pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
	// RowStride is the number of bytes between the starts of two consecutive rows. Zero means tightly packed (Width * 4).
	RowStride uint32
}

// Stride returns the effective row stride in bytes.
func (t TextureStagingData) Stride() uint32 {
	return Coalesce(t.RowStride, t.Width*BytesPerPixelRGBA8)
}

// Validate checks the layout contract of an upload: rowStride >= width * 4 and
// len(pixels) == rowStride * height.
//
// Returns:
//   - error: a wrapped ErrInvalidDimensions describing the mismatch, or nil
func (t TextureStagingData) Validate() error {
	if t.Width == 0 || t.Height == 0 {
		return fmt.Errorf("%w: staging data is %dx%d", ErrInvalidDimensions, t.Width, t.Height)
	}
	stride := t.Stride()
	if stride < t.Width*BytesPerPixelRGBA8 {
		return fmt.Errorf("%w: row stride %d is smaller than %d bytes", ErrInvalidDimensions, stride, t.Width*BytesPerPixelRGBA8)
	}
	if want := uint64(stride) * uint64(t.Height); uint64(len(t.Pixels)) != want {
		return fmt.Errorf("%w: have %d bytes of pixels, want %d", ErrInvalidDimensions, len(t.Pixels), want)
	}
	return nil
}

// SamplerStagingData holds the configuration for a sampler pending GPU creation.
// Zero fields are replaced by the builder's defaults.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// DecodeImage decodes a PNG, JPEG, BMP or WebP file into tightly packed RGBA rows.
// Reference: https://pkg.go.dev/image
//
// Parameters:
//   - path: the image file path
//
// Returns:
//   - TextureStagingData: the decoded pixels and dimensions
//   - error: error if the file cannot be opened or decoded
func DecodeImage(path string) (TextureStagingData, error) {
	file, err := os.Open(path)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return ImageToStagingData(img), nil
}

// ImageToStagingData converts any image.Image to RGBA staging data with the origin at (0, 0).
func ImageToStagingData(img image.Image) TextureStagingData {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return TextureStagingData{
		Pixels:    rgba.Pix,
		Width:     uint32(bounds.Dx()),
		Height:    uint32(bounds.Dy()),
		RowStride: uint32(rgba.Stride),
	}
}
