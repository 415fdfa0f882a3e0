package common

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureStagingDataValidate(t *testing.T) {
	ok := TextureStagingData{Pixels: make([]byte, 2*2*4), Width: 2, Height: 2}
	require.NoError(t, ok.Validate())
	assert.Equal(t, uint32(8), ok.Stride())

	strided := TextureStagingData{Pixels: make([]byte, 16*2), Width: 2, Height: 2, RowStride: 16}
	require.NoError(t, strided.Validate())

	short := TextureStagingData{Pixels: make([]byte, 4), Width: 2, Height: 2}
	assert.ErrorIs(t, short.Validate(), ErrInvalidDimensions)

	narrow := TextureStagingData{Pixels: make([]byte, 4*2), Width: 2, Height: 2, RowStride: 4}
	assert.ErrorIs(t, narrow.Validate(), ErrInvalidDimensions)

	empty := TextureStagingData{}
	assert.ErrorIs(t, empty.Validate(), ErrInvalidDimensions)
}

func TestImageToStagingDataRebasesOrigin(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 5, 8, 7))
	img.Set(5, 5, color.NRGBA{R: 255, A: 255})

	data := ImageToStagingData(img)
	require.NoError(t, data.Validate())
	assert.Equal(t, uint32(3), data.Width)
	assert.Equal(t, uint32(2), data.Height)
	assert.Equal(t, []byte{255, 0, 0, 255}, data.Pixels[:4])
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 3, 4))
	assert.Equal(t, "", Coalesce("", ""))
	assert.Equal(t, float32(32), Coalesce(float32(0), 32))
}
