package mipmap

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceLevel(t *testing.T) {
	base := quadrants(16, [4][4]byte{
		{255, 0, 0, 255},
		{0, 255, 0, 255},
		{0, 0, 255, 255},
		{255, 255, 255, 255},
	})

	level0, err := ReferenceLevel(base, 0)
	require.NoError(t, err)
	assert.Equal(t, base.Pixels, level0.Pixels)
	level0.Pixels[0] = 7
	assert.Equal(t, byte(255), base.Pixels[0], "level 0 is a copy")

	level2, err := ReferenceLevel(base, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), level2.Width)
	assert.Equal(t, uint32(4), level2.Height)
	assert.Len(t, level2.Pixels, 4*4*4)

	want, err := AverageColor(base.Pixels)
	require.NoError(t, err)
	got, err := AverageColor(level2.Pixels)
	require.NoError(t, err)
	assert.LessOrEqual(t, got.MaxChannelDelta(want), float32(1))

	_, err = ReferenceLevel(base, 5)
	assert.ErrorIs(t, err, common.ErrInvalidMipCount)

	_, err = ReferenceLevel(common.TextureStagingData{Width: 2, Height: 2}, 0)
	assert.ErrorIs(t, err, common.ErrInvalidDimensions)
}

func TestStagingImageSharesPixels(t *testing.T) {
	data := solid(3, 2, [4]byte{1, 2, 3, 4})
	img := StagingImage(data)
	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	assert.Equal(t, uint8(3), img.RGBAAt(2, 1).B)

	img.Pix[0] = 9
	assert.Equal(t, byte(9), data.Pixels[0])
}
