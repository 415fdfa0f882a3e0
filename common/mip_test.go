package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMipLevelSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
		level         uint32
		wantW, wantH  uint32
	}{
		{"base level is identity", 256, 256, 0, 256, 256},
		{"power of two halves", 256, 256, 1, 128, 128},
		{"last level of 256 chain", 256, 256, 8, 1, 1},
		{"odd width floors", 7, 7, 1, 3, 3},
		{"non power of two", 300, 100, 2, 75, 25},
		{"short axis floors at one", 64, 2, 3, 8, 1},
		{"past the chain clamps to one", 4, 4, 9, 1, 1},
		{"huge level does not overflow", 4, 4, 40, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := MipLevelSize(tt.width, tt.height, tt.level)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestMipLevelSizeMatchesShiftRule(t *testing.T) {
	for _, size := range [][2]uint32{{1, 1}, {3, 5}, {17, 9}, {640, 480}, {1023, 1}, {256, 256}} {
		for level := uint32(0); level < MaxMipLevels(size[0], size[1]); level++ {
			w, h := MipLevelSize(size[0], size[1], level)
			assert.Equal(t, max(1, size[0]>>level), w, "width of %v level %d", size, level)
			assert.Equal(t, max(1, size[1]>>level), h, "height of %v level %d", size, level)
		}
	}
}

func TestMaxMipLevels(t *testing.T) {
	assert.Equal(t, uint32(0), MaxMipLevels(0, 0))
	assert.Equal(t, uint32(1), MaxMipLevels(1, 1))
	assert.Equal(t, uint32(3), MaxMipLevels(4, 4))
	assert.Equal(t, uint32(3), MaxMipLevels(7, 2))
	assert.Equal(t, uint32(9), MaxMipLevels(256, 256))
	assert.Equal(t, uint32(10), MaxMipLevels(1000, 3))
}

func TestValidateMipCount(t *testing.T) {
	require.NoError(t, ValidateMipCount(4, 4, 1))
	require.NoError(t, ValidateMipCount(4, 4, 3))
	require.NoError(t, ValidateMipCount(256, 256, 9))

	err := ValidateMipCount(4, 4, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidMipCount))

	err = ValidateMipCount(4, 4, 0)
	assert.ErrorIs(t, err, ErrInvalidMipCount)

	err = ValidateMipCount(0, 4, 1)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestTextureBufferDims(t *testing.T) {
	td := NewTextureBufferDims(3, 2)
	assert.Equal(t, uint32(12), td.UnpaddedRowSize)
	assert.Equal(t, uint32(256), td.PaddedRowSize)
	assert.Equal(t, uint64(512), td.PaddedSize())
	assert.Equal(t, uint64(24), td.UnpaddedSize())
	assert.False(t, td.HasNoPadding())
	assert.Equal(t, uint64(256+12), td.CopySize(), "the last row is not padded")

	assert.Equal(t, uint64(4), NewTextureBufferDims(1, 1).CopySize())
	assert.Zero(t, NewTextureBufferDims(4, 0).CopySize())

	aligned := NewTextureBufferDims(64, 1)
	assert.True(t, aligned.HasNoPadding())
	assert.Equal(t, uint32(256), aligned.PaddedRowSize)
}

func TestDepadRowsUsesRequestedWidth(t *testing.T) {
	td := NewTextureBufferDims(2, 3)
	padded := make([]byte, td.PaddedSize())
	for row := uint32(0); row < td.Height; row++ {
		base := row * td.PaddedRowSize
		for i := uint32(0); i < td.UnpaddedRowSize; i++ {
			padded[base+i] = byte(row*10 + i)
		}
		// padding garbage must never leak into the output
		for i := td.UnpaddedRowSize; i < td.PaddedRowSize; i++ {
			padded[base+i] = 0xEE
		}
	}

	out := make([]byte, td.UnpaddedSize())
	td.DepadRows(out, padded, 0, td.Height)

	for row := uint32(0); row < td.Height; row++ {
		for i := uint32(0); i < td.UnpaddedRowSize; i++ {
			assert.Equal(t, byte(row*10+i), out[row*td.UnpaddedRowSize+i])
		}
	}
	assert.NotContains(t, out, byte(0xEE))
}
