package vision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"surface-tracker/internal/domain/entity"
)

func TestRasterizeRegion_Rectangle(t *testing.T) {
	mask := RasterizeRegion(entity.Region{{X: 2, Y: 2}, {X: 8, Y: 2}, {X: 8, Y: 6}, {X: 2, Y: 6}}, 10, 10)
	require.Len(t, mask, 100)
	require.Equal(t, 24, countMask(mask))
	require.Equal(t, byte(255), mask[3*10+4])
	require.Zero(t, mask[0])
	require.Zero(t, mask[9*10+9])
}

func TestRasterizeRegion_ClipsOutOfBounds(t *testing.T) {
	mask := RasterizeRegion(entity.Region{{X: -50, Y: -50}, {X: 500, Y: -50}, {X: 500, Y: 500}, {X: -50, Y: 500}}, 16, 8)
	require.Equal(t, 16*8, countMask(mask))
}

func TestRasterizeRegion_PartiallyOutside(t *testing.T) {
	mask := RasterizeRegion(entity.Region{{X: 5, Y: -10}, {X: 20, Y: -10}, {X: 20, Y: 4}, {X: 5, Y: 4}}, 10, 10)
	require.Equal(t, 5*4, countMask(mask))
}

func TestRasterizeRegion_Degenerate(t *testing.T) {
	require.Zero(t, countMask(RasterizeRegion(entity.Region{{X: 4, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 4}}, 10, 10)))
	require.Zero(t, countMask(RasterizeRegion(entity.Region{{X: 1, Y: 1}, {X: 9, Y: 9}}, 10, 10)))
	require.Zero(t, countMask(RasterizeRegion(entity.Region{{X: 1, Y: 1}, {X: 5, Y: 5}, {X: 9, Y: 9}}, 10, 10)))
	require.Empty(t, RasterizeRegion(entity.Region{{X: 1, Y: 1}}, 0, 10))
}

func TestRasterizeRegion_Triangle(t *testing.T) {
	mask := RasterizeRegion(entity.Region{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}}, 10, 10)
	n := countMask(mask)
	require.InDelta(t, 50, n, 6)
	require.Equal(t, byte(255), mask[1*10+1])
	require.Zero(t, mask[9*10+9])
}

func countMask(mask []byte) int {
	n := 0
	for _, v := range mask {
		if v != 0 {
			n++
		}
	}
	return n
}
