package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	h := Identity()
	require.True(t, h.IsIdentity())
	p, ok := h.Apply(Point{X: 3, Y: 4})
	require.True(t, ok)
	require.Equal(t, Point{X: 3, Y: 4}, p)
	require.Equal(t, [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, h.Rows())
}

func TestHomographyNormalize(t *testing.T) {
	h := Homography{2, 0, 4, 0, 2, 6, 0, 0, 2}
	n, ok := h.Normalize()
	require.True(t, ok)
	require.Equal(t, Homography{1, 0, 2, 0, 1, 3, 0, 0, 1}, n)

	_, ok = Homography{1, 0, 0, 0, 1, 0, 0, 0, 0}.Normalize()
	require.False(t, ok)
}

func TestHomographyApply_AtInfinity(t *testing.T) {
	h := Homography{1, 0, 0, 0, 1, 0, 1, 0, 0}
	_, ok := h.Apply(Point{X: 0, Y: 5})
	require.False(t, ok)
}

func TestHomographyDeterminant(t *testing.T) {
	require.InDelta(t, 1.0, Identity().Determinant(), 1e-12)
	require.InDelta(t, 8.0, Homography{2, 0, 0, 0, 2, 0, 0, 0, 2}.Determinant(), 1e-12)
}
