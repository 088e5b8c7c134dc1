package entity

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRegion полигон области пуст или содержит нечисловые координаты.
var ErrInvalidRegion = errors.New("invalid region")

// Point точка в пиксельных координатах, начало в левом верхнем углу.
type Point struct {
	X float64
	Y float64
}

// Region замкнутый полигон области интереса.
type Region []Point

// Validate отклоняет пустой полигон и вершины с NaN/Inf.
// Вырожденный полигон нулевой площади считается корректным.
func (r Region) Validate() error {
	if len(r) == 0 {
		return fmt.Errorf("%w: no vertices", ErrInvalidRegion)
	}
	for i, p := range r {
		if !isFinite(p.X) || !isFinite(p.Y) {
			return fmt.Errorf("%w: vertex %d is not finite", ErrInvalidRegion, i)
		}
	}
	return nil
}

// Centroid возвращает центр масс полигона.
// Для полигона нулевой площади возвращается среднее вершин.
func (r Region) Centroid() Point {
	if len(r) == 0 {
		return Point{}
	}

	var area, cx, cy float64
	for i := range r {
		a := r[i]
		b := r[(i+1)%len(r)]
		cross := a.X*b.Y - b.X*a.Y
		area += cross
		cx += (a.X + b.X) * cross
		cy += (a.Y + b.Y) * cross
	}
	if math.Abs(area) < 1e-9 {
		var sx, sy float64
		for _, p := range r {
			sx += p.X
			sy += p.Y
		}
		n := float64(len(r))
		return Point{X: sx / n, Y: sy / n}
	}

	area /= 2
	return Point{X: cx / (6 * area), Y: cy / (6 * area)}
}

// Transform применяет гомографию ко всем вершинам.
// Вершины, уходящие в бесконечность, пропускаются.
func (r Region) Transform(h Homography) Region {
	out := make(Region, 0, len(r))
	for _, p := range r {
		if q, ok := h.Apply(p); ok {
			out = append(out, q)
		}
	}
	return out
}

// NormalizedRegion переводит точки [0..1] с началом в левом нижнем углу
// (OpenGL-конвенция хоста) в пиксели кадра width×height.
func NormalizedRegion(points [][2]float64, width, height int) Region {
	region := make(Region, len(points))
	for i, p := range points {
		region[i] = Point{
			X: p[0] * float64(width),
			Y: (1.0 - p[1]) * float64(height),
		}
	}
	return region
}

// TopLeftNormalizedRegion переводит точки [0..1] с началом в левом верхнем углу в пиксели.
func TopLeftNormalizedRegion(points [][2]float64, width, height int) Region {
	region := make(Region, len(points))
	for i, p := range points {
		region[i] = Point{
			X: p[0] * float64(width),
			Y: p[1] * float64(height),
		}
	}
	return region
}

// FullFrameRegion возвращает прямоугольник, покрывающий весь кадр.
func FullFrameRegion(width, height int) Region {
	w, h := float64(width), float64(height)
	return Region{{0, 0}, {w, 0}, {w, h}, {0, h}}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
