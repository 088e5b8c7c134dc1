package vision

import (
	"image"

	"golang.org/x/image/vector"

	"surface-tracker/internal/domain/entity"
)

// maskCoverage порог покрытия пикселя полигоном, выше которого пиксель попадает в маску.
const maskCoverage = 0x80

// RasterizeRegion строит бинарную маску width*height по залитому полигону.
// Вершины за пределами кадра обрезаются по краям, полигон нулевой площади даёт пустую маску.
func RasterizeRegion(region entity.Region, width, height int) []byte {
	mask := make([]byte, width*height)
	if width <= 0 || height <= 0 {
		return mask
	}

	poly := clipPolygon(region, float64(width), float64(height))
	if len(poly) < 3 {
		return mask
	}

	z := vector.NewRasterizer(width, height)
	z.MoveTo(float32(poly[0].X), float32(poly[0].Y))
	for _, p := range poly[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()

	alpha := image.NewAlpha(image.Rect(0, 0, width, height))
	z.Draw(alpha, alpha.Bounds(), image.Opaque, image.Point{})

	for y := 0; y < height; y++ {
		row := alpha.Pix[y*alpha.Stride : y*alpha.Stride+width]
		for x, a := range row {
			if a >= maskCoverage {
				mask[y*width+x] = 255
			}
		}
	}
	return mask
}

// clipPolygon отсекает полигон прямоугольником [0,w]×[0,h] (алгоритм Сазерленда-Ходжмана).
func clipPolygon(region entity.Region, w, h float64) entity.Region {
	edges := []struct {
		inside func(p entity.Point) bool
		cross  func(a, b entity.Point) entity.Point
	}{
		{
			inside: func(p entity.Point) bool { return p.X >= 0 },
			cross:  func(a, b entity.Point) entity.Point { return intersectX(a, b, 0) },
		},
		{
			inside: func(p entity.Point) bool { return p.X <= w },
			cross:  func(a, b entity.Point) entity.Point { return intersectX(a, b, w) },
		},
		{
			inside: func(p entity.Point) bool { return p.Y >= 0 },
			cross:  func(a, b entity.Point) entity.Point { return intersectY(a, b, 0) },
		},
		{
			inside: func(p entity.Point) bool { return p.Y <= h },
			cross:  func(a, b entity.Point) entity.Point { return intersectY(a, b, h) },
		},
	}

	out := region
	for _, e := range edges {
		if len(out) == 0 {
			break
		}
		in := out
		out = make(entity.Region, 0, len(in)+4)
		prev := in[len(in)-1]
		for _, cur := range in {
			switch {
			case e.inside(cur) && e.inside(prev):
				out = append(out, cur)
			case e.inside(cur):
				out = append(out, e.cross(prev, cur), cur)
			case e.inside(prev):
				out = append(out, e.cross(prev, cur))
			}
			prev = cur
		}
	}
	return out
}

func intersectX(a, b entity.Point, x float64) entity.Point {
	t := (x - a.X) / (b.X - a.X)
	return entity.Point{X: x, Y: a.Y + t*(b.Y-a.Y)}
}

func intersectY(a, b entity.Point, y float64) entity.Point {
	t := (y - a.Y) / (b.Y - a.Y)
	return entity.Point{X: a.X + t*(b.X-a.X), Y: y}
}
