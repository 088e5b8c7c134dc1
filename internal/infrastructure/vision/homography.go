package vision

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"

	"surface-tracker/internal/domain/entity"
)

var (
	// ErrInsufficientCorrespondences меньше четырёх пар точек.
	ErrInsufficientCorrespondences = errors.New("insufficient correspondences")
	// ErrDegenerateGeometry ни одна выборка не дала модель с минимальной поддержкой.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)

const (
	// ReprojectionTolerance допуск RANSAC в пикселях.
	ReprojectionTolerance = 5.0
	// MinCorrespondences минимум пар для проективного преобразования.
	MinCorrespondences = 4

	ransacMaxIters   = 2000
	ransacConfidence = 0.995
	ransacSeed       = 0x7e57ab1e
)

// Estimate оценённая гомография и индексы пар, согласных с ней.
type Estimate struct {
	Homography entity.Homography
	Inliers    []int
}

// EstimateHomography подбирает гомографию src→dst методом RANSAC с допуском
// ReprojectionTolerance и уточняет её по всем inlier-парам.
// Генератор выборок детерминирован: одинаковый вход даёт одинаковую матрицу.
func EstimateHomography(src, dst []entity.Point) (Estimate, error) {
	if len(src) != len(dst) {
		return Estimate{}, fmt.Errorf("estimate homography: %d source points but %d destination points", len(src), len(dst))
	}
	n := len(src)
	if n < MinCorrespondences {
		return Estimate{}, ErrInsufficientCorrespondences
	}

	rng := rand.New(rand.NewPCG(ransacSeed, uint64(n)))

	var (
		best        entity.Homography
		bestInliers []int
		sample      [MinCorrespondences]int
		s, d        [MinCorrespondences]entity.Point
	)
	iters := ransacMaxIters
	for it := 0; it < iters; it++ {
		pickSample(rng, n, sample[:])
		for k, idx := range sample {
			s[k] = src[idx]
			d[k] = dst[idx]
		}
		if hasCollinearTriple(s[:]) || hasCollinearTriple(d[:]) {
			continue
		}

		h, ok := fitDLT(s[:], d[:])
		if !ok {
			continue
		}

		inliers := inliersOf(h, src, dst)
		if len(inliers) > len(bestInliers) {
			best = h
			bestInliers = inliers
			iters = min(iters, adaptiveIterations(len(inliers), n))
		}
	}

	if len(bestInliers) < MinCorrespondences {
		return Estimate{}, ErrDegenerateGeometry
	}

	if refit, ok := fitDLT(pick(src, bestInliers), pick(dst, bestInliers)); ok {
		if inliers := inliersOf(refit, src, dst); len(inliers) >= MinCorrespondences {
			best = refit
			bestInliers = inliers
		}
	}

	if !wellConditioned(best) {
		return Estimate{}, ErrDegenerateGeometry
	}

	return Estimate{Homography: best, Inliers: bestInliers}, nil
}

// ReprojectionError расстояние между H·src и dst.
func ReprojectionError(h entity.Homography, src, dst entity.Point) float64 {
	p, ok := h.Apply(src)
	if !ok {
		return math.Inf(1)
	}
	return math.Hypot(p.X-dst.X, p.Y-dst.Y)
}

func inliersOf(h entity.Homography, src, dst []entity.Point) []int {
	inliers := make([]int, 0, len(src))
	for i := range src {
		if ReprojectionError(h, src[i], dst[i]) <= ReprojectionTolerance {
			inliers = append(inliers, i)
		}
	}
	return inliers
}

// adaptiveIterations число итераций, после которого с вероятностью
// ransacConfidence хотя бы одна выборка состояла бы только из inlier-пар.
func adaptiveIterations(inliers, total int) int {
	ratio := float64(inliers) / float64(total)
	p := math.Pow(ratio, MinCorrespondences)
	if p >= 1 {
		return 0
	}
	if p <= 0 {
		return ransacMaxIters
	}
	k := math.Log(1-ransacConfidence) / math.Log(1-p)
	if k >= ransacMaxIters {
		return ransacMaxIters
	}
	return int(math.Ceil(k))
}

func pickSample(rng *rand.Rand, n int, out []int) {
	for i := 0; i < len(out); {
		idx := rng.IntN(n)
		if slices.Contains(out[:i], idx) {
			continue
		}
		out[i] = idx
		i++
	}
}

func pick(points []entity.Point, idx []int) []entity.Point {
	out := make([]entity.Point, len(idx))
	for i, j := range idx {
		out[i] = points[j]
	}
	return out
}

func hasCollinearTriple(p []entity.Point) bool {
	for i := 0; i < len(p); i++ {
		for j := i + 1; j < len(p); j++ {
			for k := j + 1; k < len(p); k++ {
				ax, ay := p[j].X-p[i].X, p[j].Y-p[i].Y
				bx, by := p[k].X-p[i].X, p[k].Y-p[i].Y
				cross := ax*by - ay*bx
				scale := math.Max(1, ax*ax+ay*ay+bx*bx+by*by)
				if math.Abs(cross) <= 1e-6*scale {
					return true
				}
			}
		}
	}
	return false
}

// fitDLT решает A·h = 0 по нормализованным (Хартли) точкам через SVD
// и возвращает матрицу с h22 = 1.
func fitDLT(src, dst []entity.Point) (entity.Homography, bool) {
	tSrc, nSrc, ok := hartley(src)
	if !ok {
		return entity.Homography{}, false
	}
	tDst, nDst, ok := hartley(dst)
	if !ok {
		return entity.Homography{}, false
	}

	a := mat.NewDense(2*len(src), 9, nil)
	for i := range nSrc {
		x, y := nSrc[i].X, nSrc[i].Y
		u, v := nDst[i].X, nDst[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFullV) {
		return entity.Homography{}, false
	}
	var v mat.Dense
	svd.VTo(&v)

	hn := mat.NewDense(3, 3, nil)
	for i := 0; i < 9; i++ {
		hn.Set(i/3, i%3, v.At(i, 8))
	}

	var inv mat.Dense
	if err := inv.Inverse(tDst); err != nil {
		return entity.Homography{}, false
	}
	var tmp, full mat.Dense
	tmp.Mul(hn, tSrc)
	full.Mul(&inv, &tmp)

	var h entity.Homography
	for i := 0; i < 9; i++ {
		h[i] = full.At(i/3, i%3)
	}
	return h.Normalize()
}

// hartley переносит центр точек в начало координат и масштабирует так,
// чтобы среднее расстояние до центра было √2.
func hartley(points []entity.Point) (*mat.Dense, []entity.Point, bool) {
	var cx, cy float64
	for _, p := range points {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(points))
	cx /= n
	cy /= n

	var meanDist float64
	for _, p := range points {
		meanDist += math.Hypot(p.X-cx, p.Y-cy)
	}
	meanDist /= n
	if meanDist < 1e-12 {
		return nil, nil, false
	}

	s := math.Sqrt2 / meanDist
	out := make([]entity.Point, len(points))
	for i, p := range points {
		out[i] = entity.Point{X: s * (p.X - cx), Y: s * (p.Y - cy)}
	}
	t := mat.NewDense(3, 3, []float64{
		s, 0, -s * cx,
		0, s, -s * cy,
		0, 0, 1,
	})
	return t, out, true
}

func wellConditioned(h entity.Homography) bool {
	for _, v := range h {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return math.Abs(h.Determinant()) > 1e-8
}
