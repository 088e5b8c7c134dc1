package entity

import "math"

// Homography проективное преобразование 3×3, хранится построчно.
// Единичная матрица служит внешним сигналом «трекинга нет».
type Homography [9]float64

// Identity возвращает единичную гомографию.
func Identity() Homography {
	return Homography{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// IsIdentity проверяет, что матрица строго единичная.
func (h Homography) IsIdentity() bool {
	return h == Identity()
}

// Rows возвращает матрицу в виде строк, в таком виде её ждёт слой отрисовки.
func (h Homography) Rows() [3][3]float64 {
	return [3][3]float64{
		{h[0], h[1], h[2]},
		{h[3], h[4], h[5]},
		{h[6], h[7], h[8]},
	}
}

// Normalize делит матрицу на h22. Если h22 близок к нулю или матрица
// содержит NaN/Inf, возвращает false.
func (h Homography) Normalize() (Homography, bool) {
	for _, v := range h {
		if !isFinite(v) {
			return Homography{}, false
		}
	}
	if math.Abs(h[8]) < 1e-12 {
		return Homography{}, false
	}
	s := h[8]
	for i := range h {
		h[i] /= s
	}
	return h, true
}

// Apply переводит точку опорного кадра в координаты текущего кадра.
func (h Homography) Apply(p Point) (Point, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < 1e-12 {
		return Point{}, false
	}
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}, true
}

// Determinant определитель матрицы.
func (h Homography) Determinant() float64 {
	return h[0]*(h[4]*h[8]-h[5]*h[7]) -
		h[1]*(h[3]*h[8]-h[5]*h[6]) +
		h[2]*(h[3]*h[7]-h[4]*h[6])
}
