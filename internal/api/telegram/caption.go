package telegram

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseCaption разбирает подпись к фото: вершины "x,y x,y ..." в долях кадра
// с началом в левом верхнем углу. Пустая подпись означает весь кадр и даёт nil.
func ParseCaption(caption string) ([][2]float64, error) {
	fields := strings.FieldsFunc(caption, func(r rune) bool {
		return r == ' ' || r == ';' || r == '\n' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields) < 3 {
		return nil, fmt.Errorf("нужно минимум 3 вершины, получено %d", len(fields))
	}

	points := make([][2]float64, 0, len(fields))
	for i, f := range fields {
		xs, ys, ok := strings.Cut(f, ",")
		if !ok {
			return nil, fmt.Errorf("вершина %d %q: ожидается x,y", i+1, f)
		}
		x, err := parseUnit(xs)
		if err != nil {
			return nil, fmt.Errorf("вершина %d: %w", i+1, err)
		}
		y, err := parseUnit(ys)
		if err != nil {
			return nil, fmt.Errorf("вершина %d: %w", i+1, err)
		}
		points = append(points, [2]float64{x, y})
	}
	return points, nil
}

func parseUnit(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q не число", s)
	}
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, fmt.Errorf("%v вне диапазона [0, 1]", v)
	}
	return v, nil
}
