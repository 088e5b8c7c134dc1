package app

import (
	"errors"
	"math/rand/v2"
	"sync/atomic"

	"surface-tracker/internal/domain/entity"
)

// markerExtractor детерминированная замена SIFT для тестов: каждый пиксель с ненулевым
// красным каналом считается особой точкой, а значение канала задаёт её дескриптор.
// Дескрипторы унитарные, поэтому разные маркеры равноудалены и ratio-тест их отбрасывает.
type markerExtractor struct {
	err   error
	panic bool
	calls atomic.Int64
}

func (e *markerExtractor) Extract(frame entity.Frame, mask []byte) (entity.DescriptorSet, error) {
	e.calls.Add(1)
	if e.panic {
		panic("extractor exploded")
	}
	if e.err != nil {
		return entity.DescriptorSet{}, e.err
	}
	if mask != nil && len(mask) != frame.Width*frame.Height {
		return entity.DescriptorSet{}, errors.New("mask size mismatch")
	}

	var (
		kps   []entity.Keypoint
		descs []entity.Descriptor
	)
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			if mask != nil && mask[y*frame.Width+x] == 0 {
				continue
			}
			_, _, id := frame.At(x, y)
			if id == 0 {
				continue
			}
			kps = append(kps, entity.Keypoint{X: float64(x) + 0.5, Y: float64(y) + 0.5, Size: 3, Response: 1})
			descs = append(descs, markerDescriptor(id))
		}
	}
	return entity.NewDescriptorSet(kps, descs)
}

func markerDescriptor(id byte) entity.Descriptor {
	d := make(entity.Descriptor, 256)
	d[id] = 100
	return d
}

// marker пиксель-особая точка в кадре.
type marker struct {
	X, Y int
	ID   byte
}

// scatterMarkers раскладывает n маркеров внутри прямоугольника без повторов позиций.
func scatterMarkers(seed uint64, n int, x0, y0, w, h int, firstID byte) []marker {
	rng := rand.New(rand.NewPCG(seed, 42))
	used := map[[2]int]bool{}
	out := make([]marker, 0, n)
	for len(out) < n {
		x := x0 + rng.IntN(w)
		y := y0 + rng.IntN(h)
		if used[[2]int{x, y}] {
			continue
		}
		used[[2]int{x, y}] = true
		out = append(out, marker{X: x, Y: y, ID: firstID + byte(len(out))})
	}
	return out
}

// renderMarkers рисует маркеры на чёрном кадре, сдвинув их на (dx, dy).
func renderMarkers(width, height int, markers []marker, dx, dy int) entity.Frame {
	frame := entity.NewFrame(width, height)
	for _, m := range markers {
		x, y := m.X+dx, m.Y+dy
		if x < 0 || y < 0 || x >= width || y >= height {
			continue
		}
		frame.Set(x, y, 0, 0, m.ID)
	}
	return frame
}
