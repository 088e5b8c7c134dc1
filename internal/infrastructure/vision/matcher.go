package vision

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"surface-tracker/internal/domain/entity"
)

// RatioThreshold порог теста Лоу: ближайший сосед принимается,
// только если он ближе 0.75 расстояния до второго.
const RatioThreshold = 0.75

// matchChunk сколько опорных дескрипторов обрабатывает одна горутина.
const matchChunk = 64

// TopTwo два ближайших соседа для одного опорного дескриптора.
type TopTwo struct {
	Best   entity.Correspondence
	Second entity.Correspondence
}

// MatchTopTwo для каждого дескриптора reference ищет два ближайших в query
// по евклидову расстоянию. При равных расстояниях побеждает меньший индекс.
// Если в любом наборе меньше двух элементов, пар нет.
func MatchTopTwo(reference, query entity.DescriptorSet) []TopTwo {
	if reference.Len() < 2 || query.Len() < 2 {
		return nil
	}

	out := make([]TopTwo, reference.Len())

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for start := 0; start < reference.Len(); start += matchChunk {
		end := min(start+matchChunk, reference.Len())
		g.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = nearestTwo(i, reference.Descriptor(i), query)
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func nearestTwo(refIdx int, d entity.Descriptor, query entity.DescriptorSet) TopTwo {
	best := entity.Correspondence{ReferenceIndex: refIdx, CurrentIndex: -1, Distance: math.Inf(1)}
	second := best

	for j := 0; j < query.Len(); j++ {
		q := query.Descriptor(j)
		if len(q) != len(d) {
			continue
		}
		dist := floats.Distance(d, q, 2)
		switch {
		case dist < best.Distance:
			second = best
			best = entity.Correspondence{ReferenceIndex: refIdx, CurrentIndex: j, Distance: dist}
		case dist < second.Distance:
			second = entity.Correspondence{ReferenceIndex: refIdx, CurrentIndex: j, Distance: dist}
		}
	}
	return TopTwo{Best: best, Second: second}
}

// RatioFilter оставляет ближайшего соседа, если он заметно ближе второго.
func RatioFilter(pairs []TopTwo) []entity.Correspondence {
	accepted := make([]entity.Correspondence, 0, len(pairs))
	for _, p := range pairs {
		if p.Best.CurrentIndex < 0 || p.Second.CurrentIndex < 0 {
			continue
		}
		if p.Best.Distance < RatioThreshold*p.Second.Distance {
			accepted = append(accepted, p.Best)
		}
	}
	return accepted
}
