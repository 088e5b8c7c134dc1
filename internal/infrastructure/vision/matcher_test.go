package vision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"surface-tracker/internal/domain/entity"
)

func descriptorSet(t *testing.T, descs ...entity.Descriptor) entity.DescriptorSet {
	t.Helper()
	kps := make([]entity.Keypoint, len(descs))
	for i := range kps {
		kps[i] = entity.Keypoint{X: float64(i), Y: float64(i)}
	}
	set, err := entity.NewDescriptorSet(kps, descs)
	require.NoError(t, err)
	return set
}

func TestMatchTopTwo_FindsNearest(t *testing.T) {
	ref := descriptorSet(t, entity.Descriptor{0, 0}, entity.Descriptor{10, 10})
	cur := descriptorSet(t, entity.Descriptor{10, 11}, entity.Descriptor{0, 1}, entity.Descriptor{50, 50})

	pairs := MatchTopTwo(ref, cur)
	require.Len(t, pairs, 2)

	require.Equal(t, 0, pairs[0].Best.ReferenceIndex)
	require.Equal(t, 1, pairs[0].Best.CurrentIndex)
	require.InDelta(t, 1.0, pairs[0].Best.Distance, 1e-12)
	require.Equal(t, 0, pairs[0].Second.CurrentIndex)

	require.Equal(t, 0, pairs[1].Best.CurrentIndex)
	require.Equal(t, 1, pairs[1].Second.CurrentIndex)
}

func TestMatchTopTwo_TiesPreferLowerIndex(t *testing.T) {
	ref := descriptorSet(t, entity.Descriptor{0}, entity.Descriptor{100})
	cur := descriptorSet(t, entity.Descriptor{1}, entity.Descriptor{-1}, entity.Descriptor{1})

	pairs := MatchTopTwo(ref, cur)
	require.Equal(t, 0, pairs[0].Best.CurrentIndex)
	require.Equal(t, 1, pairs[0].Second.CurrentIndex)
}

func TestMatchTopTwo_SkipsSmallSets(t *testing.T) {
	one := descriptorSet(t, entity.Descriptor{0})
	two := descriptorSet(t, entity.Descriptor{0}, entity.Descriptor{1})

	require.Empty(t, MatchTopTwo(one, two))
	require.Empty(t, MatchTopTwo(two, one))
	require.Empty(t, MatchTopTwo(entity.DescriptorSet{}, two))
}

func TestMatchTopTwo_ManyChunksDeterministic(t *testing.T) {
	descs := make([]entity.Descriptor, 300)
	for i := range descs {
		descs[i] = entity.Descriptor{float64(i), float64(i * i % 17)}
	}
	set := descriptorSet(t, descs...)

	first := MatchTopTwo(set, set)
	second := MatchTopTwo(set, set)
	require.Equal(t, first, second)
	for i, p := range first {
		require.Equal(t, i, p.Best.CurrentIndex)
		require.Zero(t, p.Best.Distance)
	}
}

func TestRatioFilter(t *testing.T) {
	pairs := []TopTwo{
		{
			Best:   entity.Correspondence{ReferenceIndex: 0, CurrentIndex: 3, Distance: 1},
			Second: entity.Correspondence{ReferenceIndex: 0, CurrentIndex: 4, Distance: 10},
		},
		{
			Best:   entity.Correspondence{ReferenceIndex: 1, CurrentIndex: 5, Distance: 9},
			Second: entity.Correspondence{ReferenceIndex: 1, CurrentIndex: 6, Distance: 10},
		},
		{
			Best:   entity.Correspondence{ReferenceIndex: 2, CurrentIndex: 7, Distance: 7.5},
			Second: entity.Correspondence{ReferenceIndex: 2, CurrentIndex: 8, Distance: 10},
		},
		{
			Best:   entity.Correspondence{ReferenceIndex: 3, CurrentIndex: 0, Distance: 0},
			Second: entity.Correspondence{ReferenceIndex: 3, CurrentIndex: 1, Distance: 0},
		},
	}

	accepted := RatioFilter(pairs)
	require.Equal(t, []entity.Correspondence{pairs[0].Best}, accepted)
}
