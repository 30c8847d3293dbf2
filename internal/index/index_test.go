package index

import (
	"slices"
	"strings"
	"testing"

	"github.com/emrgen/aphorium/internal/model"
	"github.com/stretchr/testify/assert"
)

func quotes(texts map[uint]string) []*model.Quote {
	var out []*model.Quote
	for id, text := range texts {
		out = append(out, &model.Quote{ID: id, Text: text, Language: model.LanguageEN})
	}
	return out
}

func pairIDs(pairs []Pair) [][2]uint {
	ids := make([][2]uint, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, [2]uint{p.A.ID(), p.B.ID()})
	}
	return ids
}

func collect(ix *Index) []Pair {
	var pairs []Pair
	for pair := range ix.Candidates() {
		pairs = append(pairs, pair)
	}
	return pairs
}

func TestBuild_ExactPairs(t *testing.T) {
	ix := Build(quotes(map[uint]string{
		4: "Carpe diem",
		1: "carpe   diem",
		7: " CARPE DIEM ",
		2: "Memento mori",
	}))

	assert.Equal(t, [][2]uint{{1, 4}, {1, 7}}, pairIDs(ix.ExactPairs()))

	stats := ix.Stats()
	assert.Equal(t, 4, stats.Entries)
	assert.Equal(t, 1, stats.ExactBuckets)
}

func TestCandidates_ShareToken(t *testing.T) {
	ix := Build(quotes(map[uint]string{
		1: "a stitch in time saves nine",
		2: "A stitch, in time, saves nine!!",
		3: "zebras never forget",
	}))

	pairs := pairIDs(collect(ix))
	assert.Contains(t, pairs, [2]uint{1, 2})
	for _, p := range pairs {
		assert.NotContains(t, p, uint(3))
	}
}

func TestCandidates_ExactMembersOnlyThroughRepresentative(t *testing.T) {
	ix := Build(quotes(map[uint]string{
		1: "a stitch in time saves nine",
		2: "a stitch in time saves nine",
		3: "a stitch in time saves nine!",
	}))

	pairs := pairIDs(collect(ix))
	assert.Equal(t, [][2]uint{{1, 3}}, pairs)
	assert.Equal(t, [][2]uint{{1, 2}}, pairIDs(ix.ExactPairs()))
}

func TestCandidates_LengthFilter(t *testing.T) {
	long := "alpha " + strings.Repeat("word ", 40)
	ix := Build(quotes(map[uint]string{
		1: "alpha beta",
		2: long,
		3: "alpha gamma",
	}))

	pairs := pairIDs(collect(ix))
	assert.Contains(t, pairs, [2]uint{1, 3})
	assert.NotContains(t, pairs, [2]uint{1, 2})
	assert.NotContains(t, pairs, [2]uint{2, 3})
}

func TestCandidates_Restartable(t *testing.T) {
	ix := Build(quotes(map[uint]string{
		1: "the early bird catches the worm",
		2: "the early bird gets the worm",
		3: "early to bed and early to rise",
		4: "the bird is the word",
	}))

	first := pairIDs(collect(ix))
	second := pairIDs(collect(ix))
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)

	// stopping early leaves the sequence usable
	for range ix.Candidates() {
		break
	}
	assert.Equal(t, first, pairIDs(collect(ix)))
}

func TestCandidates_NoDuplicatePairs(t *testing.T) {
	ix := Build(quotes(map[uint]string{
		1: "all that glitters is not gold",
		2: "all that glitters is gold",
		3: "not all that glitters is gold",
	}))

	pairs := pairIDs(collect(ix))
	seen := make(map[[2]uint]bool)
	for _, p := range pairs {
		assert.Less(t, p[0], p[1])
		assert.False(t, seen[p], "pair %v emitted twice", p)
		seen[p] = true
	}
}

func TestCandidates_UntokenizedQuotes(t *testing.T) {
	ix := Build(quotes(map[uint]string{
		1: "...",
		2: "!!!",
		3: "some words here",
	}))

	assert.Empty(t, collect(ix))
	assert.Equal(t, 2, ix.Stats().Untokenized)
}

func TestEntries_Sorted(t *testing.T) {
	ix := Build(quotes(map[uint]string{9: "nine", 3: "three", 5: "five"}))
	ids := make([]uint, 0)
	for _, e := range ix.Entries() {
		ids = append(ids, e.ID())
	}
	assert.True(t, slices.IsSorted(ids))
}
