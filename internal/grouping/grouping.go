// Package grouping turns matched pairs into duplicate groups.
package grouping

import (
	"cmp"
	"slices"

	"github.com/emrgen/aphorium/internal/similarity"
)

// Match is a pair of quotes the scorer flagged as duplicates.
type Match struct {
	A      uint
	B      uint
	Score  float64
	Method similarity.Method
}

// DuplicateGroup is a connected component of matches. IDs are sorted. Method
// is the strongest method of any edge in the group and Score the weakest score.
type DuplicateGroup struct {
	IDs    []uint
	Method similarity.Method
	Score  float64
}

type Stats struct {
	Pairs    int
	Excluded int
	Blocked  int
	Groups   int
}

// Group computes the duplicate groups of matches. equivalence maps quote ids
// to their bilingual group id; quotes without one are absent from the map.
//
// A pair whose both quotes carry a group id is never grouped. A component
// never holds more than one quote with a group id: unions that would bridge
// two such quotes are refused and counted as blocked.
func Group(matches []Match, equivalence map[uint]uint) ([]DuplicateGroup, Stats) {
	pairs := dedupe(matches)
	stats := Stats{Pairs: len(pairs)}

	uf := newForest()
	var accepted []Match
	for _, m := range pairs {
		_, groupedA := equivalence[m.A]
		_, groupedB := equivalence[m.B]
		if groupedA && groupedB {
			stats.Excluded++
			continue
		}

		a, b := uf.add(m.A, groupedA), uf.add(m.B, groupedB)
		if !uf.union(a, b) {
			stats.Blocked++
			continue
		}
		accepted = append(accepted, m)
	}

	components := make(map[int]*DuplicateGroup)
	for _, m := range accepted {
		root := uf.find(uf.index[m.A])
		group, ok := components[root]
		if !ok {
			group = &DuplicateGroup{Method: m.Method, Score: m.Score}
			components[root] = group
		}
		if m.Method.Rank() > group.Method.Rank() {
			group.Method = m.Method
		}
		group.Score = min(group.Score, m.Score)
	}

	for i, id := range uf.ids {
		if group, ok := components[uf.find(i)]; ok {
			group.IDs = append(group.IDs, id)
		}
	}

	groups := make([]DuplicateGroup, 0, len(components))
	for _, group := range components {
		slices.Sort(group.IDs)
		groups = append(groups, *group)
	}
	slices.SortFunc(groups, func(a, b DuplicateGroup) int {
		return cmp.Compare(a.IDs[0], b.IDs[0])
	})

	stats.Groups = len(groups)
	return groups, stats
}

// dedupe orders every pair low id first, drops self pairs and keeps the
// strongest verdict of repeated pairs. The result is sorted.
func dedupe(matches []Match) []Match {
	best := make(map[[2]uint]Match, len(matches))
	for _, m := range matches {
		if m.A == m.B {
			continue
		}
		if m.A > m.B {
			m.A, m.B = m.B, m.A
		}
		key := [2]uint{m.A, m.B}
		if prev, ok := best[key]; ok && !stronger(m, prev) {
			continue
		}
		best[key] = m
	}

	out := make([]Match, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	slices.SortFunc(out, func(x, y Match) int {
		if c := cmp.Compare(x.A, y.A); c != 0 {
			return c
		}
		return cmp.Compare(x.B, y.B)
	})
	return out
}

func stronger(m, than Match) bool {
	if m.Method.Rank() != than.Method.Rank() {
		return m.Method.Rank() > than.Method.Rank()
	}
	return m.Score > than.Score
}

// forest is a union-find over an arena of indices.
type forest struct {
	index    map[uint]int
	ids      []uint
	parent   []int
	rank     []int
	anchored []bool
}

func newForest() *forest {
	return &forest{index: make(map[uint]int)}
}

func (f *forest) add(id uint, anchored bool) int {
	if i, ok := f.index[id]; ok {
		return i
	}
	i := len(f.ids)
	f.index[id] = i
	f.ids = append(f.ids, id)
	f.parent = append(f.parent, i)
	f.rank = append(f.rank, 0)
	f.anchored = append(f.anchored, anchored)
	return i
}

func (f *forest) find(i int) int {
	for f.parent[i] != i {
		f.parent[i] = f.parent[f.parent[i]]
		i = f.parent[i]
	}
	return i
}

// union joins the sets of a and b. It refuses to join two anchored sets.
func (f *forest) union(a, b int) bool {
	ra, rb := f.find(a), f.find(b)
	if ra == rb {
		return true
	}
	if f.anchored[ra] && f.anchored[rb] {
		return false
	}

	if f.rank[ra] < f.rank[rb] {
		ra, rb = rb, ra
	}
	f.parent[rb] = ra
	if f.rank[ra] == f.rank[rb] {
		f.rank[ra]++
	}
	f.anchored[ra] = f.anchored[ra] || f.anchored[rb]
	return true
}
