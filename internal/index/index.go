// Package index builds the token index used to find duplicate candidates
// within one language without comparing every pair of quotes.
//
// Quotes with identical normalized text are bucketed first. Only the lowest id
// of each bucket takes part in candidate generation; the other bucket members
// are reported through ExactPairs. Every remaining quote is posted under its
// lexicographically smallest token, and the candidates of a quote are all
// quotes posted under any of its own tokens.
//
// An Index is a read-only snapshot. It is rebuilt for every pass.
package index

import (
	"cmp"
	"iter"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/aphorium/internal/model"
	"github.com/emrgen/aphorium/internal/similarity"
)

const (
	// maxLengthRatio and minLengthSlack bound the length difference of a
	// candidate pair: max(maxLengthRatio*shorter, minLengthSlack) characters.
	maxLengthRatio = 0.5
	minLengthSlack = 50
)

// Entry is a quote with its prepared text.
type Entry struct {
	Quote *model.Quote
	similarity.Text
}

func (e *Entry) ID() uint {
	return e.Quote.ID
}

// Pair is an unordered candidate pair, stored with the lower id first.
type Pair struct {
	A *Entry
	B *Entry
}

func newPair(a, b *Entry) Pair {
	if a.ID() > b.ID() {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Stats describes the shape of a built index.
type Stats struct {
	Entries       int
	ExactBuckets  int
	IndexedTokens int
	Untokenized   int
}

type Index struct {
	entries      []*Entry
	buckets      map[string][]*Entry
	postings     map[string][]*Entry
	exactMembers mapset.Set[uint]
	untokenized  int
}

// Build indexes the quotes of one language.
func Build(quotes []*model.Quote) *Index {
	ix := &Index{
		entries:      make([]*Entry, 0, len(quotes)),
		buckets:      make(map[string][]*Entry),
		postings:     make(map[string][]*Entry),
		exactMembers: mapset.NewThreadUnsafeSet[uint](),
	}

	sorted := slices.Clone(quotes)
	slices.SortFunc(sorted, func(a, b *model.Quote) int {
		return cmp.Compare(a.ID, b.ID)
	})

	for _, quote := range sorted {
		entry := &Entry{Quote: quote, Text: similarity.Prepare(quote.Text)}
		ix.entries = append(ix.entries, entry)
		ix.buckets[entry.Normalized] = append(ix.buckets[entry.Normalized], entry)
	}

	// bucket members other than the lowest id are matched through ExactPairs
	for _, bucket := range ix.buckets {
		for _, member := range bucket[1:] {
			ix.exactMembers.Add(member.ID())
		}
	}

	for _, entry := range ix.entries {
		if ix.exactMembers.Contains(entry.ID()) {
			continue
		}
		key, ok := smallestToken(entry.Tokens)
		if !ok {
			ix.untokenized++
			continue
		}
		ix.postings[key] = append(ix.postings[key], entry)
	}

	return ix
}

// Entries returns the indexed entries in ascending id order.
func (ix *Index) Entries() []*Entry {
	return ix.entries
}

func (ix *Index) Stats() Stats {
	exact := 0
	for _, bucket := range ix.buckets {
		if len(bucket) > 1 {
			exact++
		}
	}
	return Stats{
		Entries:       len(ix.entries),
		ExactBuckets:  exact,
		IndexedTokens: len(ix.postings),
		Untokenized:   ix.untokenized,
	}
}

// ExactPairs links every member of an exact-duplicate bucket to the bucket's
// lowest id. A star per bucket is enough for grouping.
func (ix *Index) ExactPairs() []Pair {
	var pairs []Pair
	for _, entry := range ix.entries {
		bucket := ix.buckets[entry.Normalized]
		if len(bucket) < 2 || bucket[0] != entry {
			continue
		}
		for _, member := range bucket[1:] {
			pairs = append(pairs, newPair(entry, member))
		}
	}
	return pairs
}

// Candidates yields candidate pairs lazily. Every range over the returned
// sequence recomputes the pairs from the snapshot.
func (ix *Index) Candidates() iter.Seq[Pair] {
	return func(yield func(Pair) bool) {
		seen := mapset.NewThreadUnsafeSet[[2]uint]()

		for _, entry := range ix.entries {
			if ix.exactMembers.Contains(entry.ID()) {
				continue
			}

			for _, candidate := range ix.candidatesOf(entry) {
				pair := newPair(entry, candidate)
				key := [2]uint{pair.A.ID(), pair.B.ID()}
				if !seen.Add(key) {
					continue
				}
				if !withinLength(entry, candidate) {
					continue
				}
				if !yield(pair) {
					return
				}
			}
		}
	}
}

func (ix *Index) candidatesOf(entry *Entry) []*Entry {
	found := mapset.NewThreadUnsafeSet[*Entry]()
	for _, token := range entry.Tokens.ToSlice() {
		for _, posted := range ix.postings[token] {
			if posted != entry {
				found.Add(posted)
			}
		}
	}

	candidates := found.ToSlice()
	slices.SortFunc(candidates, func(a, b *Entry) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return candidates
}

func withinLength(a, b *Entry) bool {
	shorter, longer := a.Length, b.Length
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	slack := max(maxLengthRatio*float64(shorter), minLengthSlack)
	return float64(longer-shorter) <= slack
}

func smallestToken(tokens mapset.Set[string]) (string, bool) {
	if tokens.Cardinality() == 0 {
		return "", false
	}
	return slices.Min(tokens.ToSlice()), true
}
