package similarity

import (
	"regexp"
	"strings"
	"unicode/utf8"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/unicode/norm"
)

// word characters in any script, so cyrillic text tokenizes like latin text
var wordPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

// Normalize trims, lowercases and collapses internal whitespace.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Tokenize returns the set of case-folded word tokens of text.
func Tokenize(text string) mapset.Set[string] {
	tokens := mapset.NewThreadUnsafeSet[string]()
	for _, token := range wordPattern.FindAllString(Normalize(text), -1) {
		tokens.Add(token)
	}
	return tokens
}

// Jaccard returns |a ∩ b| / |a ∪ b|. Two empty sets are identical; one empty
// set shares nothing with a non-empty one.
func Jaccard(a, b mapset.Set[string]) float64 {
	if a.Cardinality() == 0 && b.Cardinality() == 0 {
		return 1.0
	}
	if a.Cardinality() == 0 || b.Cardinality() == 0 {
		return 0.0
	}

	intersection := a.Intersect(b).Cardinality()
	union := a.Cardinality() + b.Cardinality() - intersection
	return float64(intersection) / float64(union)
}

// FuzzyRatio is the Ratcliff/Obershelp ratio of two already normalized
// strings, computed over runes.
func FuzzyRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

// Length is the length of text in characters.
func Length(text string) int {
	return utf8.RuneCountInString(text)
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
