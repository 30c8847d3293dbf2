// Package pairing proposes cross-language counterparts among the quotes of
// one attribution.
package pairing

import (
	"cmp"
	"errors"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/aphorium/internal/model"
)

const (
	StrategySource = "source_match"
	StrategyToken  = "token_match"
)

const punctuation = `.,!?;:()[]{}"'`

type Config struct {
	MinSharedTokens       int `mapstructure:"min_shared_tokens"`
	SourceMatchConfidence int `mapstructure:"source_match_confidence"`
	TokenMatchConfidence  int `mapstructure:"token_match_confidence"`
}

func DefaultConfig() Config {
	return Config{
		MinSharedTokens:       4,
		SourceMatchConfidence: 70,
		TokenMatchConfidence:  50,
	}
}

func (c Config) Validate() error {
	if c.MinSharedTokens < 1 {
		return errors.New("min_shared_tokens must be at least 1")
	}
	for _, confidence := range []int{c.SourceMatchConfidence, c.TokenMatchConfidence} {
		if confidence < model.MinConfidence || confidence > model.MaxConfidence {
			return errors.New("pairing confidence must be between 0 and 100")
		}
	}
	return nil
}

// Proposal is a suggested link from a source-language quote to a
// target-language quote.
type Proposal struct {
	SourceID     uint
	TargetID     uint
	SharedTokens int
	SameSource   bool
	Confidence   int
	Strategy     string
}

// Propose walks the source quotes without a bilingual group in ascending id
// order and picks at most one counterpart for each among the target quotes.
// Targets that already belong to a group, or were proposed earlier in the
// same run, are not considered. A shared source narrows the candidates but
// never replaces the shared word threshold.
func Propose(sources, targets []*model.Quote, cfg Config) []Proposal {
	sources = sortedByID(sources)
	targets = sortedByID(targets)

	tokens := make(map[uint]mapset.Set[string], len(targets))
	for _, target := range targets {
		tokens[target.ID] = Words(target.Text)
	}

	claimed := mapset.NewThreadUnsafeSet[uint]()
	var proposals []Proposal

	for _, source := range sources {
		if source.HasGroup() {
			continue
		}

		var pool, shared []*model.Quote
		for _, target := range targets {
			if target.HasGroup() || claimed.Contains(target.ID) {
				continue
			}
			pool = append(pool, target)
			if sameSource(source, target) {
				shared = append(shared, target)
			}
		}
		if len(pool) == 0 {
			continue
		}

		candidates := pool
		if len(shared) > 0 {
			candidates = shared
		}

		words := Words(source.Text)
		var best *Proposal
		for _, target := range candidates {
			count := words.Intersect(tokens[target.ID]).Cardinality()
			if count < cfg.MinSharedTokens {
				continue
			}
			same := sameSource(source, target)
			if best != nil && (count < best.SharedTokens || count == best.SharedTokens && (best.SameSource || !same)) {
				continue
			}
			best = &Proposal{
				SourceID:     source.ID,
				TargetID:     target.ID,
				SharedTokens: count,
				SameSource:   same,
			}
		}

		switch {
		case best != nil && best.SameSource:
			best.Confidence = cfg.SourceMatchConfidence
			best.Strategy = StrategySource
		case best != nil:
			best.Confidence = cfg.TokenMatchConfidence
			best.Strategy = StrategyToken
		default:
			continue
		}

		claimed.Add(best.TargetID)
		proposals = append(proposals, *best)
	}

	return proposals
}

// Words splits text on whitespace, strips surrounding punctuation and
// lowercases every word.
func Words(text string) mapset.Set[string] {
	words := mapset.NewThreadUnsafeSet[string]()
	for _, field := range strings.Fields(text) {
		word := strings.ToLower(strings.Trim(field, punctuation))
		if word != "" {
			words.Add(word)
		}
	}
	return words
}

func sameSource(a, b *model.Quote) bool {
	return a.SourceID != nil && b.SourceID != nil && *a.SourceID == *b.SourceID
}

func sortedByID(quotes []*model.Quote) []*model.Quote {
	sorted := slices.Clone(quotes)
	slices.SortFunc(sorted, func(a, b *model.Quote) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return sorted
}
