package similarity

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Method names the stage that produced a verdict.
type Method string

const (
	MethodExact Method = "exact"
	MethodToken Method = "token"
	MethodFuzzy Method = "fuzzy"
	MethodNone  Method = "none"
)

// Rank orders methods by strength; exact is the strongest.
func (m Method) Rank() int {
	switch m {
	case MethodExact:
		return 3
	case MethodToken:
		return 2
	case MethodFuzzy:
		return 1
	default:
		return 0
	}
}

// Verdict is the result of comparing two texts.
type Verdict struct {
	Match  bool
	Score  float64
	Method Method
}

// Text is a text prepared for repeated comparisons.
type Text struct {
	Normalized string
	Tokens     mapset.Set[string]
	Length     int
}

// Prepare normalizes and tokenizes text once.
func Prepare(text string) Text {
	return Text{
		Normalized: Normalize(text),
		Tokens:     Tokenize(text),
		Length:     Length(text),
	}
}

// Scorer decides whether two same-language texts are duplicates, escalating
// from exact comparison to token overlap to fuzzy matching.
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

func (s *Scorer) Config() Config {
	return s.cfg
}

// Score compares two raw texts.
func (s *Scorer) Score(text1, text2 string) Verdict {
	return s.Compare(Prepare(text1), Prepare(text2))
}

// Compare compares two prepared texts. The first stage that matches wins;
// without a match the best score seen is returned with MethodNone.
func (s *Scorer) Compare(a, b Text) Verdict {
	if a.Normalized == "" || b.Normalized == "" {
		if a.Normalized == b.Normalized {
			return Verdict{Match: true, Score: 1.0, Method: MethodExact}
		}
		return Verdict{Score: 0, Method: MethodNone}
	}

	if a.Normalized == b.Normalized {
		return Verdict{Match: true, Score: 1.0, Method: MethodExact}
	}

	token := Jaccard(a.Tokens, b.Tokens)
	if token >= s.cfg.TokenThreshold {
		return Verdict{Match: true, Score: token, Method: MethodToken}
	}

	best := token
	if min(a.Length, b.Length) >= s.cfg.MinLengthForFuzzy && token >= s.cfg.FuzzyPrefilter {
		fuzzy := FuzzyRatio(a.Normalized, b.Normalized)
		if fuzzy >= s.cfg.FuzzyThreshold {
			return Verdict{Match: true, Score: fuzzy, Method: MethodFuzzy}
		}
		best = max(best, fuzzy)
	}

	return Verdict{Score: best, Method: MethodNone}
}
