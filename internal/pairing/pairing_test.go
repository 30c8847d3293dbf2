package pairing

import (
	"testing"

	"github.com/emrgen/aphorium/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func en(id uint, text string, source *uint) *model.Quote {
	return &model.Quote{ID: id, Text: text, Language: model.LanguageEN, AuthorID: model.Ref(9), SourceID: source}
}

func ru(id uint, text string, source *uint) *model.Quote {
	return &model.Quote{ID: id, Text: text, Language: model.LanguageRU, AuthorID: model.Ref(9), SourceID: source}
}

func TestWords(t *testing.T) {
	assert.ElementsMatch(t, []string{"to", "be", "or", "not"},
		Words(`"To be, or not to be?"`).ToSlice())
	assert.ElementsMatch(t, []string{"знание", "-", "сила"}, Words("Знание - сила.").ToSlice())
	assert.Equal(t, 0, Words(" ... !! ").Cardinality())
}

func TestPropose_CrossScriptStaysUnlinked(t *testing.T) {
	proposals := Propose(
		[]*model.Quote{en(1, "Knowledge is power.", nil)},
		[]*model.Quote{ru(2, "Знание - сила.", nil)},
		DefaultConfig(),
	)
	assert.Empty(t, proposals)
}

func TestPropose_TokenMatch(t *testing.T) {
	proposals := Propose(
		[]*model.Quote{en(1, "Veni, vidi, vici: the words of Caesar", nil)},
		[]*model.Quote{
			ru(2, "Veni vidi vici", nil),
			ru(3, "veni, vidi, vici - the words", nil),
			ru(4, "something else entirely", nil),
		},
		DefaultConfig(),
	)

	require.Len(t, proposals, 1)
	assert.Equal(t, uint(3), proposals[0].TargetID)
	assert.Equal(t, 5, proposals[0].SharedTokens)
	assert.Equal(t, 50, proposals[0].Confidence)
	assert.Equal(t, StrategyToken, proposals[0].Strategy)
}

func TestPropose_TiePrefersSharedSourceThenLowestID(t *testing.T) {
	text := "alea iacta est said caesar"
	proposals := Propose(
		[]*model.Quote{en(1, text, model.Ref(7))},
		[]*model.Quote{
			ru(5, text, nil),
			ru(3, text, nil),
		},
		DefaultConfig(),
	)
	require.Len(t, proposals, 1)
	assert.Equal(t, uint(3), proposals[0].TargetID)

	// a shared source restricts the pool to that source
	proposals = Propose(
		[]*model.Quote{en(1, text, model.Ref(7))},
		[]*model.Quote{
			ru(3, text, nil),
			ru(5, text, model.Ref(7)),
		},
		DefaultConfig(),
	)
	require.Len(t, proposals, 1)
	assert.Equal(t, uint(5), proposals[0].TargetID)
	assert.True(t, proposals[0].SameSource)
	assert.Equal(t, 70, proposals[0].Confidence)
	assert.Equal(t, StrategySource, proposals[0].Strategy)
}

func TestPropose_SingleSharedSourceWithoutTokens(t *testing.T) {
	proposals := Propose(
		[]*model.Quote{en(1, "Knowledge is power.", model.Ref(7))},
		[]*model.Quote{
			ru(2, "Знание - сила.", model.Ref(7)),
			ru(3, "Другая цитата", nil),
		},
		DefaultConfig(),
	)
	assert.Empty(t, proposals)
}

func TestPropose_SharedSourceNeedsSharedWords(t *testing.T) {
	proposals := Propose(
		[]*model.Quote{
			en(1, "Knowledge is power.", model.Ref(7)),
			en(2, "Time is money.", model.Ref(7)),
		},
		[]*model.Quote{ru(3, "Время - деньги.", model.Ref(7))},
		DefaultConfig(),
	)
	assert.Empty(t, proposals)
}

func TestPropose_AmbiguousSharedSourceWithoutTokens(t *testing.T) {
	proposals := Propose(
		[]*model.Quote{en(1, "Knowledge is power.", model.Ref(7))},
		[]*model.Quote{
			ru(2, "Знание - сила.", model.Ref(7)),
			ru(3, "Другая цитата", model.Ref(7)),
		},
		DefaultConfig(),
	)
	assert.Empty(t, proposals)
}

func TestPropose_SkipsGroupedAndClaimed(t *testing.T) {
	grouped := ru(2, "one two three four five", nil)
	grouped.BilingualGroupID = model.Ref(42)

	linkedSource := en(3, "one two three four five", nil)
	linkedSource.BilingualGroupID = model.Ref(43)

	proposals := Propose(
		[]*model.Quote{
			en(1, "one two three four five", nil),
			linkedSource,
			en(4, "one two three four five six", nil),
		},
		[]*model.Quote{
			grouped,
			ru(5, "one two three four five", nil),
		},
		DefaultConfig(),
	)

	require.Len(t, proposals, 1)
	assert.Equal(t, uint(1), proposals[0].SourceID)
	assert.Equal(t, uint(5), proposals[0].TargetID)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MinSharedTokens = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.SourceMatchConfidence = 101
	assert.Error(t, cfg.Validate())
}
