package service

import (
	"context"
	"errors"
	"testing"

	"github.com/emrgen/aphorium/internal/model"
	"github.com/emrgen/aphorium/internal/pairing"
	"github.com/emrgen/aphorium/internal/queue"
	"github.com/emrgen/aphorium/internal/store"
	"github.com/emrgen/aphorium/internal/tester"
	"github.com/emrgen/aphorium/internal/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinker_LinkMintsGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.TODO()

	grouped := enQuote(5, "unrelated")
	grouped.BilingualGroupID = model.Ref(7)
	f.seed(t, enQuote(1, "Knowledge is power."), ruQuote(2, "Знание - сила."), grouped)

	result, err := f.linker.Link(ctx, 1, 2, 80, StrategyManual)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, uint(8), result.GroupID)

	assert.Equal(t, uint(8), f.quote(t, 1).GroupID())
	assert.Equal(t, uint(8), f.quote(t, 2).GroupID())
	assert.ElementsMatch(t, [][2]uint{{1, 2}, {2, 1}}, f.links(t))

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, queue.EventQuoteLinked, events[0].Type)
	assert.Equal(t, uint(8), events[0].GroupID)
}

func TestLinker_RelinkIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.TODO()

	f.seed(t, enQuote(1, "Knowledge is power."), ruQuote(2, "Знание - сила."))

	_, err := f.linker.Link(ctx, 1, 2, 80, StrategyManual)
	require.NoError(t, err)

	result, err := f.linker.Link(ctx, 2, 1, 60, StrategyManual)
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.False(t, result.Regrouped)
	assert.Equal(t, uint(1), result.GroupID)

	assert.Len(t, f.links(t), 2)
	link, err := f.store.GetTranslation(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 80, link.Confidence)
	assert.Len(t, f.events.Events(), 1)
}

func TestLinker_AdoptsExistingGroup(t *testing.T) {
	f := newFixture(t)

	ru := ruQuote(2, "Знание - сила.")
	ru.BilingualGroupID = model.Ref(7)
	f.seed(t, enQuote(1, "Knowledge is power."), ru)

	result, err := f.linker.Link(context.TODO(), 1, 2, 80, StrategyManual)
	require.NoError(t, err)
	assert.Equal(t, uint(7), result.GroupID)
	assert.False(t, result.GroupMerged)
	assert.Equal(t, uint(7), f.quote(t, 1).GroupID())
}

func TestLinker_MergesGroupsIntoLowerID(t *testing.T) {
	f := newFixture(t)
	ctx := context.TODO()

	quotes := []*model.Quote{
		enQuote(1, "a"), ruQuote(2, "б"), enQuote(3, "c"), ruQuote(4, "д"), enQuote(5, "e"),
	}
	for id, group := range map[int]uint{0: 5, 1: 3, 2: 5, 3: 8, 4: 8} {
		quotes[id].BilingualGroupID = model.Ref(group)
	}
	f.seed(t, quotes...)

	result, err := f.linker.Link(ctx, 1, 2, 80, StrategyManual)
	require.NoError(t, err)
	assert.True(t, result.GroupMerged)
	assert.Equal(t, uint(3), result.GroupID)
	assert.Equal(t, uint(3), f.quote(t, 3).GroupID())

	// a third group collapses into the same id
	result, err = f.linker.Link(ctx, 3, 4, 80, StrategyManual)
	require.NoError(t, err)
	assert.Equal(t, uint(3), result.GroupID)
	for id := uint(1); id <= 5; id++ {
		assert.Equal(t, uint(3), f.quote(t, id).GroupID(), "quote %d", id)
	}
}

func TestLinker_LinkErrors(t *testing.T) {
	f := newFixture(t)

	f.seed(t, enQuote(1, "one"), enQuote(2, "two"), ruQuote(3, "три"))

	tests := []struct {
		name       string
		a, b       uint
		confidence int
		err        error
	}{
		{"same language", 1, 2, 80, ErrSameLanguage},
		{"confidence above range", 1, 3, 101, ErrConfidenceOutOfRange},
		{"negative confidence", 1, 3, -1, ErrConfidenceOutOfRange},
		{"missing quote", 1, 42, 80, store.ErrQuoteNotFound},
		{"self link", 1, 1, 80, ErrSelfLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.linker.Link(context.TODO(), tt.a, tt.b, tt.confidence, StrategyManual)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.Empty(t, f.links(t))
	assert.False(t, f.quote(t, 1).HasGroup())
}

func TestLinker_LinkAttribution(t *testing.T) {
	f := newFixture(t)
	ctx := context.TODO()

	knowledge := enQuote(1, "Knowledge is power.")
	knowledge.AuthorID = model.Ref(9)
	znanie := ruQuote(2, "Знание - сила.")
	znanie.AuthorID = model.Ref(9)
	f.seed(t, knowledge, znanie)

	report, err := f.linker.LinkAttribution(ctx, 9)
	require.NoError(t, err)
	assert.Zero(t, report.Proposals)
	assert.Empty(t, f.links(t))

	withSource := enQuote(3, "Man is the measure of all things")
	withSource.AuthorID = model.Ref(9)
	withSource.SourceID = model.Ref(4)
	counterpart := ruQuote(4, "Man is the measure of all things, говорил Протагор")
	counterpart.AuthorID = model.Ref(9)
	counterpart.SourceID = model.Ref(4)
	// same source, but no words in common
	unrelated := enQuote(5, "Time is money.")
	unrelated.AuthorID = model.Ref(9)
	unrelated.SourceID = model.Ref(4)
	f.seed(t, withSource, counterpart, unrelated)

	report, err = f.linker.LinkAttribution(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Proposals)
	assert.Equal(t, 1, report.Created)

	link, err := f.store.GetTranslation(ctx, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, pairing.DefaultConfig().SourceMatchConfidence, link.Confidence)
	assert.Equal(t, f.quote(t, 3).GroupID(), f.quote(t, 4).GroupID())

	assert.False(t, f.quote(t, 5).HasGroup())

	// the linked pair is not proposed again
	report, err = f.linker.LinkAttribution(ctx, 9)
	require.NoError(t, err)
	assert.Zero(t, report.Proposals)
}

func TestLinker_LinkAll(t *testing.T) {
	f := newFixture(t)

	var quotes []*model.Quote
	for author := uint(1); author <= 3; author++ {
		en := enQuote(author*10, "the only thing we have to fear is fear itself")
		en.AuthorID = model.Ref(author)
		ru := ruQuote(author*10+1, "The only thing we have to fear, is fear itself!")
		ru.AuthorID = model.Ref(author)
		quotes = append(quotes, en, ru)
	}
	monolingual := enQuote(100, "the only thing we have to fear is fear itself")
	monolingual.AuthorID = model.Ref(4)
	quotes = append(quotes, monolingual)
	f.seed(t, quotes...)

	report, err := f.linker.LinkAll(context.TODO())
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.Authors)
	assert.Equal(t, 3, report.Created)
	assert.Empty(t, report.Failures)
	assert.Len(t, f.links(t), 6)
	assert.False(t, f.quote(t, 100).HasGroup())

	groups := map[uint]bool{}
	for author := uint(1); author <= 3; author++ {
		group := f.quote(t, author*10).GroupID()
		assert.Equal(t, group, f.quote(t, author*10+1).GroupID())
		groups[group] = true
	}
	assert.Len(t, groups, 3)
}

func TestLinker_Backfill(t *testing.T) {
	f := newFixture(t)

	f.seed(t,
		enQuote(1, "Knowledge is power."),
		ruQuote(2, "Знание - сила."),
		enQuote(3, "Veni, vidi, vici"),
		ruQuote(4, "Пришёл, увидел, победил"),
		enQuote(5, "same"),
		enQuote(6, "language"),
	)
	f.rawLink(t, 1, 2, 90)
	f.rawLink(t, 3, 4, 70)
	f.rawLink(t, 4, 3, 70)
	f.rawLink(t, 5, 6, 50)

	report, err := f.linker.Backfill(context.TODO())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Pairs)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 2, report.Regrouped)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, uint(5), report.Failures[0].SourceID)

	assert.Contains(t, f.links(t), [2]uint{2, 1})
	assert.Equal(t, f.quote(t, 1).GroupID(), f.quote(t, 2).GroupID())
	assert.NotEqual(t, f.quote(t, 1).GroupID(), f.quote(t, 3).GroupID())

	// a second pass has nothing left to do
	report, err = f.linker.Backfill(context.TODO())
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	assert.Zero(t, report.Regrouped)
}

func TestLinker_Materialize(t *testing.T) {
	var calls int
	provider := translate.ProviderFunc(func(_ context.Context, text, from, to string) (string, error) {
		calls++
		if text == "untranslatable" {
			return "", translate.ErrNoTranslation
		}
		return "«Знание - сила.»", nil
	})
	f := newFixtureWith(t, store.NewGormStore(tester.TestDB(t)), provider)
	ctx := context.TODO()

	original := enQuote(1, "Knowledge is power.")
	original.AuthorID = model.Ref(9)
	original.SourceID = model.Ref(3)
	f.seed(t, original, enQuote(2, "untranslatable"))

	translated, err := f.linker.Materialize(ctx, 1, model.LanguageRU)
	require.NoError(t, err)
	assert.Equal(t, "Знание - сила.", translated.Text)
	assert.Equal(t, model.LanguageRU, translated.Language)
	assert.Equal(t, uint(9), *translated.AuthorID)
	assert.Equal(t, uint(3), *translated.SourceID)
	assert.Equal(t, f.quote(t, 1).GroupID(), translated.GroupID())

	link, err := f.store.GetTranslation(ctx, 1, translated.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, link.Confidence)

	_, err = f.linker.Materialize(ctx, 1, model.LanguageRU)
	assert.ErrorIs(t, err, ErrHasCounterpart)
	assert.Equal(t, 1, calls)

	_, err = f.linker.Materialize(ctx, 2, model.LanguageRU)
	assert.True(t, errors.Is(err, translate.ErrNoTranslation))

	_, err = f.linker.Materialize(ctx, 1, model.LanguageEN)
	assert.ErrorIs(t, err, ErrSameLanguage)

	ru, err := f.store.ListQuotesByLanguage(ctx, model.LanguageRU)
	require.NoError(t, err)
	assert.Len(t, ru, 1)
}

func TestLinkerConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultLinkerConfig().Validate())

	cfg := DefaultLinkerConfig()
	cfg.Counterpart = cfg.Language
	assert.ErrorIs(t, cfg.Validate(), ErrSameLanguage)

	cfg = DefaultLinkerConfig()
	cfg.MaterializeConfidence = 120
	assert.ErrorIs(t, cfg.Validate(), ErrConfidenceOutOfRange)
}
