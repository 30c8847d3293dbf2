package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/aphorium/internal/lock"
	"github.com/emrgen/aphorium/internal/model"
	"github.com/emrgen/aphorium/internal/pairing"
	"github.com/emrgen/aphorium/internal/queue"
	"github.com/emrgen/aphorium/internal/store"
	"github.com/emrgen/aphorium/internal/translate"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	StrategyManual      = "manual"
	StrategyBackfill    = "backfill"
	StrategyTranslation = "translation"
)

type LinkerConfig struct {
	// Language and Counterpart are the two languages paired by LinkAll.
	Language              string         `mapstructure:"language"`
	Counterpart           string         `mapstructure:"counterpart"`
	Workers               int            `mapstructure:"workers"`
	MaterializeConfidence int            `mapstructure:"materialize_confidence"`
	Pairing               pairing.Config `mapstructure:"pairing"`
}

func DefaultLinkerConfig() LinkerConfig {
	return LinkerConfig{
		Language:              model.LanguageEN,
		Counterpart:           model.LanguageRU,
		Workers:               4,
		MaterializeConfidence: 50,
		Pairing:               pairing.DefaultConfig(),
	}
}

func (c LinkerConfig) Validate() error {
	if c.Language == "" || c.Counterpart == "" {
		return ErrMissingLanguage
	}
	if c.Language == c.Counterpart {
		return ErrSameLanguage
	}
	if c.Workers < 1 {
		return errors.New("linker workers must be at least 1")
	}
	if err := validConfidence(c.MaterializeConfidence); err != nil {
		return err
	}
	return c.Pairing.Validate()
}

// LinkResult describes one Link call.
type LinkResult struct {
	SourceID uint
	TargetID uint
	GroupID  uint
	// Created is set when the forward or the reverse link was inserted.
	Created bool
	// Regrouped is set when either quote changed its bilingual group.
	Regrouped   bool
	GroupMerged bool
	Strategy    string
}

// LinkFailure is a pair, or a whole author, that could not be linked.
type LinkFailure struct {
	AuthorID uint
	SourceID uint
	TargetID uint
	Reason   string
}

// LinkReport aggregates a linking pass.
type LinkReport struct {
	RunID     string
	Authors   int
	Proposals int
	Created   int
	Unchanged int
	Failures  []LinkFailure
}

func (r *LinkReport) add(other *LinkReport) {
	r.Authors += other.Authors
	r.Proposals += other.Proposals
	r.Created += other.Created
	r.Unchanged += other.Unchanged
	r.Failures = append(r.Failures, other.Failures...)
}

// Linker maintains the bilingual groups and the links between translations.
type Linker struct {
	cfg       LinkerConfig
	store     store.Store
	locker    lock.Locker
	publisher queue.Publisher
	provider  translate.Provider
}

func NewLinker(cfg LinkerConfig, store store.Store, locker lock.Locker, publisher queue.Publisher, provider translate.Provider) *Linker {
	if provider == nil {
		provider = translate.Unavailable
	}
	return &Linker{
		cfg:       cfg,
		store:     store,
		locker:    locker,
		publisher: publisher,
		provider:  provider,
	}
}

func validConfidence(confidence int) error {
	if confidence < model.MinConfidence || confidence > model.MaxConfidence {
		return fmt.Errorf("%w: %d", ErrConfidenceOutOfRange, confidence)
	}
	return nil
}

// Link puts two quotes of different languages into one bilingual group and
// creates the links between them in both directions. Linking an already
// linked pair changes nothing.
func (l *Linker) Link(ctx context.Context, a, b uint, confidence int, strategy string) (*LinkResult, error) {
	if err := validConfidence(confidence); err != nil {
		return nil, err
	}
	if a == b {
		return nil, ErrSelfLink
	}

	unlock, err := l.locker.Lock(ctx, append(lock.QuoteKeys(a, b), lock.GroupsKey)...)
	if err != nil {
		return nil, fmt.Errorf("lock quotes %d and %d: %w", a, b, err)
	}
	defer unlock()

	result := &LinkResult{SourceID: a, TargetID: b, Strategy: strategy}
	var language string
	err = l.store.Transaction(ctx, func(tx store.Store) error {
		qa, err := tx.GetQuote(ctx, a)
		if err != nil {
			return fmt.Errorf("quote %d: %w", a, err)
		}
		qb, err := tx.GetQuote(ctx, b)
		if err != nil {
			return fmt.Errorf("quote %d: %w", b, err)
		}
		if qa.Language == "" || qb.Language == "" {
			return ErrMissingLanguage
		}
		if qa.Language == qb.Language {
			return ErrSameLanguage
		}
		language = qa.Language

		if err := l.assignGroup(ctx, tx, qa, qb, result); err != nil {
			return err
		}

		_, forward, err := tx.UpsertTranslation(ctx, a, b, confidence)
		if err != nil {
			return err
		}
		_, reverse, err := tx.UpsertTranslation(ctx, b, a, confidence)
		if err != nil {
			return err
		}
		result.Created = forward || reverse
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("link quotes %d and %d: %w", a, b, err)
	}

	if !result.Created && !result.Regrouped {
		logrus.Debugf("quotes %d and %d are already linked in group %d", a, b, result.GroupID)
		return result, nil
	}

	logrus.WithFields(logrus.Fields{
		"source":   a,
		"target":   b,
		"group":    result.GroupID,
		"strategy": strategy,
	}).Info("linked quotes")

	publish(ctx, l.publisher, queue.Event{
		Type:       queue.EventQuoteLinked,
		QuoteID:    a,
		RelatedIDs: []uint{b},
		GroupID:    result.GroupID,
		Language:   language,
		Method:     strategy,
		Confidence: confidence,
		At:         time.Now(),
	})

	return result, nil
}

// assignGroup gives both quotes one bilingual group id. Two different groups
// are merged into the lower id; without any group a new id is minted.
func (l *Linker) assignGroup(ctx context.Context, tx store.Store, qa, qb *model.Quote, result *LinkResult) error {
	switch {
	case qa.HasGroup() && qb.HasGroup() && qa.GroupID() == qb.GroupID():
		result.GroupID = qa.GroupID()
		return nil

	case qa.HasGroup() && qb.HasGroup():
		to, from := min(qa.GroupID(), qb.GroupID()), max(qa.GroupID(), qb.GroupID())
		if _, err := tx.ReassignGroup(ctx, from, to); err != nil {
			return err
		}
		logrus.Infof("merged bilingual group %d into %d", from, to)
		result.GroupID = to
		result.GroupMerged = true
		result.Regrouped = true
		return nil

	case qa.HasGroup() || qb.HasGroup():
		result.GroupID = max(qa.GroupID(), qb.GroupID())

	default:
		maxID, err := tx.MaxGroupID(ctx)
		if err != nil {
			return err
		}
		result.GroupID = maxID + 1
	}

	result.Regrouped = true
	for _, q := range []*model.Quote{qa, qb} {
		if q.GroupID() == result.GroupID {
			continue
		}
		q.BilingualGroupID = model.Ref(result.GroupID)
		if err := tx.UpdateQuote(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// LinkAttribution pairs the quotes of one author across the two configured
// languages and links every proposal.
func (l *Linker) LinkAttribution(ctx context.Context, authorID uint) (*LinkReport, error) {
	sources, err := l.store.ListQuotesByAuthor(ctx, authorID, l.cfg.Language)
	if err != nil {
		return nil, err
	}
	targets, err := l.store.ListQuotesByAuthor(ctx, authorID, l.cfg.Counterpart)
	if err != nil {
		return nil, err
	}

	report := &LinkReport{Authors: 1}
	if len(sources) == 0 || len(targets) == 0 {
		return report, nil
	}

	proposals := pairing.Propose(sources, targets, l.cfg.Pairing)
	report.Proposals = len(proposals)

	for _, p := range proposals {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := l.Link(ctx, p.SourceID, p.TargetID, p.Confidence, p.Strategy)
		if err != nil {
			logrus.Warnf("failed to link quotes %d and %d of author %d: %v", p.SourceID, p.TargetID, authorID, err)
			report.Failures = append(report.Failures, LinkFailure{
				AuthorID: authorID,
				SourceID: p.SourceID,
				TargetID: p.TargetID,
				Reason:   err.Error(),
			})
			continue
		}
		if result.Created {
			report.Created++
		} else {
			report.Unchanged++
		}
	}

	logrus.Infof("author %d: %d proposals, %d links created", authorID, report.Proposals, report.Created)
	return report, nil
}

// LinkAll links every author with quotes in both configured languages, a
// bounded number of authors at a time.
func (l *Linker) LinkAll(ctx context.Context) (*LinkReport, error) {
	authors, err := l.store.ListBilingualAuthors(ctx, l.cfg.Language, l.cfg.Counterpart)
	if err != nil {
		return nil, err
	}

	report := &LinkReport{RunID: uuid.New().String()}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(l.cfg.Workers, 1))
	for _, authorID := range authors {
		g.Go(func() error {
			authorReport, err := l.LinkAttribution(gctx, authorID)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Authors++
				report.Failures = append(report.Failures, LinkFailure{AuthorID: authorID, Reason: err.Error()})
				return nil
			}
			report.add(authorReport)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	slices.SortFunc(report.Failures, func(a, b LinkFailure) int {
		if c := cmp.Compare(a.AuthorID, b.AuthorID); c != 0 {
			return c
		}
		return cmp.Compare(a.SourceID, b.SourceID)
	})

	logrus.WithFields(logrus.Fields{
		"run":      report.RunID,
		"authors":  report.Authors,
		"created":  report.Created,
		"failures": len(report.Failures),
	}).Info("linked bilingual authors")
	return report, nil
}

// BackfillReport aggregates a backfill pass.
type BackfillReport struct {
	Pairs     int
	Created   int
	Regrouped int
	Failures  []LinkFailure
}

// Backfill re-asserts every existing link through Link, so that both quotes
// of a link share a group and the reverse link exists.
func (l *Linker) Backfill(ctx context.Context) (*BackfillReport, error) {
	links, err := l.store.ListTranslations(ctx)
	if err != nil {
		return nil, err
	}

	report := &BackfillReport{}
	seen := mapset.NewThreadUnsafeSet[[2]uint]()
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		a, b := link.QuoteID, link.TranslatedQuoteID
		if !seen.Add([2]uint{min(a, b), max(a, b)}) {
			continue
		}
		report.Pairs++

		result, err := l.Link(ctx, a, b, link.Confidence, StrategyBackfill)
		if err != nil {
			report.Failures = append(report.Failures, LinkFailure{SourceID: a, TargetID: b, Reason: err.Error()})
			continue
		}
		if result.Created {
			report.Created++
		}
		if result.Regrouped {
			report.Regrouped++
		}
	}

	logrus.Infof("backfilled %d link pairs: %d reverse links created, %d regrouped, %d failed",
		report.Pairs, report.Created, report.Regrouped, len(report.Failures))
	return report, nil
}

// Materialize creates the missing translation of a quote with the
// configured provider and links it to the quote. The new quote keeps the
// author and source of the original.
func (l *Linker) Materialize(ctx context.Context, id uint, language string) (*model.Quote, error) {
	if language == "" {
		return nil, ErrMissingLanguage
	}

	original, err := l.store.GetQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if original.Language == language {
		return nil, ErrSameLanguage
	}

	found, err := l.hasCounterpart(ctx, original, language)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, fmt.Errorf("%w: quote %d in %s", ErrHasCounterpart, id, language)
	}

	text, err := l.provider.Translate(ctx, original.Text, original.Language, language)
	if err != nil {
		return nil, fmt.Errorf("translate quote %d: %w", id, err)
	}
	text = CleanText(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	clone := original.Clone()
	translated := &model.Quote{
		Text:     text,
		Language: language,
		AuthorID: clone.AuthorID,
		SourceID: clone.SourceID,
	}
	if err := l.store.CreateQuote(ctx, translated); err != nil {
		return nil, err
	}

	if _, err := l.Link(ctx, original.ID, translated.ID, l.cfg.MaterializeConfidence, StrategyTranslation); err != nil {
		if derr := l.store.DeleteQuote(ctx, translated.ID); derr != nil {
			logrus.Errorf("failed to remove unlinked translation %d: %v", translated.ID, derr)
		}
		return nil, err
	}

	return l.store.GetQuote(ctx, translated.ID)
}

func (l *Linker) hasCounterpart(ctx context.Context, quote *model.Quote, language string) (bool, error) {
	if quote.HasGroup() {
		members, err := l.store.ListQuotesByGroup(ctx, quote.GroupID())
		if err != nil {
			return false, err
		}
		if slices.ContainsFunc(members, func(q *model.Quote) bool { return q.Language == language }) {
			return true, nil
		}
	}

	links, err := quoteLinks(ctx, l.store, quote.ID)
	if err != nil {
		return false, err
	}
	for _, link := range links {
		other := link.QuoteID
		if other == quote.ID {
			other = link.TranslatedQuoteID
		}
		q, err := l.store.GetQuote(ctx, other)
		if errors.Is(err, store.ErrQuoteNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if q.Language == language {
			return true, nil
		}
	}
	return false, nil
}
