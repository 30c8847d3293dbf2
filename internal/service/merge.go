package service

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/emrgen/aphorium/internal/compress"
	"github.com/emrgen/aphorium/internal/lock"
	"github.com/emrgen/aphorium/internal/model"
	"github.com/emrgen/aphorium/internal/queue"
	"github.com/emrgen/aphorium/internal/store"
	"github.com/sirupsen/logrus"
)

// MergeResult describes one merged duplicate group.
type MergeResult struct {
	CanonicalID     uint
	Absorbed        []uint
	FieldsFilled    int
	GroupsMerged    int
	QuotesRegrouped int64
	LinksRedirected int
	LinksDropped    int
	TextCleaned     bool
	// Noop is set when fewer than two of the requested quotes still exist.
	Noop bool
}

// Merger collapses a group of duplicate quotes into one canonical quote.
type Merger struct {
	store     store.Store
	locker    lock.Locker
	compress  compress.Compress
	publisher queue.Publisher
}

func NewMerger(store store.Store, locker lock.Locker, compress compress.Compress, publisher queue.Publisher) *Merger {
	return &Merger{
		store:     store,
		locker:    locker,
		compress:  compress,
		publisher: publisher,
	}
}

// SelectCanonical picks the quote that survives a merge: a quote with a
// bilingual group first, then one with an author, then one with a source,
// then the earliest created, then the lowest id.
func SelectCanonical(quotes []*model.Quote) *model.Quote {
	if len(quotes) == 0 {
		return nil
	}
	return slices.MinFunc(quotes, compareCanonical)
}

func compareCanonical(a, b *model.Quote) int {
	if c := preferSet(a.BilingualGroupID, b.BilingualGroupID); c != 0 {
		return c
	}
	if c := preferSet(a.AuthorID, b.AuthorID); c != 0 {
		return c
	}
	if c := preferSet(a.SourceID, b.SourceID); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func preferSet(a, b *uint) int {
	switch {
	case a != nil && b == nil:
		return -1
	case a == nil && b != nil:
		return 1
	default:
		return 0
	}
}

var enclosingQuotes = [][2]string{
	{`"`, `"`},
	{`'`, `'`},
	{"«", "»"},
	{"“", "”"},
	{"„", "“"},
}

// CleanText collapses whitespace and strips quote marks enclosing the whole
// text.
func CleanText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	for _, pair := range enclosingQuotes {
		if len(text) > len(pair[0])+len(pair[1]) && strings.HasPrefix(text, pair[0]) && strings.HasSuffix(text, pair[1]) {
			inner := text[len(pair[0]) : len(text)-len(pair[1])]
			if strings.ContainsAny(inner, pair[0]+pair[1]) {
				continue
			}
			text = strings.TrimSpace(inner)
		}
	}
	return text
}

// Merge merges the quotes with the given ids in one transaction, holding the
// locks of every id. Ids that no longer exist are ignored; with fewer than two
// quotes left the merge is a no-op.
func (m *Merger) Merge(ctx context.Context, ids []uint) (*MergeResult, error) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) < 2 {
		return &MergeResult{Noop: true}, nil
	}

	unlock, err := m.lockQuotes(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock quotes %v: %w", ids, err)
	}
	defer unlock()

	var result *MergeResult
	var language string
	err = m.store.Transaction(ctx, func(tx store.Store) error {
		quotes, err := tx.ListQuotesByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(quotes) < 2 {
			result = &MergeResult{Noop: true}
			return nil
		}

		language = quotes[0].Language
		for _, q := range quotes {
			if q.Language != language {
				return ErrMixedLanguages
			}
		}
		result, err = m.merge(ctx, tx, quotes)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("merge quotes %v: %w", ids, err)
	}
	if result.Noop {
		logrus.Debugf("merge of %v is a no-op, fewer than two quotes remain", ids)
		return result, nil
	}

	logrus.WithFields(logrus.Fields{
		"canonical":  result.CanonicalID,
		"absorbed":   result.Absorbed,
		"redirected": result.LinksRedirected,
		"dropped":    result.LinksDropped,
		"groups":     result.GroupsMerged,
	}).Info("merged duplicate quotes")

	m.publish(ctx, queue.Event{
		Type:       queue.EventQuoteMerged,
		QuoteID:    result.CanonicalID,
		RelatedIDs: result.Absorbed,
		Language:   language,
		At:         time.Now(),
	})

	return result, nil
}

// lockQuotes locks the quote ids, and the group sequence when one of the
// quotes belongs to a bilingual group. While the quote locks are held no
// quote can gain a group, so the check after locking is final.
func (m *Merger) lockQuotes(ctx context.Context, ids []uint) (lock.Unlock, error) {
	withGroups := false
	for {
		keys := lock.QuoteKeys(ids...)
		if withGroups {
			keys = append(keys, lock.GroupsKey)
		}

		unlock, err := m.locker.Lock(ctx, keys...)
		if err != nil {
			return nil, err
		}

		quotes, err := m.store.ListQuotesByIDs(ctx, ids)
		if err != nil {
			unlock()
			return nil, err
		}
		if withGroups || !slices.ContainsFunc(quotes, (*model.Quote).HasGroup) {
			return unlock, nil
		}

		unlock()
		withGroups = true
	}
}

func (m *Merger) merge(ctx context.Context, tx store.Store, quotes []*model.Quote) (*MergeResult, error) {
	canonical := SelectCanonical(quotes)
	result := &MergeResult{CanonicalID: canonical.ID}

	for _, absorbed := range quotes {
		if absorbed.ID == canonical.ID {
			continue
		}

		links, err := quoteLinks(ctx, tx, absorbed.ID)
		if err != nil {
			return nil, err
		}
		if err := m.writeTombstone(ctx, tx, canonical, absorbed, links); err != nil {
			return nil, err
		}

		result.FieldsFilled += fillFields(canonical, absorbed)

		if canonical.HasGroup() && absorbed.HasGroup() && canonical.GroupID() != absorbed.GroupID() {
			from, to := absorbed.GroupID(), canonical.GroupID()
			moved, err := tx.ReassignGroup(ctx, from, to)
			if err != nil {
				return nil, err
			}
			for _, q := range quotes {
				if q.GroupID() == from {
					q.BilingualGroupID = model.Ref(to)
				}
			}
			result.GroupsMerged++
			result.QuotesRegrouped += moved
			logrus.Infof("merged bilingual group %d into %d", from, to)
		}

		redirected, dropped, err := redirectLinks(ctx, tx, links, absorbed.ID, canonical.ID)
		if err != nil {
			return nil, err
		}
		result.LinksRedirected += redirected
		result.LinksDropped += dropped

		if err := tx.DeleteQuote(ctx, absorbed.ID); err != nil {
			return nil, err
		}
		result.Absorbed = append(result.Absorbed, absorbed.ID)
	}

	if cleaned := CleanText(canonical.Text); cleaned != "" && cleaned != canonical.Text {
		canonical.Text = cleaned
		result.TextCleaned = true
	}

	if err := tx.UpdateQuote(ctx, canonical); err != nil {
		return nil, err
	}

	return result, nil
}

// fillFields copies the optional fields the canonical quote lacks.
func fillFields(canonical, absorbed *model.Quote) int {
	filled := 0
	for _, field := range []struct{ dst, src **uint }{
		{&canonical.AuthorID, &absorbed.AuthorID},
		{&canonical.SourceID, &absorbed.SourceID},
		{&canonical.BilingualGroupID, &absorbed.BilingualGroupID},
	} {
		if *field.dst == nil && *field.src != nil {
			*field.dst = model.Ref(**field.src)
			filled++
		}
	}
	return filled
}

// quoteLinks returns every link touching id, each once.
func quoteLinks(ctx context.Context, tx store.Store, id uint) ([]*model.QuoteTranslation, error) {
	outgoing, err := tx.ListTranslationsBySource(ctx, id)
	if err != nil {
		return nil, err
	}
	incoming, err := tx.ListTranslationsByTarget(ctx, id)
	if err != nil {
		return nil, err
	}

	links := outgoing
	for _, link := range incoming {
		if link.QuoteID != id {
			links = append(links, link)
		}
	}
	return links, nil
}

// redirectLinks points the links of from at to. A link that would duplicate
// an existing one, or point a quote at itself, is deleted instead.
func redirectLinks(ctx context.Context, tx store.Store, links []*model.QuoteTranslation, from, to uint) (int, int, error) {
	redirected, dropped := 0, 0
	for _, link := range links {
		source, target := link.QuoteID, link.TranslatedQuoteID
		if source == from {
			source = to
		}
		if target == from {
			target = to
		}

		drop := source == target
		if !drop {
			existing, err := tx.GetTranslation(ctx, source, target)
			switch {
			case err == nil:
				drop = true
				if existing.Confidence < link.Confidence {
					existing.Confidence = link.Confidence
					if err := tx.UpdateTranslation(ctx, existing); err != nil {
						return 0, 0, err
					}
				}
			case !errors.Is(err, store.ErrTranslationNotFound):
				return 0, 0, err
			}
		}

		if drop {
			if err := tx.DeleteTranslation(ctx, link.QuoteID, link.TranslatedQuoteID); err != nil {
				return 0, 0, err
			}
			dropped++
			continue
		}

		link.QuoteID, link.TranslatedQuoteID = source, target
		if err := tx.UpdateTranslation(ctx, link); err != nil {
			return 0, 0, err
		}
		redirected++
	}
	return redirected, dropped, nil
}

func (m *Merger) writeTombstone(ctx context.Context, tx store.Store, canonical, absorbed *model.Quote, links []*model.QuoteTranslation) error {
	data, err := json.Marshal(model.TombstoneSnapshot{
		Quote:        absorbed.Clone(),
		Translations: links,
	})
	if err != nil {
		return err
	}

	snapshot, err := m.compress.Encode(data)
	if err != nil {
		return err
	}

	return tx.CreateTombstone(ctx, &model.QuoteTombstone{
		QuoteID:     absorbed.ID,
		CanonicalID: canonical.ID,
		Language:    absorbed.Language,
		Snapshot:    snapshot,
		Compression: m.compress.Name(),
	})
}

// DecodeTombstone returns the snapshot kept in a tombstone.
func DecodeTombstone(tombstone *model.QuoteTombstone) (*model.TombstoneSnapshot, error) {
	codec, err := compress.New(tombstone.Compression)
	if err != nil {
		return nil, err
	}

	data, err := codec.Decode(tombstone.Snapshot)
	if err != nil {
		return nil, err
	}

	var snapshot model.TombstoneSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (m *Merger) publish(ctx context.Context, event queue.Event) {
	publish(ctx, m.publisher, event)
}

// publish runs after commit; a failed event never undoes the change.
func publish(ctx context.Context, publisher queue.Publisher, event queue.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logrus.Warnf("failed to publish %s for quote %d: %v", event.Type, event.QuoteID, err)
	}
}
