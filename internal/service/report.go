package service

import (
	"context"

	"github.com/emrgen/aphorium/internal/model"
	"github.com/emrgen/aphorium/internal/store"
)

// Reporter answers read-only questions about the corpus.
type Reporter struct {
	store store.Store
}

func NewReporter(store store.Store) *Reporter {
	return &Reporter{store: store}
}

// Unlinked lists the quotes of language that have no counterpart in the
// other language, neither in their bilingual group nor through a link.
func (r *Reporter) Unlinked(ctx context.Context, language, counterpart string) ([]*model.Quote, error) {
	if language == "" || counterpart == "" {
		return nil, ErrMissingLanguage
	}
	if language == counterpart {
		return nil, ErrSameLanguage
	}
	return r.store.ListUnlinkedQuotes(ctx, language, counterpart)
}

// Tombstones lists the snapshots of the quotes merged into canonicalID.
func (r *Reporter) Tombstones(ctx context.Context, canonicalID uint) ([]*model.TombstoneSnapshot, error) {
	tombstones, err := r.store.ListTombstones(ctx, canonicalID)
	if err != nil {
		return nil, err
	}

	snapshots := make([]*model.TombstoneSnapshot, 0, len(tombstones))
	for _, tombstone := range tombstones {
		snapshot, err := DecodeTombstone(tombstone)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}
