package store

import (
	"context"
	"errors"
	"time"

	"github.com/emrgen/aphorium/internal/model"
)

var (
	ErrQuoteNotFound       = errors.New("quote not found")
	ErrTranslationNotFound = errors.New("translation not found")
	ErrAuthorNotFound      = errors.New("author not found")
	ErrSourceNotFound      = errors.New("source not found")
)

type Store interface {
	QuoteStore
	TranslationStore
	AttributionStore
	TombstoneStore
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

type QuoteStore interface {
	// CreateQuote creates a new quote.
	CreateQuote(ctx context.Context, quote *model.Quote) error
	// GetQuote retrieves a quote by ID.
	GetQuote(ctx context.Context, id uint) (*model.Quote, error)
	// ListQuotesByLanguage retrieves every quote of a language in id order.
	ListQuotesByLanguage(ctx context.Context, language string) ([]*model.Quote, error)
	// ListQuotesByIDs retrieves the quotes that still exist among ids.
	ListQuotesByIDs(ctx context.Context, ids []uint) ([]*model.Quote, error)
	// ListQuotesByAuthor retrieves the quotes of an author in one language.
	ListQuotesByAuthor(ctx context.Context, authorID uint, language string) ([]*model.Quote, error)
	// ListUnlinkedQuotes retrieves the quotes of language without a
	// counterpart in the other language, neither by group nor by link.
	ListUnlinkedQuotes(ctx context.Context, language, counterpart string) ([]*model.Quote, error)
	// ListQuotesByGroup retrieves the quotes of a bilingual group.
	ListQuotesByGroup(ctx context.Context, groupID uint) ([]*model.Quote, error)
	// UpdateQuote saves every field of a quote.
	UpdateQuote(ctx context.Context, quote *model.Quote) error
	// DeleteQuote hard deletes a quote by ID.
	DeleteQuote(ctx context.Context, id uint) error
	// ReassignGroup moves every quote of group from to group to.
	ReassignGroup(ctx context.Context, from, to uint) (int64, error)
	// MaxGroupID returns the highest bilingual group id in use, or zero.
	MaxGroupID(ctx context.Context) (uint, error)
}

type TranslationStore interface {
	// ListTranslationsBySource retrieves the links leaving a quote.
	ListTranslationsBySource(ctx context.Context, quoteID uint) ([]*model.QuoteTranslation, error)
	// ListTranslationsByTarget retrieves the links pointing at a quote.
	ListTranslationsByTarget(ctx context.Context, quoteID uint) ([]*model.QuoteTranslation, error)
	// ListTranslations retrieves every link in id order.
	ListTranslations(ctx context.Context) ([]*model.QuoteTranslation, error)
	// GetTranslation retrieves the link from source to target.
	GetTranslation(ctx context.Context, source, target uint) (*model.QuoteTranslation, error)
	// UpsertTranslation creates the link from source to target unless it
	// exists. An existing link is returned unchanged with created false.
	UpsertTranslation(ctx context.Context, source, target uint, confidence int) (*model.QuoteTranslation, bool, error)
	// UpdateTranslation saves a link whose endpoints changed.
	UpdateTranslation(ctx context.Context, translation *model.QuoteTranslation) error
	// DeleteTranslation deletes the link from source to target.
	DeleteTranslation(ctx context.Context, source, target uint) error
}

type AttributionStore interface {
	GetAuthor(ctx context.Context, id uint) (*model.Author, error)
	GetSource(ctx context.Context, id uint) (*model.Source, error)
	// ListBilingualAuthors retrieves the ids of authors with quotes in both
	// languages.
	ListBilingualAuthors(ctx context.Context, language, counterpart string) ([]uint, error)
}

type TombstoneStore interface {
	CreateTombstone(ctx context.Context, tombstone *model.QuoteTombstone) error
	// ListTombstones retrieves the tombstones of quotes absorbed into canonicalID.
	ListTombstones(ctx context.Context, canonicalID uint) ([]*model.QuoteTombstone, error)
	// PurgeTombstones deletes the tombstones created before a time.
	PurgeTombstones(ctx context.Context, before time.Time) (int64, error)
}
