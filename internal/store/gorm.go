package store

import (
	"context"
	"time"

	"github.com/emrgen/aphorium/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func (g *GormStore) CreateQuote(ctx context.Context, quote *model.Quote) error {
	return g.db.WithContext(ctx).Create(quote).Error
}

func (g *GormStore) GetQuote(ctx context.Context, id uint) (*model.Quote, error) {
	var quote model.Quote
	res := g.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&quote)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrQuoteNotFound
	}
	return &quote, nil
}

func (g *GormStore) ListQuotesByLanguage(ctx context.Context, language string) ([]*model.Quote, error) {
	var quotes []*model.Quote
	err := g.db.WithContext(ctx).Where("language = ?", language).Order("id").Find(&quotes).Error
	return quotes, err
}

func (g *GormStore) ListQuotesByIDs(ctx context.Context, ids []uint) ([]*model.Quote, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var quotes []*model.Quote
	err := g.db.WithContext(ctx).Where("id in (?)", ids).Order("id").Find(&quotes).Error
	return quotes, err
}

func (g *GormStore) ListQuotesByAuthor(ctx context.Context, authorID uint, language string) ([]*model.Quote, error) {
	var quotes []*model.Quote
	err := g.db.WithContext(ctx).
		Where("author_id = ? AND language = ?", authorID, language).
		Order("id").
		Find(&quotes).Error
	return quotes, err
}

// ListUnlinkedQuotes looks for a counterpart through the bilingual group and
// through links in both directions.
func (g *GormStore) ListUnlinkedQuotes(ctx context.Context, language, counterpart string) ([]*model.Quote, error) {
	var quotes []*model.Quote
	err := g.db.WithContext(ctx).
		Where("language = ?", language).
		Where(`NOT EXISTS (SELECT 1 FROM quotes AS other
			WHERE quotes.bilingual_group_id IS NOT NULL
			AND other.bilingual_group_id = quotes.bilingual_group_id
			AND other.language = ?)`, counterpart).
		Where(`NOT EXISTS (SELECT 1 FROM quote_translations AS t
			JOIN quotes AS other ON other.id = t.translated_quote_id
			WHERE t.quote_id = quotes.id AND other.language = ?)`, counterpart).
		Where(`NOT EXISTS (SELECT 1 FROM quote_translations AS t
			JOIN quotes AS other ON other.id = t.quote_id
			WHERE t.translated_quote_id = quotes.id AND other.language = ?)`, counterpart).
		Order("id").
		Find(&quotes).Error
	return quotes, err
}

func (g *GormStore) ListQuotesByGroup(ctx context.Context, groupID uint) ([]*model.Quote, error) {
	var quotes []*model.Quote
	err := g.db.WithContext(ctx).Where("bilingual_group_id = ?", groupID).Order("id").Find(&quotes).Error
	return quotes, err
}

func (g *GormStore) UpdateQuote(ctx context.Context, quote *model.Quote) error {
	return g.db.WithContext(ctx).Save(quote).Error
}

func (g *GormStore) DeleteQuote(ctx context.Context, id uint) error {
	return g.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Quote{}).Error
}

func (g *GormStore) ReassignGroup(ctx context.Context, from, to uint) (int64, error) {
	res := g.db.WithContext(ctx).
		Model(&model.Quote{}).
		Where("bilingual_group_id = ?", from).
		Update("bilingual_group_id", to)
	if res.Error != nil {
		return 0, res.Error
	}

	logrus.Debugf("reassigned %d quotes from group %d to %d", res.RowsAffected, from, to)
	return res.RowsAffected, nil
}

func (g *GormStore) MaxGroupID(ctx context.Context) (uint, error) {
	var maxID int64
	row := g.db.WithContext(ctx).Model(&model.Quote{}).Select("COALESCE(MAX(bilingual_group_id), 0)").Row()
	if err := row.Scan(&maxID); err != nil {
		return 0, err
	}
	return uint(maxID), nil
}

func (g *GormStore) ListTranslationsBySource(ctx context.Context, quoteID uint) ([]*model.QuoteTranslation, error) {
	var translations []*model.QuoteTranslation
	err := g.db.WithContext(ctx).Where("quote_id = ?", quoteID).Order("id").Find(&translations).Error
	return translations, err
}

func (g *GormStore) ListTranslationsByTarget(ctx context.Context, quoteID uint) ([]*model.QuoteTranslation, error) {
	var translations []*model.QuoteTranslation
	err := g.db.WithContext(ctx).Where("translated_quote_id = ?", quoteID).Order("id").Find(&translations).Error
	return translations, err
}

func (g *GormStore) ListTranslations(ctx context.Context) ([]*model.QuoteTranslation, error) {
	var translations []*model.QuoteTranslation
	err := g.db.WithContext(ctx).Order("id").Find(&translations).Error
	return translations, err
}

func (g *GormStore) GetTranslation(ctx context.Context, source, target uint) (*model.QuoteTranslation, error) {
	var translation model.QuoteTranslation
	res := g.db.WithContext(ctx).
		Where("quote_id = ? AND translated_quote_id = ?", source, target).
		Limit(1).
		Find(&translation)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrTranslationNotFound
	}
	return &translation, nil
}

// UpsertTranslation relies on the unique (quote_id, translated_quote_id)
// index, so a concurrent insert of the same link is not an error.
func (g *GormStore) UpsertTranslation(ctx context.Context, source, target uint, confidence int) (*model.QuoteTranslation, bool, error) {
	translation := &model.QuoteTranslation{
		QuoteID:           source,
		TranslatedQuoteID: target,
		Confidence:        confidence,
	}

	res := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(translation)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return translation, true, nil
	}

	existing, err := g.GetTranslation(ctx, source, target)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (g *GormStore) UpdateTranslation(ctx context.Context, translation *model.QuoteTranslation) error {
	return g.db.WithContext(ctx).Save(translation).Error
}

func (g *GormStore) DeleteTranslation(ctx context.Context, source, target uint) error {
	return g.db.WithContext(ctx).
		Where("quote_id = ? AND translated_quote_id = ?", source, target).
		Delete(&model.QuoteTranslation{}).Error
}

func (g *GormStore) GetAuthor(ctx context.Context, id uint) (*model.Author, error) {
	var author model.Author
	res := g.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&author)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAuthorNotFound
	}
	return &author, nil
}

func (g *GormStore) GetSource(ctx context.Context, id uint) (*model.Source, error) {
	var source model.Source
	res := g.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&source)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrSourceNotFound
	}
	return &source, nil
}

func (g *GormStore) ListBilingualAuthors(ctx context.Context, language, counterpart string) ([]uint, error) {
	var ids []uint
	err := g.db.WithContext(ctx).
		Model(&model.Quote{}).
		Where("author_id IS NOT NULL AND language IN ?", []string{language, counterpart}).
		Group("author_id").
		Having("COUNT(DISTINCT language) = ?", 2).
		Order("author_id").
		Pluck("author_id", &ids).Error
	return ids, err
}

func (g *GormStore) CreateTombstone(ctx context.Context, tombstone *model.QuoteTombstone) error {
	return g.db.WithContext(ctx).Create(tombstone).Error
}

func (g *GormStore) ListTombstones(ctx context.Context, canonicalID uint) ([]*model.QuoteTombstone, error) {
	var tombstones []*model.QuoteTombstone
	err := g.db.WithContext(ctx).Where("canonical_id = ?", canonicalID).Order("id").Find(&tombstones).Error
	return tombstones, err
}

func (g *GormStore) PurgeTombstones(ctx context.Context, before time.Time) (int64, error) {
	res := g.db.WithContext(ctx).Where("created_at < ?", before).Delete(&model.QuoteTombstone{})
	return res.RowsAffected, res.Error
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}
