package model

import "time"

const (
	MinConfidence = 0
	MaxConfidence = 100
)

// QuoteTranslation is a directed equivalence link between two quotes of
// different languages. Links are kept in pairs: A->B and B->A with the same
// confidence.
type QuoteTranslation struct {
	ID                uint `gorm:"primaryKey"`
	QuoteID           uint `gorm:"not null;uniqueIndex:idx_quote_translations_pair"`
	TranslatedQuoteID uint `gorm:"not null;uniqueIndex:idx_quote_translations_pair;index:idx_quote_translations_target"`
	Confidence        int  `gorm:"not null;default:0"` // 0-100
	CreatedAt         time.Time
}

func (QuoteTranslation) TableName() string {
	return "quote_translations"
}

// References reports whether the link touches the quote as source or target.
func (t *QuoteTranslation) References(id uint) bool {
	return t.QuoteID == id || t.TranslatedQuoteID == id
}
