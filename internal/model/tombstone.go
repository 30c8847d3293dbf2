package model

import "time"

// QuoteTombstone keeps a snapshot of a quote absorbed by a merge.
// The snapshot holds the quote and the links it had before redirection,
// encoded with the codec named in Compression.
// Tombstones are purged after the configured retention.
type QuoteTombstone struct {
	ID          uint   `gorm:"primaryKey"`
	QuoteID     uint   `gorm:"not null;index"`
	CanonicalID uint   `gorm:"not null;index"`
	Language    string `gorm:"size:10;not null"`
	Snapshot    []byte
	Compression string
	CreatedAt   time.Time `gorm:"index"`
}

func (QuoteTombstone) TableName() string {
	return "quote_tombstones"
}

// TombstoneSnapshot is the decoded form of QuoteTombstone.Snapshot.
type TombstoneSnapshot struct {
	Quote        *Quote              `json:"quote"`
	Translations []*QuoteTranslation `json:"translations"`
}
