package model

import "time"

const (
	LanguageEN = "en"
	LanguageRU = "ru"
)

// Quote is a single textual record in one language.
// Quotes sharing a BilingualGroupID are translations of each other.
type Quote struct {
	ID               uint   `gorm:"primaryKey"`
	Text             string `gorm:"not null"`
	Language         string `gorm:"size:10;not null;index:idx_quotes_language;index:idx_quotes_group_language,priority:2"`
	AuthorID         *uint  `gorm:"index:idx_quotes_author"`
	SourceID         *uint
	BilingualGroupID *uint `gorm:"index:idx_quotes_bilingual_group;index:idx_quotes_group_language,priority:1"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Quote) TableName() string {
	return "quotes"
}

// HasGroup reports whether the quote belongs to an equivalence group.
func (q *Quote) HasGroup() bool {
	return q.BilingualGroupID != nil
}

// GroupID returns the equivalence group id, or zero when unset.
func (q *Quote) GroupID() uint {
	if q.BilingualGroupID == nil {
		return 0
	}
	return *q.BilingualGroupID
}

func (q *Quote) Clone() *Quote {
	clone := *q
	clone.AuthorID = cloneRef(q.AuthorID)
	clone.SourceID = cloneRef(q.SourceID)
	clone.BilingualGroupID = cloneRef(q.BilingualGroupID)
	return &clone
}

// Ref returns a pointer to a copy of id, for the nullable reference fields.
func Ref(id uint) *uint {
	return &id
}

func cloneRef(ref *uint) *uint {
	if ref == nil {
		return nil
	}
	return Ref(*ref)
}
