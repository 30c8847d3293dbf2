package model

import "time"

// Author is the attribution of a quote. The engine only reads authors.
type Author struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:255;not null;index"`
	Language  string `gorm:"size:10;not null"`
	CreatedAt time.Time
}

func (Author) TableName() string {
	return "authors"
}

// Source is a work that several quotes may be excerpted from.
type Source struct {
	ID        uint   `gorm:"primaryKey"`
	Title     string `gorm:"size:500;not null;index"`
	AuthorID  *uint
	Language  string `gorm:"size:10;not null"`
	CreatedAt time.Time
}

func (Source) TableName() string {
	return "sources"
}
