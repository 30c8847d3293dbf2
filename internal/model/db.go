package model

import "gorm.io/gorm"

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Author{}, &Source{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&Quote{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&QuoteTranslation{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&QuoteTombstone{}); err != nil {
		return err
	}

	return nil
}
