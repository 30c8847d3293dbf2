package service

import "errors"

var (
	// ErrSameLanguage is returned when a link is requested between two quotes of one language.
	ErrSameLanguage = errors.New("quotes must have different languages")
	// ErrMissingLanguage is returned when a quote has no language tag.
	ErrMissingLanguage = errors.New("quote has no language")
	// ErrEmptyText is returned when a quote has no text.
	ErrEmptyText = errors.New("quote has empty text")
	// ErrConfidenceOutOfRange is returned for a link confidence outside 0-100.
	ErrConfidenceOutOfRange = errors.New("confidence must be between 0 and 100")
	// ErrMixedLanguages is returned when a merge is requested across languages.
	ErrMixedLanguages = errors.New("duplicates must share one language")
	// ErrSelfLink is returned when a quote is linked to itself.
	ErrSelfLink = errors.New("a quote cannot be linked to itself")
	// ErrHasCounterpart is returned when materializing a quote that is already linked.
	ErrHasCounterpart = errors.New("quote already has a counterpart")
)
