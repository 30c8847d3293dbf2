// Package translate defines the source of translated text used when a quote
// has no counterpart in the other language.
package translate

import (
	"context"
	"errors"
)

var ErrNoTranslation = errors.New("no translation available")

// Provider translates text between two languages. Its output is stored as is.
type Provider interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// ProviderFunc adapts a function to a Provider.
type ProviderFunc func(ctx context.Context, text, from, to string) (string, error)

func (f ProviderFunc) Translate(ctx context.Context, text, from, to string) (string, error) {
	return f(ctx, text, from, to)
}

// Unavailable is the provider used when none is configured.
var Unavailable Provider = ProviderFunc(func(context.Context, string, string, string) (string, error) {
	return "", ErrNoTranslation
})
