package product

import (
	"context"
	"errors"
)

type LookupField int

const (
	ByKey LookupField = iota
	BySlug
)

func (f LookupField) String() string {
	if f == ByKey {
		return "key"
	}
	return "slug"
}

// Lookup addresses a single product by its native key or by its slug.
type Lookup struct {
	Field LookupField
	Value string
}

// Resolve turns an external identifier into the lookups to try, in order.
// An identifier in the backend's key format is tried as a key first and
// then as a slug; anything else is only a slug.
func Resolve(identifier string, isKey func(string) bool) []Lookup {
	if identifier == "" {
		return nil
	}
	if isKey != nil && isKey(identifier) {
		return []Lookup{
			{Field: ByKey, Value: identifier},
			{Field: BySlug, Value: identifier},
		}
	}
	return []Lookup{{Field: BySlug, Value: identifier}}
}

// resolveWith runs fn for each lookup until one does not report
// ErrNotFound. Read, update and delete all go through here.
func resolveWith[T any](ctx context.Context, lookups []Lookup, fn func(context.Context, Lookup) (T, error)) (T, error) {
	var zero T
	for _, l := range lookups {
		v, err := fn(ctx, l)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return zero, err
		}
		return v, nil
	}
	return zero, ErrNotFound
}
