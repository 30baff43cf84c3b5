package product

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func hexKey(s string) bool { return len(s) == 24 }

func TestResolve(t *testing.T) {
	t.Run("Key format tries key then slug", func(t *testing.T) {
		got := Resolve("65a1f0c2e4b0a1b2c3d4e5f6", hexKey)
		assert.Equal(t, []Lookup{
			{Field: ByKey, Value: "65a1f0c2e4b0a1b2c3d4e5f6"},
			{Field: BySlug, Value: "65a1f0c2e4b0a1b2c3d4e5f6"},
		}, got)
	})

	t.Run("Anything else is a slug", func(t *testing.T) {
		assert.Equal(t, []Lookup{{Field: BySlug, Value: "running-sneakers"}}, Resolve("running-sneakers", hexKey))
	})

	t.Run("Empty identifier", func(t *testing.T) {
		assert.Empty(t, Resolve("", hexKey))
	})

	t.Run("No key predicate", func(t *testing.T) {
		assert.Equal(t, []Lookup{{Field: BySlug, Value: "x"}}, Resolve("x", nil))
	})
}

func TestLookupField_String(t *testing.T) {
	assert.Equal(t, "key", ByKey.String())
	assert.Equal(t, "slug", BySlug.String())
}

func TestResolveWith(t *testing.T) {
	ctx := context.Background()
	lookups := []Lookup{{Field: ByKey, Value: "a"}, {Field: BySlug, Value: "a"}}

	t.Run("Falls through on not found", func(t *testing.T) {
		var tried []LookupField
		got, err := resolveWith(ctx, lookups, func(ctx context.Context, l Lookup) (string, error) {
			tried = append(tried, l.Field)
			if l.Field == ByKey {
				return "", ErrNotFound
			}
			return "by-slug", nil
		})

		assert.NoError(t, err)
		assert.Equal(t, "by-slug", got)
		assert.Equal(t, []LookupField{ByKey, BySlug}, tried)
	})

	t.Run("Stops at first hit", func(t *testing.T) {
		calls := 0
		got, err := resolveWith(ctx, lookups, func(ctx context.Context, l Lookup) (string, error) {
			calls++
			return "by-key", nil
		})

		assert.NoError(t, err)
		assert.Equal(t, "by-key", got)
		assert.Equal(t, 1, calls)
	})

	t.Run("Other errors abort", func(t *testing.T) {
		boom := errors.New("connection reset")
		calls := 0
		_, err := resolveWith(ctx, lookups, func(ctx context.Context, l Lookup) (string, error) {
			calls++
			return "", boom
		})

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("All miss", func(t *testing.T) {
		_, err := resolveWith(ctx, lookups, func(ctx context.Context, l Lookup) (int, error) {
			return 0, ErrNotFound
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("No lookups", func(t *testing.T) {
		_, err := resolveWith(ctx, nil, func(ctx context.Context, l Lookup) (int, error) {
			t.Fatal("must not be called")
			return 0, nil
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
