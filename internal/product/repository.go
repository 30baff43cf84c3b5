package product

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Repository is implemented by every persistence backend. Single item
// methods take a Lookup produced by Resolve and report ErrNotFound on a
// miss; writes that break slug uniqueness report ErrDuplicateSlug.
type Repository interface {
	// IsKey reports whether id has the shape of a native key.
	IsKey(id string) bool
	List(ctx context.Context, q Query) ([]Product, error)
	FindOne(ctx context.Context, l Lookup) (*Product, error)
	// Insert stores p and sets its ID.
	Insert(ctx context.Context, p *Product) error
	InsertMany(ctx context.Context, ps []*Product) error
	// Replace overwrites the stored product with the same ID.
	Replace(ctx context.Context, p *Product) error
	Delete(ctx context.Context, l Lookup) error
	DeleteAll(ctx context.Context) (int64, error)
	// Categories returns the distinct categories in use.
	Categories(ctx context.Context) ([]string, error)
}

// memoryRepository keeps products in insertion order. Keys are ObjectID hex
// strings so identifiers look the same as with the document store.
type memoryRepository struct {
	mu    sync.RWMutex
	items []Product
}

func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) IsKey(id string) bool {
	_, err := bson.ObjectIDFromHex(id)
	return err == nil
}

func (r *memoryRepository) List(ctx context.Context, q Query) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, 0)
	for _, p := range r.items {
		if q.Matches(p) {
			out = append(out, p)
		}
	}

	switch q.Sort {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	}

	if q.Limit > 0 && int64(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *memoryRepository) indexOf(l Lookup) int {
	for i, p := range r.items {
		if (l.Field == ByKey && p.ID == l.Value) || (l.Field == BySlug && p.Slug == l.Value) {
			return i
		}
	}
	return -1
}

func (r *memoryRepository) slugTaken(slug, exceptID string) bool {
	for _, p := range r.items {
		if p.Slug == slug && p.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *memoryRepository) FindOne(ctx context.Context, l Lookup) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(l)
	if i < 0 {
		return nil, ErrNotFound
	}
	p := r.items[i]
	return &p, nil
}

func (r *memoryRepository) Insert(ctx context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.insertLocked(p)
}

func (r *memoryRepository) insertLocked(p *Product) error {
	if r.slugTaken(p.Slug, "") {
		return ErrDuplicateSlug
	}
	p.ID = bson.NewObjectID().Hex()
	r.items = append(r.items, *p)
	return nil
}

// InsertMany stores every product or none of them.
func (r *memoryRepository) InsertMany(ctx context.Context, ps []*Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(ps))
	for _, p := range ps {
		if seen[p.Slug] || r.slugTaken(p.Slug, "") {
			return ErrDuplicateSlug
		}
		seen[p.Slug] = true
	}

	for _, p := range ps {
		if err := r.insertLocked(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryRepository) Replace(ctx context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(Lookup{Field: ByKey, Value: p.ID})
	if i < 0 {
		return ErrNotFound
	}
	if r.slugTaken(p.Slug, p.ID) {
		return ErrDuplicateSlug
	}
	r.items[i] = *p
	return nil
}

func (r *memoryRepository) Delete(ctx context.Context, l Lookup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(l)
	if i < 0 {
		return ErrNotFound
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	return nil
}

func (r *memoryRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.items))
	r.items = nil
	return n, nil
}

func (r *memoryRepository) Categories(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, p := range r.items {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}
