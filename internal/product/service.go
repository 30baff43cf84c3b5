package product

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"catalog-be/internal/logger"
	"catalog-be/internal/metrics"
	"catalog-be/internal/utils"

	"go.uber.org/zap"
)

const DefaultRelatedLimit = 4

type Service interface {
	List(ctx context.Context, opts ListOptions) ([]Product, error)
	Get(ctx context.Context, identifier string) (*Product, error)
	Create(ctx context.Context, input CreateInput) (*Product, error)
	Update(ctx context.Context, identifier string, input UpdateInput) (*Product, error)
	Delete(ctx context.Context, identifier string) error
	// Related never fails; lookup errors yield an empty list.
	Related(ctx context.Context, identifier string, limit int) []Product
	Categories(ctx context.Context) ([]string, error)
	Seed(ctx context.Context, inputs []CreateInput, reset bool) (int, error)
}

type service struct {
	repo    Repository
	metrics *metrics.Registry
	now     func() time.Time
}

func NewService(repo Repository, reg *metrics.Registry) Service {
	return &service{
		repo:    repo,
		metrics: reg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) lookups(identifier string) []Lookup {
	return Resolve(identifier, s.repo.IsKey)
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "List"),
	)

	start := time.Now()
	q := BuildQuery(opts)

	log.Debug("list products requested",
		zap.Strings("categories", q.Categories),
		zap.String("search", q.Search),
		zap.Int("sort", int(q.Sort)),
		zap.Int64("limit", q.Limit),
	)

	products, err := s.repo.List(ctx, q)
	if err != nil {
		log.Error("failed to fetch products",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, err
	}

	log.Info("list products success",
		zap.Int("count", len(products)),
		zap.Duration("duration", time.Since(start)),
	)
	return products, nil
}

func (s *service) Get(ctx context.Context, identifier string) (*Product, error) {
	return resolveWith(ctx, s.lookups(identifier), s.repo.FindOne)
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Create"),
	)

	input.normalize()
	if err := validateStruct(input); err != nil {
		log.Info("create rejected", zap.Error(err))
		return nil, err
	}

	p := newProduct(input, utils.Slugify(input.Title), s.now())
	if err := validateStruct(p); err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, &p); err != nil {
		if errors.Is(err, ErrDuplicateSlug) {
			log.Warn("duplicate slug", zap.String("slug", p.Slug))
		} else {
			log.Error("failed to insert product", zap.Error(err))
		}
		return nil, err
	}

	s.metrics.Counter(metrics.ProductsCreated).Inc()
	log.Info("product created",
		zap.String("id", p.ID),
		zap.String("slug", p.Slug),
	)
	return &p, nil
}

func (s *service) Update(ctx context.Context, identifier string, input UpdateInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Update"),
		zap.String("identifier", identifier),
	)

	current, err := s.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if input.IsEmpty() {
		return current, nil
	}

	merged, titleChanged := input.apply(*current)
	if titleChanged {
		merged.Slug = utils.Slugify(merged.Title)
	}

	if err := validateStruct(merged); err != nil {
		log.Info("update rejected", zap.Error(err))
		return nil, err
	}

	merged.UpdatedAt = s.now()

	if err := s.repo.Replace(ctx, &merged); err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrDuplicateSlug) {
			log.Error("failed to replace product", zap.Error(err))
		}
		return nil, err
	}

	s.metrics.Counter(metrics.ProductsUpdated).Inc()
	log.Info("product updated",
		zap.String("id", merged.ID),
		zap.String("slug", merged.Slug),
		zap.Bool("slug_changed", merged.Slug != current.Slug),
	)
	return &merged, nil
}

func (s *service) Delete(ctx context.Context, identifier string) error {
	_, err := resolveWith(ctx, s.lookups(identifier), func(ctx context.Context, l Lookup) (struct{}, error) {
		return struct{}{}, s.repo.Delete(ctx, l)
	})
	if err != nil {
		return err
	}

	s.metrics.Counter(metrics.ProductsDeleted).Inc()
	logger.FromCtx(ctx).Info("product deleted", zap.String("identifier", identifier))
	return nil
}

func (s *service) Related(ctx context.Context, identifier string, limit int) []Product {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Related"),
	)

	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	p, err := s.Get(ctx, identifier)
	if err != nil {
		log.Warn("related lookup skipped", zap.String("identifier", identifier), zap.Error(err))
		return []Product{}
	}

	// One extra to make up for the product itself.
	candidates, err := s.repo.List(ctx, Query{Categories: []string{p.Category}, Limit: int64(limit) + 1})
	if err != nil {
		log.Warn("related lookup failed", zap.Error(err))
		return []Product{}
	}

	out := make([]Product, 0, limit)
	for _, c := range candidates {
		if c.ID == p.ID {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, c)
	}
	return out
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	stored, err := s.repo.Categories(ctx)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to fetch categories", zap.Error(err))
		return nil, err
	}

	seen := make(map[string]bool)
	out := make([]string, 0, len(stored)+len(DefaultCategories))
	for _, c := range append(append([]string{}, DefaultCategories...), stored...) {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// Seed validates every input and checks the batch for repeated slugs before
// it optionally wipes the collection, then inserts the products with slugs
// from utils.Slugify.
func (s *service) Seed(ctx context.Context, inputs []CreateInput, reset bool) (int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Seed"),
	)

	now := s.now()
	products := make([]*Product, 0, len(inputs))
	slugs := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		in.normalize()
		if err := validateStruct(in); err != nil {
			return 0, err
		}
		slug := utils.Slugify(in.Title)
		if _, dup := slugs[slug]; dup {
			return 0, fmt.Errorf("%w: %q appears twice in the batch", ErrDuplicateSlug, slug)
		}
		slugs[slug] = struct{}{}

		p := newProduct(in, slug, now)
		products = append(products, &p)
	}

	if reset {
		n, err := s.repo.DeleteAll(ctx)
		if err != nil {
			return 0, err
		}
		log.Info("cleared existing products", zap.Int64("deleted", n))
	}

	if err := s.repo.InsertMany(ctx, products); err != nil {
		return 0, err
	}

	s.metrics.Counter(metrics.ProductsCreated).Add(uint64(len(products)))
	log.Info("seeded products", zap.Int("count", len(products)))
	return len(products), nil
}
