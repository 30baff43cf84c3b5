package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"catalog-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	pqUniqueViolation    = "23505"
	pqInvalidRegexpError = "2201B"
)

// SQLSource hands out the connection pool, connecting lazily.
type SQLSource interface {
	SQL(ctx context.Context) (*sql.DB, error)
}

type postgresRepository struct {
	src SQLSource
}

func NewPostgresRepository(src SQLSource) Repository {
	return &postgresRepository{src: src}
}

const productColumns = `id, title, image, category, price, availability, slug, description, created_at, updated_at`

// IsKey accepts only the canonical hyphenated form. uuid.Validate also
// takes urn and braced forms that the id column would reject.
func (r *postgresRepository) IsKey(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}

// buildListSQL renders q as a SELECT with positional arguments.
func buildListSQL(q Query) (string, []interface{}) {
	query := `SELECT ` + productColumns + ` FROM products`

	where := []string{}
	args := []interface{}{}

	if len(q.Categories) > 0 {
		args = append(args, pq.Array(q.Categories))
		where = append(where, fmt.Sprintf("category = ANY($%d)", len(args)))
	}

	if q.Search != "" {
		args = append(args, q.Search)
		where = append(where, fmt.Sprintf("title ~* $%d", len(args)))
	}

	if q.MinPrice != nil {
		args = append(args, *q.MinPrice)
		where = append(where, fmt.Sprintf("price >= $%d", len(args)))
	}

	if q.MaxPrice != nil {
		args = append(args, *q.MaxPrice)
		where = append(where, fmt.Sprintf("price <= $%d", len(args)))
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	switch q.Sort {
	case SortPriceAsc:
		query += " ORDER BY price ASC"
	case SortPriceDesc:
		query += " ORDER BY price DESC"
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Title, &p.Image, &p.Category, &p.Price, &p.Availability,
		&p.Slug, &p.Description, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func translatePQError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
		return ErrDuplicateSlug
	}
	return err
}

func isInvalidRegexp(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqInvalidRegexpError
}

func (r *postgresRepository) List(ctx context.Context, q Query) ([]Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
	)

	db, err := r.src.SQL(ctx)
	if err != nil {
		return nil, err
	}

	query, args := buildListSQL(q)
	log.Debug("Executing List query",
		zap.String("query", query),
		zap.Any("args", args),
	)

	rows, err := db.QueryContext(ctx, query, args...)
	if isInvalidRegexp(err) {
		if literal, ok := q.LiteralSearch(); ok {
			log.Info("search pattern rejected by database, matching literally", zap.String("search", q.Search))
			query, args = buildListSQL(literal)
			rows, err = db.QueryContext(ctx, query, args...)
		}
	}
	if err != nil {
		log.Error("DB query failed List", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			log.Error("Row scan failed", zap.Error(err))
			return nil, err
		}
		out = append(out, p)
	}

	if err := rows.Err(); err != nil {
		log.Error("Rows iteration failed", zap.Error(err))
		return nil, err
	}
	return out, nil
}

// lookupClause returns false when l can never match a row.
func (r *postgresRepository) lookupClause(l Lookup) (string, bool) {
	if l.Field == ByKey {
		if !r.IsKey(l.Value) {
			return "", false
		}
		return "id = $1", true
	}
	return "slug = $1", true
}

func (r *postgresRepository) FindOne(ctx context.Context, l Lookup) (*Product, error) {
	clause, ok := r.lookupClause(l)
	if !ok {
		return nil, ErrNotFound
	}

	db, err := r.src.SQL(ctx)
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE `+clause, l.Value)
	p, err := scanProduct(row)
	if err != nil {
		return nil, translatePQError(err)
	}
	return &p, nil
}

const insertProductSQL = `INSERT INTO products (` + productColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func insertArgs(p *Product) []interface{} {
	return []interface{}{
		p.ID, p.Title, p.Image, p.Category, p.Price, p.Availability,
		p.Slug, p.Description, p.CreatedAt, p.UpdatedAt,
	}
}

func (r *postgresRepository) Insert(ctx context.Context, p *Product) error {
	db, err := r.src.SQL(ctx)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	row := *p
	row.ID = id

	if _, err := db.ExecContext(ctx, insertProductSQL, insertArgs(&row)...); err != nil {
		return translatePQError(err)
	}

	p.ID = id
	return nil
}

// InsertMany runs all inserts in one transaction.
func (r *postgresRepository) InsertMany(ctx context.Context, ps []*Product) error {
	if len(ps) == 0 {
		return nil
	}

	db, err := r.src.SQL(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ids := make([]string, len(ps))
	for i, p := range ps {
		row := *p
		row.ID = uuid.NewString()
		if _, err := tx.ExecContext(ctx, insertProductSQL, insertArgs(&row)...); err != nil {
			return translatePQError(err)
		}
		ids[i] = row.ID
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	for i, p := range ps {
		p.ID = ids[i]
	}
	return nil
}

func (r *postgresRepository) Replace(ctx context.Context, p *Product) error {
	if !r.IsKey(p.ID) {
		return ErrNotFound
	}

	db, err := r.src.SQL(ctx)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `
		UPDATE products
		SET title = $2, image = $3, category = $4, price = $5, availability = $6,
			slug = $7, description = $8, updated_at = $9
		WHERE id = $1`,
		p.ID, p.Title, p.Image, p.Category, p.Price, p.Availability,
		p.Slug, p.Description, p.UpdatedAt,
	)
	if err != nil {
		return translatePQError(err)
	}

	return expectAffected(res)
}

func (r *postgresRepository) Delete(ctx context.Context, l Lookup) error {
	clause, ok := r.lookupClause(l)
	if !ok {
		return ErrNotFound
	}

	db, err := r.src.SQL(ctx)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM products WHERE `+clause, l.Value)
	if err != nil {
		return translatePQError(err)
	}

	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteAll(ctx context.Context) (int64, error) {
	db, err := r.src.SQL(ctx)
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM products`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *postgresRepository) Categories(ctx context.Context) ([]string, error) {
	db, err := r.src.SQL(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
