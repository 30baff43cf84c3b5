package product

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"catalog-be/internal/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

const (
	CollectionName = "products"
	SlugIndexName  = "slug_unique"
)

// MongoSource hands out the database, connecting lazily.
type MongoSource interface {
	Database(ctx context.Context) (*mongo.Database, error)
}

type mongoRepository struct {
	src MongoSource
}

func NewMongoRepository(src MongoSource) Repository {
	return &mongoRepository{src: src}
}

// EnsureIndexes creates the unique slug index. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	name, err := db.Collection(CollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(SlugIndexName),
	})
	if err != nil {
		return fmt.Errorf("create slug index: %w", err)
	}

	logger.FromCtx(ctx).Debug("index ensured", zap.String("index", name))
	return nil
}

func (r *mongoRepository) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := r.src.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(CollectionName), nil
}

func (r *mongoRepository) IsKey(id string) bool {
	_, err := bson.ObjectIDFromHex(id)
	return err == nil
}

// mongoFilter translates the predicates of q into a find filter.
func mongoFilter(q Query) bson.D {
	filter := bson.D{}

	if len(q.Categories) > 0 {
		filter = append(filter, bson.E{Key: "category", Value: bson.D{{Key: "$in", Value: q.Categories}}})
	}

	if q.Search != "" {
		filter = append(filter, bson.E{Key: "title", Value: bson.Regex{Pattern: q.Search, Options: "i"}})
	}

	if q.MinPrice != nil || q.MaxPrice != nil {
		price := bson.D{}
		if q.MinPrice != nil {
			price = append(price, bson.E{Key: "$gte", Value: *q.MinPrice})
		}
		if q.MaxPrice != nil {
			price = append(price, bson.E{Key: "$lte", Value: *q.MaxPrice})
		}
		filter = append(filter, bson.E{Key: "price", Value: price})
	}

	return filter
}

func mongoFindOptions(q Query) *options.FindOptionsBuilder {
	opts := options.Find()

	switch q.Sort {
	case SortPriceAsc:
		opts.SetSort(bson.D{{Key: "price", Value: 1}})
	case SortPriceDesc:
		opts.SetSort(bson.D{{Key: "price", Value: -1}})
	}

	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return opts
}

// lookupFilter returns false when l can never match, e.g. a key lookup with
// a value that is not an ObjectID.
func lookupFilter(l Lookup) (bson.D, bool) {
	if l.Field == ByKey {
		oid, err := bson.ObjectIDFromHex(l.Value)
		if err != nil {
			return nil, false
		}
		return bson.D{{Key: "_id", Value: oid}}, true
	}
	return bson.D{{Key: "slug", Value: l.Value}}, true
}

func translateMongoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicateSlug
	default:
		return err
	}
}

func (r *mongoRepository) List(ctx context.Context, q Query) ([]Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
	)

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	filter := mongoFilter(q)
	log.Debug("Executing find", zap.Any("filter", filter))

	cur, err := coll.Find(ctx, filter, mongoFindOptions(q))
	if err != nil {
		log.Error("find failed", zap.Error(err))
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]Product, 0)
	for cur.Next(ctx) {
		var d document
		if err := cur.Decode(&d); err != nil {
			log.Error("decode failed", zap.Error(err))
			return nil, err
		}
		out = append(out, fromDocument(d))
	}

	if err := cur.Err(); err != nil {
		log.Error("cursor iteration failed", zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (r *mongoRepository) FindOne(ctx context.Context, l Lookup) (*Product, error) {
	filter, ok := lookupFilter(l)
	if !ok {
		return nil, ErrNotFound
	}

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	var d document
	if err := coll.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, translateMongoError(err)
	}

	p := fromDocument(d)
	return &p, nil
}

func (r *mongoRepository) Insert(ctx context.Context, p *Product) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	d, err := toDocument(p)
	if err != nil {
		return err
	}
	d.ID = bson.NewObjectID()

	if _, err := coll.InsertOne(ctx, d); err != nil {
		return translateMongoError(err)
	}

	p.ID = d.ID.Hex()
	return nil
}

// insertedFilter matches every document of a batch by its preassigned id.
func insertedFilter(docs []document) bson.D {
	ids := make(bson.A, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
}

func (r *mongoRepository) InsertMany(ctx context.Context, ps []*Product) error {
	if len(ps) == 0 {
		return nil
	}

	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	docs := make([]document, 0, len(ps))
	for _, p := range ps {
		d, err := toDocument(p)
		if err != nil {
			return err
		}
		d.ID = bson.NewObjectID()
		docs = append(docs, d)
	}

	if _, err := coll.InsertMany(ctx, docs); err != nil {
		// An ordered insert stops at the first failure; remove whatever
		// made it in so the batch is all or nothing.
		if _, derr := coll.DeleteMany(context.WithoutCancel(ctx), insertedFilter(docs)); derr != nil {
			logger.FromCtx(ctx).Error("failed to roll back partial insert",
				zap.String("layer", "repository"),
				zap.String("method", "InsertMany"),
				zap.Error(derr),
			)
		}
		return translateMongoError(err)
	}

	for i, p := range ps {
		p.ID = docs[i].ID.Hex()
	}
	return nil
}

func (r *mongoRepository) Replace(ctx context.Context, p *Product) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	d, err := toDocument(p)
	if err != nil {
		return err
	}

	res, err := coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: d.ID}}, d)
	if err != nil {
		return translateMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, l Lookup) error {
	filter, ok := lookupFilter(l)
	if !ok {
		return ErrNotFound
	}

	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	res, err := coll.DeleteOne(ctx, filter)
	if err != nil {
		return translateMongoError(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRepository) DeleteAll(ctx context.Context) (int64, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return 0, err
	}

	res, err := coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *mongoRepository) Categories(ctx context.Context) ([]string, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	var out []string
	if err := coll.Distinct(ctx, "category", bson.D{}).Decode(&out); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
