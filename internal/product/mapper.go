package product

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// document is the stored shape of a product in the "products" collection.
type document struct {
	ID           bson.ObjectID `bson:"_id"`
	Title        string        `bson:"title"`
	Image        string        `bson:"image"`
	Category     string        `bson:"category"`
	Price        float64       `bson:"price"`
	Availability bool          `bson:"availability"`
	Slug         string        `bson:"slug"`
	Description  string        `bson:"description"`
	CreatedAt    time.Time     `bson:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt"`
}

func toDocument(p *Product) (document, error) {
	var id bson.ObjectID
	if p.ID != "" {
		oid, err := bson.ObjectIDFromHex(p.ID)
		if err != nil {
			return document{}, ErrNotFound
		}
		id = oid
	}

	return document{
		ID:           id,
		Title:        p.Title,
		Image:        p.Image,
		Category:     p.Category,
		Price:        p.Price,
		Availability: p.Availability,
		Slug:         p.Slug,
		Description:  p.Description,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}, nil
}

func fromDocument(d document) Product {
	return Product{
		ID:           d.ID.Hex(),
		Title:        d.Title,
		Image:        d.Image,
		Category:     d.Category,
		Price:        d.Price,
		Availability: d.Availability,
		Slug:         d.Slug,
		Description:  d.Description,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// newProduct builds the document for a validated create request.
func newProduct(in CreateInput, slug string, now time.Time) Product {
	availability := true
	if in.Availability != nil {
		availability = *in.Availability
	}

	return Product{
		Title:        in.Title,
		Image:        in.Image,
		Category:     in.Category,
		Price:        *in.Price,
		Availability: availability,
		Slug:         slug,
		Description:  in.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
