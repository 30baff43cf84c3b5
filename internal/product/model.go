package product

import (
	"strings"
	"time"
)

// DefaultCategories are offered as suggestions even before any product uses them.
var DefaultCategories = []string{"Clothing", "Shoes", "Accessories", "Electronics"}

type Product struct {
	ID           string    `json:"_id"`
	Title        string    `json:"title" validate:"required"`
	Image        string    `json:"image" validate:"required"`
	Category     string    `json:"category" validate:"required"`
	Price        float64   `json:"price" validate:"gte=0"`
	Availability bool      `json:"availability"`
	Slug         string    `json:"slug" validate:"required"`
	Description  string    `json:"description" validate:"required"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateInput is the body of a create request. Price is a pointer so that
// an explicit 0 can be told apart from a missing value.
type CreateInput struct {
	Title        string   `json:"title" validate:"required"`
	Image        string   `json:"image" validate:"required"`
	Category     string   `json:"category" validate:"required"`
	Price        *float64 `json:"price" validate:"required,gte=0"`
	Availability *bool    `json:"availability,omitempty"`
	Description  string   `json:"description" validate:"required"`
}

func (in *CreateInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
}

// UpdateInput carries the fields to change; nil means keep the stored value.
type UpdateInput struct {
	Title        *string  `json:"title,omitempty"`
	Image        *string  `json:"image,omitempty"`
	Category     *string  `json:"category,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Availability *bool    `json:"availability,omitempty"`
	Description  *string  `json:"description,omitempty"`
}

func (in UpdateInput) IsEmpty() bool {
	return in.Title == nil &&
		in.Image == nil &&
		in.Category == nil &&
		in.Price == nil &&
		in.Availability == nil &&
		in.Description == nil
}

// apply returns a copy of p with the supplied fields merged in. A new title
// reports titleChanged so the caller can derive a fresh slug.
func (in UpdateInput) apply(p Product) (merged Product, titleChanged bool) {
	merged = p
	if in.Title != nil {
		merged.Title = strings.TrimSpace(*in.Title)
		titleChanged = true
	}
	if in.Image != nil {
		merged.Image = *in.Image
	}
	if in.Category != nil {
		merged.Category = *in.Category
	}
	if in.Price != nil {
		merged.Price = *in.Price
	}
	if in.Availability != nil {
		merged.Availability = *in.Availability
	}
	if in.Description != nil {
		merged.Description = *in.Description
	}
	return merged, titleChanged
}
