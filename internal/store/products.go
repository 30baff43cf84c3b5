package store

import (
	"fmt"
	"strconv"
	"strings"

	"catalog-be/internal/product"
)

const localIDPrefix = "local-"

type ProductsState struct {
	Items   []product.Product
	Loading bool
	Error   string
}

type SetProducts struct{ Items []product.Product }

// AddProduct appends a product. One without an ID gets a local-<n> key.
type AddProduct struct{ Product product.Product }

// UpdateProduct replaces the item with the same ID; unknown IDs are ignored.
type UpdateProduct struct{ Product product.Product }

type DeleteProduct struct{ ID string }

type SetLoading struct{ Loading bool }

// SetError with an empty message clears the error.
type SetError struct{ Message string }

func (SetProducts) isAction()   {}
func (AddProduct) isAction()    {}
func (UpdateProduct) isAction() {}
func (DeleteProduct) isAction() {}
func (SetLoading) isAction()    {}
func (SetError) isAction()      {}

func reduceProducts(s ProductsState, a Action) ProductsState {
	switch a := a.(type) {
	case SetProducts:
		s.Items = append([]product.Product{}, a.Items...)
	case AddProduct:
		p := a.Product
		if p.ID == "" {
			p.ID = nextLocalID(s.Items)
		}
		s.Items = append(append([]product.Product{}, s.Items...), p)
	case UpdateProduct:
		items := append([]product.Product{}, s.Items...)
		for i := range items {
			if items[i].ID == a.Product.ID {
				items[i] = a.Product
				break
			}
		}
		s.Items = items
	case DeleteProduct:
		items := make([]product.Product, 0, len(s.Items))
		for _, p := range s.Items {
			if p.ID != a.ID {
				items = append(items, p)
			}
		}
		s.Items = items
	case SetLoading:
		s.Loading = a.Loading
	case SetError:
		s.Error = a.Message
	}
	return s
}

func nextLocalID(items []product.Product) string {
	highest := 0
	for _, p := range items {
		if !strings.HasPrefix(p.ID, localIDPrefix) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(p.ID, localIDPrefix)); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%d", localIDPrefix, highest+1)
}
