package store

import (
	"fmt"
	"strconv"
	"strings"

	"catalog-be/internal/product"
)

type SortKey string

const (
	SortNone            SortKey = ""
	SortAscendingPrice  SortKey = "ascending-price"
	SortDescendingPrice SortKey = "descending-price"
)

// PriceSliderMax is the top of the price slider; selecting it means no bound.
const PriceSliderMax = 1000

// ParseSortKey accepts the sort keys above and the wire names "low" and "high".
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortNone, SortAscendingPrice, SortDescendingPrice:
		return k, nil
	case "low":
		return SortAscendingPrice, nil
	case "high":
		return SortDescendingPrice, nil
	default:
		return SortNone, fmt.Errorf("unknown sort key %q", s)
	}
}

type Filters struct {
	Search     string
	Categories []string
	// MaxPrice of 0 means unbounded.
	MaxPrice float64
	Sort     SortKey
}

type SetSearch struct{ Query string }

// ToggleCategory selects the category, or deselects it if already selected.
type ToggleCategory struct{ Category string }

type SetMaxPrice struct{ MaxPrice float64 }

// SetSort is ignored when Key is not one of the known sort keys.
type SetSort struct{ Key SortKey }

type ResetFilters struct{}

func (SetSearch) isAction()      {}
func (ToggleCategory) isAction() {}
func (SetMaxPrice) isAction()    {}
func (SetSort) isAction()        {}
func (ResetFilters) isAction()   {}

func reduceFilters(s Filters, a Action) Filters {
	switch a := a.(type) {
	case SetSearch:
		s.Search = a.Query
	case ToggleCategory:
		next := make([]string, 0, len(s.Categories)+1)
		found := false
		for _, c := range s.Categories {
			if c == a.Category {
				found = true
				continue
			}
			next = append(next, c)
		}
		if !found {
			next = append(next, a.Category)
		}
		s.Categories = next
	case SetMaxPrice:
		if a.MaxPrice >= 0 {
			s.MaxPrice = a.MaxPrice
		}
	case SetSort:
		switch a.Key {
		case SortNone, SortAscendingPrice, SortDescendingPrice:
			s.Sort = a.Key
		}
	case ResetFilters:
		s = Filters{Categories: []string{}}
	}
	return s
}

// Params builds the list request for the current selection.
func (f Filters) Params() product.ListOptions {
	var opts product.ListOptions

	if q := strings.TrimSpace(f.Search); q != "" {
		opts.Search = q
	}
	if len(f.Categories) > 0 {
		opts.Category = strings.Join(f.Categories, ",")
	}
	if f.MaxPrice > 0 && f.MaxPrice < PriceSliderMax {
		opts.MaxPrice = strconv.FormatFloat(f.MaxPrice, 'f', -1, 64)
	}
	switch f.Sort {
	case SortAscendingPrice:
		opts.SortBy = "low"
	case SortDescendingPrice:
		opts.SortBy = "high"
	}
	return opts
}
