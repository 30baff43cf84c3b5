package product

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ListOptions are the raw filter parameters of a list request.
type ListOptions struct {
	Category string
	Search   string
	MinPrice string
	MaxPrice string
	SortBy   string
	Limit    string
}

func ListOptionsFromValues(v url.Values) ListOptions {
	return ListOptions{
		Category: v.Get("category"),
		Search:   v.Get("search"),
		MinPrice: v.Get("minPrice"),
		MaxPrice: v.Get("maxPrice"),
		SortBy:   v.Get("sortBy"),
		Limit:    v.Get("limit"),
	}
}

type Sort int

const (
	SortNone Sort = iota
	SortPriceAsc
	SortPriceDesc
)

// Query is the backend neutral form of a list request.
type Query struct {
	Categories []string
	// Search is a case-insensitive pattern on the title, empty for none.
	Search   string
	MinPrice *float64
	MaxPrice *float64
	Sort     Sort
	// Limit caps the result count when positive.
	Limit int64

	searchRe      *regexp.Regexp
	searchLiteral bool
}

// BuildQuery parses opts. Malformed numbers are ignored rather than
// rejected, and a search text that is not a valid pattern is matched
// literally.
func BuildQuery(opts ListOptions) Query {
	var q Query

	for _, c := range strings.Split(opts.Category, ",") {
		if c = strings.TrimSpace(c); c != "" {
			q.Categories = append(q.Categories, c)
		}
	}

	if opts.Search != "" {
		q.Search = opts.Search
		re, err := regexp.Compile("(?i)" + opts.Search)
		if err != nil {
			q.Search = regexp.QuoteMeta(opts.Search)
			q.searchLiteral = true
			re = regexp.MustCompile("(?i)" + q.Search)
		}
		q.searchRe = re
	}

	q.MinPrice = parsePrice(opts.MinPrice)
	q.MaxPrice = parsePrice(opts.MaxPrice)

	switch opts.SortBy {
	case "low":
		q.Sort = SortPriceAsc
	case "high":
		q.Sort = SortPriceDesc
	}

	if n, err := strconv.Atoi(strings.TrimSpace(opts.Limit)); err == nil && n > 0 {
		q.Limit = int64(n)
	}

	return q
}

func parsePrice(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Matches reports whether p satisfies every predicate of q. Sort and Limit
// are not predicates and are ignored here.
func (q Query) Matches(p Product) bool {
	if len(q.Categories) > 0 && !contains(q.Categories, p.Category) {
		return false
	}
	if q.Search != "" && !q.searchRegexp().MatchString(p.Title) {
		return false
	}
	if q.MinPrice != nil && p.Price < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && p.Price > *q.MaxPrice {
		return false
	}
	return true
}

func (q Query) searchRegexp() *regexp.Regexp {
	if q.searchRe != nil {
		return q.searchRe
	}
	re, err := regexp.Compile("(?i)" + q.Search)
	if err != nil {
		return regexp.MustCompile("(?i)" + regexp.QuoteMeta(q.Search))
	}
	return re
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// LiteralSearch returns q with the search text quoted, for backends whose
// regex engine rejects a pattern Go accepted. The second result is false
// when there is nothing left to quote.
func (q Query) LiteralSearch() (Query, bool) {
	if q.Search == "" || q.searchLiteral {
		return q, false
	}
	q.Search = regexp.QuoteMeta(q.Search)
	q.searchLiteral = true
	q.searchRe = regexp.MustCompile("(?i)" + q.Search)
	return q, true
}
