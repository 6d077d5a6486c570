// Package catalog filters and orders the product catalog on the client.
package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"stockroom/domain"
)

// Query returns the products matching spec, in the order spec asks for.
// The input slice is never modified; the result is a new slice.
func Query(products []domain.Product, spec domain.FilterSortSpec) []domain.Product {
	fold := cases.Fold()
	needle := fold.String(spec.SearchQuery)

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if needle != "" && !matchesFolded(fold, p, needle) {
			continue
		}
		if spec.City != "" && !InCity(p, spec.City) {
			continue
		}
		if spec.InStockOnly && !HasStock(p) {
			continue
		}
		out = append(out, p)
	}

	cmp := comparator(spec)
	if cmp == nil {
		return out
	}
	desc := spec.OrderBy == domain.OrderDesc
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return cmp(out[j], out[i]) < 0
		}
		return cmp(out[i], out[j]) < 0
	})
	return out
}

// Matches reports whether query occurs, ignoring case, in the product's
// name, type or supplier. An empty query matches everything.
func Matches(p domain.Product, query string) bool {
	if query == "" {
		return true
	}
	fold := cases.Fold()
	return matchesFolded(fold, p, fold.String(query))
}

func matchesFolded(fold cases.Caser, p domain.Product, needle string) bool {
	for _, field := range []string{p.Name, p.Type, p.Supplier} {
		if field != "" && strings.Contains(fold.String(field), needle) {
			return true
		}
	}
	return false
}

// InCity reports whether any stock line of p is held in city.
func InCity(p domain.Product, city string) bool {
	for _, s := range p.Stocks {
		if s.Localisation.City == city {
			return true
		}
	}
	return false
}

// HasStock reports whether any warehouse holds a positive quantity of p.
func HasStock(p domain.Product) bool {
	for _, s := range p.Stocks {
		if s.Quantity > 0 {
			return true
		}
	}
	return false
}

// TotalQuantity sums the quantity of p across all warehouses.
func TotalQuantity(p domain.Product) int {
	total := 0
	for _, s := range p.Stocks {
		total += s.Quantity
	}
	return total
}

// FindByBarcode returns the first product carrying barcode.
func FindByBarcode(products []domain.Product, barcode string) (domain.Product, bool) {
	if barcode == "" {
		return domain.Product{}, false
	}
	for _, p := range products {
		if p.Barcode == barcode {
			return p, true
		}
	}
	return domain.Product{}, false
}

func comparator(spec domain.FilterSortSpec) func(a, b domain.Product) int {
	switch spec.SortBy {
	case domain.SortByName:
		col := collate.New(localeTag(spec.Locale))
		return func(a, b domain.Product) int {
			return col.CompareString(a.Name, b.Name)
		}
	case domain.SortByQuantity:
		return func(a, b domain.Product) int {
			return TotalQuantity(a) - TotalQuantity(b)
		}
	case domain.SortByStock:
		return func(a, b domain.Product) int {
			return stockRank(a) - stockRank(b)
		}
	default:
		return nil
	}
}

func stockRank(p domain.Product) int {
	if HasStock(p) {
		return 1
	}
	return 0
}

func localeTag(locale string) language.Tag {
	if locale == "" {
		return language.Und
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.Und
	}
	return tag
}
