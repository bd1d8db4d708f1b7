// Package catalog implements product suggestions for the order form.
package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tungkhanhbmt-a11y/alibaba2/internal/domain"
)

const DefaultLimit = 20

var dStroke = strings.NewReplacer("đ", "d", "Đ", "d")

// Fold lowercases s and strips combining marks, so "Đường" and "duong"
// compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(dStroke.Replace(folded))
}

// Search returns sellable products whose folded name contains the folded
// query, in catalog order, at most limit of them.
func Search(products []domain.Product, query string, limit int) []domain.Product {
	q := Fold(strings.TrimSpace(query))
	if q == "" {
		return []domain.Product{}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	out := make([]domain.Product, 0, limit)
	for _, p := range products {
		if p.Status == domain.ProductStatusLocked {
			continue
		}
		if !strings.Contains(Fold(p.Name), q) {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}
