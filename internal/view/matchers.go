package view

import (
	"strings"

	"github.com/ashendes/store-console/internal/models"
)

// ProductMatcher matches products whose name or category contains the term
func ProductMatcher(p models.Product, term string) bool {
	return ContainsFold(p.Name, term) || ContainsFold(p.Category, term)
}

// StatusPredicate filters orders by status text. An empty status matches everything.
func StatusPredicate(status string) func(models.Order) bool {
	want := strings.ToLower(strings.TrimSpace(status))
	if want == "" {
		return nil
	}
	return func(o models.Order) bool {
		return ContainsFold(string(o.Status), want)
	}
}
