package price

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jmcampos/despensa/internal/model"
)

// Stats summarizes the recorded prices for one product.
type Stats struct {
	Product             string  `json:"product"`
	Count               int     `json:"count"`
	Min                 float64 `json:"min"`
	Max                 float64 `json:"max"`
	Avg                 float64 `json:"avg"`
	CheapestSupermarket string  `json:"cheapest_supermarket"`
	CheapestEntryID     int64   `json:"cheapest_entry_id"`
}

// Summarize folds a product's price entries into min/max/avg per-unit prices
// and the supermarket holding the cheapest one. Entries normalized to zero
// (unknown quantity) are skipped so they cannot win the minimum.
func Summarize(product string, entries []model.PriceEntry) Stats {
	s := Stats{Product: product}

	sum := decimal.Zero
	for _, e := range entries {
		if e.PricePerUnit <= 0 {
			continue
		}
		if s.Count == 0 || e.PricePerUnit < s.Min {
			s.Min = e.PricePerUnit
			s.CheapestSupermarket = e.Supermarket
			s.CheapestEntryID = e.ID
		}
		if e.PricePerUnit > s.Max {
			s.Max = e.PricePerUnit
		}
		sum = sum.Add(decimal.NewFromFloat(e.PricePerUnit))
		s.Count++
	}

	if s.Count > 0 {
		s.Avg = sum.Div(decimal.NewFromInt(int64(s.Count))).Round(2).InexactFloat64()
	}
	return s
}

// BestByProduct picks the cheapest entry per product name (case-insensitive)
// and returns them sorted by product name. Ties keep the most recent purchase.
func BestByProduct(entries []model.PriceEntry) []model.PriceEntry {
	best := make(map[string]model.PriceEntry)
	for _, e := range entries {
		if e.PricePerUnit <= 0 {
			continue
		}
		key := strings.ToLower(e.ProductName)
		cur, ok := best[key]
		switch {
		case !ok:
			best[key] = e
		case e.PricePerUnit < cur.PricePerUnit:
			best[key] = e
		case e.PricePerUnit == cur.PricePerUnit && e.PurchasedAt.After(cur.PurchasedAt):
			best[key] = e
		}
	}

	out := make([]model.PriceEntry, 0, len(best))
	for _, e := range best {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].ProductName) < strings.ToLower(out[j].ProductName)
	})
	return out
}
