// Package basket estimates the cost of a shopping list from category
// average prices.
package basket

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vbonduro/foodwatch/internal/category"
)

// Line is one entry of the list being estimated.
type Line struct {
	Name     string
	Brand    string
	Quantity int
}

type CategoryEstimate struct {
	Category string          `json:"category"`
	Emoji    string          `json:"emoji"`
	Items    int             `json:"items"`
	Estimate decimal.Decimal `json:"estimate"`
	Share    int             `json:"share"`
}

type Result struct {
	TotalEstimate decimal.Decimal    `json:"totalEstimate"`
	Count         int                `json:"count"`
	ByCategory    []CategoryEstimate `json:"byCategory"`
}

type accumulator struct {
	rule  category.Rule
	rank  int
	items int
	sum   decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Estimate prices every line at its category's average price times its
// quantity (non-positive quantities count as 1) and groups the result by
// category.
//
// Category estimates and the total are rounded to whole currency units
// independently, so the rounded rows may differ from the rounded total by up
// to one unit per row. Share is computed before rounding. Rows are sorted by
// descending estimate; equal estimates keep rule table order, which makes the
// result independent of input order. Rows with a zero estimate are kept.
func Estimate(c *category.Classifier, lines []Line) Result {
	result := Result{TotalEstimate: decimal.Zero, ByCategory: []CategoryEstimate{}}
	if len(lines) == 0 {
		return result
	}

	groups := make(map[string]*accumulator)
	total := decimal.Zero
	for _, l := range lines {
		rule := c.Classify(l.Name, l.Brand)
		qty := l.Quantity
		if qty <= 0 {
			qty = 1
		}
		price := rule.AvgPrice.Mul(decimal.NewFromInt(int64(qty)))
		total = total.Add(price)
		result.Count += qty

		acc, ok := groups[rule.Category]
		if !ok {
			acc = &accumulator{rule: rule, rank: c.RankOf(rule.Category), sum: decimal.Zero}
			groups[rule.Category] = acc
		}
		acc.items += qty
		acc.sum = acc.sum.Add(price)
	}

	accs := make([]*accumulator, 0, len(groups))
	for _, acc := range groups {
		accs = append(accs, acc)
	}
	sort.Slice(accs, func(i, j int) bool {
		if cmp := accs[i].sum.Round(0).Cmp(accs[j].sum.Round(0)); cmp != 0 {
			return cmp > 0
		}
		return accs[i].rank < accs[j].rank
	})

	for _, acc := range accs {
		share := 0
		if total.IsPositive() {
			share = int(acc.sum.Div(total).Mul(hundred).Round(0).IntPart())
		}
		result.ByCategory = append(result.ByCategory, CategoryEstimate{
			Category: acc.rule.Category,
			Emoji:    acc.rule.Emoji,
			Items:    acc.items,
			Estimate: acc.sum.Round(0),
			Share:    share,
		})
	}
	result.TotalEstimate = total.Round(0)
	return result
}
