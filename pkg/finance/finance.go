// Package finance holds the money arithmetic of lesson income: splitting a
// payment across savings pots and formatting amounts in reais.
package finance

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Share is one pot's part of a split.
type Share struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Allocation is a pot and the percentage of income it receives.
type Allocation struct {
	ID         string
	Name       string
	Percentage float64
}

// Split divides total across allocations in whole cents. Each share is
// rounded to the nearest cent; the remainder is the pocket. Shares never
// exceed the total, so the pocket is never negative.
func Split(total float64, allocations []Allocation) (shares []Share, pocket float64) {
	totalCents := ToCents(total)
	if totalCents <= 0 {
		return []Share{}, 0
	}

	remaining := totalCents
	shares = make([]Share, 0, len(allocations))
	for _, a := range allocations {
		if a.Percentage <= 0 {
			continue
		}
		cents := int64(math.Round(float64(totalCents) * a.Percentage / 100))
		cents = min(cents, remaining)
		remaining -= cents
		shares = append(shares, Share{ID: a.ID, Name: a.Name, Amount: FromCents(cents)})
	}
	return shares, FromCents(remaining)
}

func ToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func FromCents(c int64) float64 {
	return float64(c) / 100
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var brl = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL formats v as Brazilian currency, e.g. "R$ 1.234,50".
func FormatBRL(v float64) string {
	return brl.Sprintf("R$ %.2f", Round2(v))
}
