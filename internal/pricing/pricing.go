// Package pricing holds the per-model token price tables used to estimate
// the cost of paid AI provider calls.
//
// Estimates only. Cost is computed from the token usage reported by the
// provider (or a character-based estimate when usage is missing) and a fixed
// USD price per 1000 tokens. It is never reconciled against real billing.
package pricing

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// ModelPrice defines per-1K token pricing for a model.
type ModelPrice struct {
	InputPer1K  float64
	OutputPer1K float64
}

func (p ModelPrice) total() float64 { return p.InputPer1K + p.OutputPer1K }

// Table maps model identifiers to prices. Models missing from the table are
// charged at the cheapest entry's price.
type Table struct {
	models   map[string]ModelPrice
	cheapest ModelPrice
}

// NewTable builds a price table. An empty table prices everything at zero.
func NewTable(models map[string]ModelPrice) *Table {
	t := &Table{models: make(map[string]ModelPrice, len(models))}

	names := make([]string, 0, len(models))
	for name, price := range models {
		t.models[normalizeModel(name)] = price
		names = append(names, normalizeModel(name))
	}
	sort.Strings(names)

	for i, name := range names {
		price := t.models[name]
		if i == 0 || price.total() < t.cheapest.total() {
			t.cheapest = price
		}
	}
	return t
}

// OpenAI returns the price table for the paid fallback provider.
// USD per 1K tokens.
func OpenAI() *Table {
	return NewTable(map[string]ModelPrice{
		"gpt-4o-mini":   {InputPer1K: 0.00015, OutputPer1K: 0.0006},
		"gpt-3.5-turbo": {InputPer1K: 0.0005, OutputPer1K: 0.0015},
	})
}

// Priced reports whether the model has its own table entry.
func (t *Table) Priced(model string) bool {
	_, ok := t.models[normalizeModel(model)]
	return ok
}

// Price returns the model's price, or the cheapest entry for unpriced models.
func (t *Table) Price(model string) ModelPrice {
	if p, ok := t.models[normalizeModel(model)]; ok {
		return p
	}
	return t.cheapest
}

// Cost returns the estimated USD cost for the given token usage.
func (t *Table) Cost(model string, inputTokens, outputTokens int) float64 {
	p := t.Price(model)
	inputCost := float64(inputTokens) / 1000.0 * p.InputPer1K
	outputCost := float64(outputTokens) / 1000.0 * p.OutputPer1K
	return inputCost + outputCost
}

// EstimateTokens approximates a token count from text at ~4 characters per
// token. Never returns less than 1 so that a paid call always has a positive
// estimate.
func EstimateTokens(text string) int {
	n := int(math.Ceil(float64(utf8.RuneCountInString(text)) / 4.0))
	if n < 1 {
		return 1
	}
	return n
}

func normalizeModel(model string) string {
	return strings.ToLower(strings.TrimSpace(model))
}
