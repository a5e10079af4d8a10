// Package priceindex holds the local price index, a read-only map from card
// name to the cheapest known price, built from a bulk dump and persisted
// between runs.
package priceindex

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mtgban/go-mtgbudget/cardname"
)

// ErrNoRecords is returned when a dump yields no usable price
var ErrNoRecords = errors.New("no priced record found")

// Record is a single product as found in a bulk dump, and the unit stored
// in the cache file.
type Record struct {
	Id    string              `json:"id"`
	Name  string              `json:"name"`
	Price decimal.NullDecimal `json:"price"`
}

// Valid reports whether the record carries a usable price signal
func (r *Record) Valid() bool {
	return cardname.Key(r.Name) != "" && r.Price.Valid && r.Price.Decimal.IsPositive()
}

// Builder accumulates records while a dump is being streamed
type Builder struct {
	records []Record
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Add stores record unless it has no name or no positive price
func (b *Builder) Add(record Record) bool {
	if !record.Valid() {
		return false
	}
	b.records = append(b.records, record)
	return true
}

// Len returns the number of accepted records
func (b *Builder) Len() int {
	return len(b.records)
}

// Records returns the accepted records in insertion order
func (b *Builder) Records() []Record {
	return b.records
}

func (b *Builder) Index() *Index {
	return New(b.records)
}

// Index maps a normalized name to the cheapest positive price among all
// the records sharing it. It is never modified after creation.
type Index struct {
	prices map[string]decimal.Decimal
}

func New(records []Record) *Index {
	prices := map[string]decimal.Decimal{}
	for i := range records {
		if !records[i].Valid() {
			continue
		}
		key := cardname.Key(records[i].Name)
		price := records[i].Price.Decimal
		current, found := prices[key]
		if !found || price.LessThan(current) {
			prices[key] = price
		}
	}
	return &Index{prices: prices}
}

// Lookup returns the price for name, compared case-insensitively
func (idx *Index) Lookup(name string) (decimal.Decimal, bool) {
	if idx == nil {
		return decimal.Zero, false
	}
	price, found := idx.prices[cardname.Key(name)]
	return price, found
}

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.prices)
}

// BestPrice returns the first positive candidate, in the order provided
func BestPrice(candidates ...decimal.NullDecimal) decimal.NullDecimal {
	for _, candidate := range candidates {
		if candidate.Valid && candidate.Decimal.IsPositive() {
			return candidate
		}
	}
	return decimal.NullDecimal{}
}
