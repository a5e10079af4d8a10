// Package mtgbudget defines the interface price sources need to implement
// and the functions turning a card list into a priced budget report.
package mtgbudget

import (
	"context"
	"errors"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// ErrCardNotFound is returned by a Provider when no stage of the resolution
// could find a card.
var ErrCardNotFound = errors.New("card not found")

// ErrNoResult is returned when a search did not return any candidate
var ErrNoResult = errors.New("no search result")

type LogCallbackFunc func(format string, a ...interface{})

// CardResult is the outcome of a single successful resolution
type CardResult struct {
	// Name of the card as reported by the source
	Name string `json:"name"`

	// The path segment used to address the card on the source
	URLSlug string `json:"url_slug"`

	// The typical current price, invalid if the source did not report one
	PriceTrend decimal.NullDecimal `json:"price_trend"`

	// The link where the price can be verified
	SourceURL string `json:"source_url"`

	// Any additional price figures found, cheapest offers first
	Prices []decimal.Decimal `json:"prices,omitempty"`
}

// Average returns the mean of the first n additional prices, or an invalid
// value if there are none.
func (cr *CardResult) Average(n int) decimal.NullDecimal {
	prices := cr.Prices
	if n > 0 && len(prices) > n {
		prices = prices[:n]
	}
	if len(prices) == 0 {
		return decimal.NullDecimal{}
	}

	data := make(stats.Float64Data, 0, len(prices))
	for _, price := range prices {
		data = append(data, price.InexactFloat64())
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(mean).Round(2))
}

// ProviderInfo contains metadata about a price source
type ProviderInfo struct {
	// Full name of the source
	Name string `json:"name"`

	// Shorthand or ID of the source, used in log messages
	Shorthand string `json:"shorthand"`

	// Currency of the prices reported
	Currency string `json:"currency"`
}

// Provider is the interface every price source needs to implement.
// A Provider is not safe for concurrent use, cards are resolved one at a time.
type Provider interface {
	// Return some information about the source
	Info() ProviderInfo

	// Load the local price index, if any. A missing or corrupted cache
	// only results in an empty index.
	Initialize()

	// Report whether the source can be used, either because the local
	// index has data, or because the remote site is reachable.
	CheckAvailability(ctx context.Context) bool

	// Find the current price of a card, returning ErrCardNotFound if
	// none of the lookup strategies succeeded.
	Resolve(ctx context.Context, name string) (*CardResult, error)

	// Parse a bulk dump and overwrite the local cache file, returning the
	// number of records stored.
	RebuildCache(ctx context.Context, dumpPath string) (int, error)

	// Release any network session held by the source
	Close() error
}

// ResolveFunc is the function used to price a single card name
type ResolveFunc func(ctx context.Context, name string) (*CardResult, error)
