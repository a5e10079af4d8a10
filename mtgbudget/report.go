package mtgbudget

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/mtgban/go-mtgbudget/cardname"
)

type Status int

const (
	StatusFound Status = iota
	StatusNotFound
	StatusExcluded
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not found"
	case StatusExcluded:
		return "excluded"
	}
	return "unknown"
}

// Symbol returns the marker displayed in the status column
func (s Status) Symbol() string {
	switch s {
	case StatusFound:
		return "✔"
	case StatusExcluded:
		return "~"
	}
	return "✖"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for _, status := range []Status{StatusFound, StatusNotFound, StatusExcluded} {
		if status.String() == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// The names conventionally left out of a budget
var BasicLands = []string{
	"Forest", "Island", "Mountain", "Plains", "Swamp",
}

// IsBasicLand reports whether name is one of BasicLands
func IsBasicLand(name string) bool {
	for _, basic := range BasicLands {
		if cardname.Equals(basic, name) {
			return true
		}
	}
	return false
}

// Rules describe which entries count towards the total and which limits
// the report is checked against.
type Rules struct {
	// Leave the first card out of the total (usually the commander)
	ExcludeFirst bool `json:"exclude_first,omitempty"`

	// Leave basic lands out of the total
	ExcludeBasics bool `json:"exclude_basics,omitempty"`

	// Names left out of the total, keyed by cardname.Key
	ExcludedNames map[string]bool `json:"excluded_names,omitempty"`

	// Highest acceptable price for a single copy of a card
	PriceLimit decimal.NullDecimal `json:"price_limit"`

	// Highest acceptable total
	BudgetLimit decimal.NullDecimal `json:"budget_limit"`
}

// HasExclusions reports whether any rule may leave an entry out of the total
func (r *Rules) HasExclusions() bool {
	return r.ExcludeFirst || r.ExcludeBasics || len(r.ExcludedNames) > 0
}

// HasLimits reports whether the report can fail a budget check
func (r *Rules) HasLimits() bool {
	return r.PriceLimit.Valid || r.BudgetLimit.Valid
}

func (r *Rules) isExcluded(index int, name string) bool {
	if r.ExcludeFirst && index == 0 {
		return true
	}
	if r.ExcludeBasics && IsBasicLand(name) {
		return true
	}
	return r.ExcludedNames[cardname.Key(name)]
}

// ReportEntry is the priced counterpart of a card list line
type ReportEntry struct {
	Name         string          `json:"name"`
	Count        int             `json:"count"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Included     bool            `json:"included"`
	ExceedsLimit bool            `json:"exceeds_limit,omitempty"`
	Status       Status          `json:"status"`
	SourceURL    string          `json:"source_url,omitempty"`

	// Mean of the cheapest 10 and 50 offers, when the source lists them
	Avg10 decimal.NullDecimal `json:"avg10"`
	Avg50 decimal.NullDecimal `json:"avg50"`
}

// Info returns the text displayed in the info column
func (re *ReportEntry) Info(rules *Rules) string {
	if re.Status == StatusNotFound {
		return "not found"
	}
	if !rules.HasExclusions() {
		return ""
	}
	if re.Included {
		return "included"
	}
	return "excluded"
}

type Report struct {
	Entries    []ReportEntry   `json:"entries"`
	Total      decimal.Decimal `json:"total"`
	CardCount  int             `json:"card_count"`
	OverBudget bool            `json:"over_budget"`
	Rules      Rules           `json:"rules"`

	// Currency of all the prices, as set by the caller
	Currency string `json:"currency,omitempty"`
}

// Verdict returns PASSED or FAILED when any limit was set, an empty
// string otherwise.
func (r *Report) Verdict() string {
	if !r.Rules.HasLimits() {
		return ""
	}
	if r.OverBudget {
		return "FAILED"
	}
	return "PASSED"
}

type ReportStats struct {
	Found  int                 `json:"found"`
	Mean   decimal.NullDecimal `json:"mean"`
	Median decimal.NullDecimal `json:"median"`
}

// Stats computes the mean and median unit price of the cards found
func (r *Report) Stats() ReportStats {
	var data stats.Float64Data
	for _, entry := range r.Entries {
		if entry.Status == StatusNotFound {
			continue
		}
		data = append(data, entry.UnitPrice.InexactFloat64())
	}

	out := ReportStats{
		Found: len(data),
	}
	mean, err := stats.Mean(data)
	if err == nil {
		out.Mean = decimal.NewNullDecimal(decimal.NewFromFloat(mean).Round(2))
	}
	median, err := stats.Median(data)
	if err == nil {
		out.Median = decimal.NewNullDecimal(decimal.NewFromFloat(median).Round(2))
	}
	return out
}

// ProgressEvent is sent twice per entry, once before the card is resolved
// (with a nil Entry) and once after.
type ProgressEvent struct {
	Index        int
	Total        int
	Name         string
	RunningTotal decimal.Decimal
	Entry        *ReportEntry
}

type ProgressFunc func(event ProgressEvent)

// Aggregate resolves every entry in order and accumulates the total
// according to rules. Entries are processed one at a time; if ctx is
// cancelled no new entry is started and the partial report is returned
// together with the context error.
func Aggregate(ctx context.Context, entries []cardname.Entry, resolve ResolveFunc, rules Rules, progress ProgressFunc) (*Report, error) {
	report := &Report{
		Entries: make([]ReportEntry, 0, len(entries)),
		Total:   decimal.Zero,
		Rules:   rules,
	}

	for i, parsed := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if progress != nil {
			progress(ProgressEvent{
				Index:        i,
				Total:        len(entries),
				Name:         parsed.Name,
				RunningTotal: report.Total,
			})
		}

		// Any failure is reported as a missing card, the batch goes on
		result, err := resolve(ctx, parsed.Name)
		if err != nil {
			result = nil
		}

		entry := ReportEntry{
			Name:      parsed.Name,
			Count:     parsed.Count,
			UnitPrice: decimal.Zero,
			Included:  !rules.isExcluded(i, parsed.Name),
		}
		if result != nil {
			if result.Name != "" {
				entry.Name = result.Name
			}
			if result.PriceTrend.Valid {
				entry.UnitPrice = result.PriceTrend.Decimal
			}
			entry.SourceURL = result.SourceURL
			entry.Avg10 = result.Average(10)
			entry.Avg50 = result.Average(50)
		}
		entry.TotalPrice = entry.UnitPrice.Mul(decimal.NewFromInt(int64(entry.Count)))

		switch {
		case result == nil:
			entry.Status = StatusNotFound
		case !entry.Included:
			entry.Status = StatusExcluded
		default:
			entry.Status = StatusFound
		}

		if entry.Included || !rules.HasExclusions() {
			report.Total = report.Total.Add(entry.TotalPrice)
		}

		if rules.PriceLimit.Valid && entry.UnitPrice.GreaterThan(rules.PriceLimit.Decimal) {
			entry.ExceedsLimit = true
			report.OverBudget = true
		}

		report.CardCount += entry.Count
		report.Entries = append(report.Entries, entry)

		if progress != nil {
			progress(ProgressEvent{
				Index:        i,
				Total:        len(entries),
				Name:         parsed.Name,
				RunningTotal: report.Total,
				Entry:        &report.Entries[len(report.Entries)-1],
			})
		}
	}

	if rules.BudgetLimit.Valid && report.Total.GreaterThan(rules.BudgetLimit.Decimal) {
		report.OverBudget = true
	}

	return report, nil
}
