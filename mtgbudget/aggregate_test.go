package mtgbudget

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mtgban/go-mtgbudget/cardname"
	"github.com/mtgban/go-mtgbudget/priceindex"
)

func price(str string) decimal.Decimal {
	return decimal.RequireFromString(str)
}

func nullPrice(str string) decimal.NullDecimal {
	return decimal.NewNullDecimal(price(str))
}

// A resolver backed by a static price table, counting calls
type tableResolver struct {
	prices map[string]string
	calls  int
}

func (tr *tableResolver) Resolve(ctx context.Context, name string) (*CardResult, error) {
	tr.calls++
	priceStr, found := tr.prices[cardname.Key(name)]
	if !found {
		return nil, ErrCardNotFound
	}
	return &CardResult{
		Name:       name,
		URLSlug:    cardname.Slugify(name),
		PriceTrend: nullPrice(priceStr),
		SourceURL:  "https://example.com/" + cardname.Slugify(name),
	}, nil
}

var testDeck = []cardname.Entry{
	{Count: 1, Name: "Atraxa, Praetors' Voice"},
	{Count: 1, Name: "Sol Ring"},
	{Count: 10, Name: "Forest"},
	{Count: 2, Name: "Lightning Bolt"},
	{Count: 1, Name: "Nonexistent Card"},
	{Count: 3, Name: "Counterspell"},
}

var testPrices = map[string]string{
	"atraxa, praetors' voice": "12.50",
	"sol ring":                "1.10",
	"forest":                  "0.05",
	"lightning bolt":          "0.99",
	"counterspell":            "0.35",
}

func TestAggregateEndToEnd(t *testing.T) {
	builder := priceindex.NewBuilder()
	builder.Add(priceindex.Record{Id: "1", Name: "Forest", Price: nullPrice("0.05")})
	index := builder.Index()

	resolve := func(ctx context.Context, name string) (*CardResult, error) {
		price, found := index.Lookup(name)
		if !found {
			return nil, ErrCardNotFound
		}
		return &CardResult{
			Name:       name,
			PriceTrend: decimal.NewNullDecimal(price),
		}, nil
	}

	entries := []cardname.Entry{
		cardname.ParseLine("1 Forest"),
		cardname.ParseLine("1 Unknown Nonexistent Card XYZ"),
	}
	report, err := Aggregate(context.Background(), entries, resolve, Rules{}, nil)
	if err != nil {
		t.Fatalf("FAIL: Unexpected error: %s", err.Error())
	}
	if len(report.Entries) != 2 {
		t.Fatalf("FAIL: Expected 2 entries, got %d", len(report.Entries))
	}

	first := report.Entries[0]
	if first.Status != StatusFound || !first.UnitPrice.Equal(price("0.05")) || !first.TotalPrice.Equal(price("0.05")) {
		t.Errorf("FAIL: Unexpected first entry %+v", first)
	}
	second := report.Entries[1]
	if second.Status != StatusNotFound || !second.UnitPrice.IsZero() || !second.TotalPrice.IsZero() {
		t.Errorf("FAIL: Unexpected second entry %+v", second)
	}
	if second.Name != "Unknown Nonexistent Card XYZ" {
		t.Errorf("FAIL: Unexpected name %q", second.Name)
	}
	if !report.Total.Equal(price("0.05")) {
		t.Errorf("FAIL: Expected total 0.05, got %s", report.Total)
	}
	if report.CardCount != 2 {
		t.Errorf("FAIL: Expected 2 cards, got %d", report.CardCount)
	}
	if report.Verdict() != "" {
		t.Errorf("FAIL: Unexpected verdict %q without limits", report.Verdict())
	}
}

type AggregateTest struct {
	Name       string
	Rules      Rules
	Total      string
	Statuses   []Status
	OverBudget bool
}

var AggregateTests = []AggregateTest{
	{
		Name:  "no rules",
		Rules: Rules{},
		// 12.50 + 1.10 + 0.50 + 1.98 + 0 + 1.05
		Total: "17.13",
		Statuses: []Status{
			StatusFound, StatusFound, StatusFound, StatusFound, StatusNotFound, StatusFound,
		},
	},
	{
		Name:  "exclude first",
		Rules: Rules{ExcludeFirst: true},
		Total: "4.63",
		Statuses: []Status{
			StatusExcluded, StatusFound, StatusFound, StatusFound, StatusNotFound, StatusFound,
		},
	},
	{
		Name:  "exclude basics",
		Rules: Rules{ExcludeBasics: true},
		Total: "16.63",
		Statuses: []Status{
			StatusFound, StatusFound, StatusExcluded, StatusFound, StatusNotFound, StatusFound,
		},
	},
	{
		Name: "exclude names",
		Rules: Rules{ExcludedNames: map[string]bool{
			"sol ring":       true,
			"lightning bolt": true,
		}},
		Total: "14.05",
		Statuses: []Status{
			StatusFound, StatusExcluded, StatusFound, StatusExcluded, StatusNotFound, StatusFound,
		},
	},
	{
		Name: "all exclusions",
		Rules: Rules{
			ExcludeFirst:  true,
			ExcludeBasics: true,
			ExcludedNames: map[string]bool{"counterspell": true},
		},
		Total: "3.08",
		Statuses: []Status{
			StatusExcluded, StatusFound, StatusExcluded, StatusFound, StatusNotFound, StatusExcluded,
		},
	},
	{
		Name:       "budget passed",
		Rules:      Rules{BudgetLimit: nullPrice("20")},
		Total:      "17.13",
		OverBudget: false,
	},
	{
		Name:       "budget failed",
		Rules:      Rules{BudgetLimit: nullPrice("17.12")},
		Total:      "17.13",
		OverBudget: true,
	},
	{
		Name:       "price limit failed",
		Rules:      Rules{PriceLimit: nullPrice("10")},
		Total:      "17.13",
		OverBudget: true,
	},
	{
		Name:       "price limit checks excluded entries",
		Rules:      Rules{ExcludeFirst: true, PriceLimit: nullPrice("1.10"), BudgetLimit: nullPrice("5")},
		Total:      "4.63",
		OverBudget: true,
	},
}

func TestAggregateRules(t *testing.T) {
	for _, probe := range AggregateTests {
		test := probe
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()

			resolver := &tableResolver{prices: testPrices}
			report, err := Aggregate(context.Background(), testDeck, resolver.Resolve, test.Rules, nil)
			if err != nil {
				t.Errorf("FAIL: Unexpected error: %s", err.Error())
				return
			}
			if resolver.calls != len(testDeck) {
				t.Errorf("FAIL: Expected %d resolutions, got %d", len(testDeck), resolver.calls)
			}
			if !report.Total.Equal(price(test.Total)) {
				t.Errorf("FAIL: Expected total %s, got %s", test.Total, report.Total)
				return
			}
			if report.OverBudget != test.OverBudget {
				t.Errorf("FAIL: Expected over budget %v, got %v", test.OverBudget, report.OverBudget)
				return
			}
			for i, status := range test.Statuses {
				if report.Entries[i].Status != status {
					t.Errorf("FAIL: Entry %d (%s) expected %s, got %s", i, report.Entries[i].Name, status, report.Entries[i].Status)
				}
			}

			// With exclusions active the total is the sum of included entries
			if test.Rules.HasExclusions() {
				sum := decimal.Zero
				for _, entry := range report.Entries {
					if entry.Included {
						sum = sum.Add(entry.TotalPrice)
					}
				}
				if !sum.Equal(report.Total) {
					t.Errorf("FAIL: Included entries add up to %s, total is %s", sum, report.Total)
				}
			}

			t.Log("PASS:", test.Name)
		})
	}
}

func TestAggregateExceedsLimit(t *testing.T) {
	resolver := &tableResolver{prices: testPrices}
	rules := Rules{PriceLimit: nullPrice("1.10")}
	report, err := Aggregate(context.Background(), testDeck, resolver.Resolve, rules, nil)
	if err != nil {
		t.Fatalf("FAIL: Unexpected error: %s", err.Error())
	}

	for _, entry := range report.Entries {
		expected := entry.Name == "Atraxa, Praetors' Voice"
		if entry.ExceedsLimit != expected {
			t.Errorf("FAIL: %s exceeds limit is %v", entry.Name, entry.ExceedsLimit)
		}
	}
	if report.Verdict() != "FAILED" {
		t.Errorf("FAIL: Unexpected verdict %q", report.Verdict())
	}
}

func TestAggregateErrorsAreMisses(t *testing.T) {
	calls := 0
	resolve := func(ctx context.Context, name string) (*CardResult, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection reset")
		}
		return &CardResult{Name: name, PriceTrend: nullPrice("1")}, nil
	}

	report, err := Aggregate(context.Background(), testDeck[:3], resolve, Rules{}, nil)
	if err != nil {
		t.Fatalf("FAIL: Unexpected error: %s", err.Error())
	}
	if report.Entries[0].Status != StatusNotFound {
		t.Errorf("FAIL: Failed resolution reported as %s", report.Entries[0].Status)
	}
	if calls != 3 {
		t.Errorf("FAIL: Batch stopped after %d resolutions", calls)
	}
	if !report.Total.Equal(price("11")) {
		t.Errorf("FAIL: Unexpected total %s", report.Total)
	}
}

func TestAggregateProgress(t *testing.T) {
	resolver := &tableResolver{prices: testPrices}

	var events []ProgressEvent
	progress := func(event ProgressEvent) {
		events = append(events, event)
	}

	report, err := Aggregate(context.Background(), testDeck, resolver.Resolve, Rules{}, progress)
	if err != nil {
		t.Fatalf("FAIL: Unexpected error: %s", err.Error())
	}
	if len(events) != 2*len(testDeck) {
		t.Fatalf("FAIL: Expected %d events, got %d", 2*len(testDeck), len(events))
	}
	for i, event := range events {
		if event.Index != i/2 || event.Total != len(testDeck) {
			t.Errorf("FAIL: Event %d has index %d/%d", i, event.Index, event.Total)
		}
		if (i%2 == 0) != (event.Entry == nil) {
			t.Errorf("FAIL: Event %d has unexpected entry %v", i, event.Entry)
		}
	}
	last := events[len(events)-1]
	if !last.RunningTotal.Equal(report.Total) {
		t.Errorf("FAIL: Last running total %s differs from %s", last.RunningTotal, report.Total)
	}
}

func TestAggregateCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resolver := &tableResolver{prices: testPrices}
	resolve := func(ctx context.Context, name string) (*CardResult, error) {
		// Stop right after the second card
		if resolver.calls == 1 {
			cancel()
		}
		return resolver.Resolve(ctx, name)
	}

	report, err := Aggregate(ctx, testDeck, resolve, Rules{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("FAIL: Expected cancellation, got %v", err)
	}
	if report == nil || len(report.Entries) != 2 {
		t.Fatalf("FAIL: Expected a partial report with 2 entries, got %v", report)
	}
	if report.Entries[1].Status != StatusFound {
		t.Errorf("FAIL: In-flight entry was not completed: %+v", report.Entries[1])
	}
}

func TestReportStats(t *testing.T) {
	resolver := &tableResolver{prices: testPrices}
	report, err := Aggregate(context.Background(), testDeck, resolver.Resolve, Rules{}, nil)
	if err != nil {
		t.Fatalf("FAIL: Unexpected error: %s", err.Error())
	}

	stats := report.Stats()
	if stats.Found != 5 {
		t.Errorf("FAIL: Expected 5 cards found, got %d", stats.Found)
	}
	// 12.50 1.10 0.05 0.99 0.35
	if !stats.Median.Valid || !stats.Median.Decimal.Equal(price("0.99")) {
		t.Errorf("FAIL: Unexpected median %v", stats.Median)
	}
	if !stats.Mean.Valid || !stats.Mean.Decimal.Equal(price("3")) {
		t.Errorf("FAIL: Unexpected mean %v", stats.Mean)
	}

	empty := (&Report{}).Stats()
	if empty.Found != 0 || empty.Mean.Valid || empty.Median.Valid {
		t.Errorf("FAIL: Unexpected stats for an empty report %+v", empty)
	}
}

func TestCardResultAverage(t *testing.T) {
	result := CardResult{
		Prices: []decimal.Decimal{price("1"), price("2"), price("3"), price("10")},
	}

	avg := result.Average(3)
	if !avg.Valid || !avg.Decimal.Equal(price("2")) {
		t.Errorf("FAIL: Unexpected average of three %v", avg)
	}
	avg = result.Average(50)
	if !avg.Valid || !avg.Decimal.Equal(price("4")) {
		t.Errorf("FAIL: Unexpected average of all %v", avg)
	}
	avg = (&CardResult{}).Average(10)
	if avg.Valid {
		t.Errorf("FAIL: Average without prices should be invalid")
	}
}

func TestIsBasicLand(t *testing.T) {
	for _, name := range []string{"Forest", "island", " MOUNTAIN ", "Plains", "swamp"} {
		if !IsBasicLand(name) {
			t.Errorf("FAIL: %q is a basic land", name)
		}
	}
	for _, name := range []string{"Snow-Covered Forest", "Wastes", "Forests"} {
		if IsBasicLand(name) {
			t.Errorf("FAIL: %q is not a basic land", name)
		}
	}
}

func TestAggregateOfferAverages(t *testing.T) {
	offers := make([]decimal.Decimal, 0, 12)
	for i := 1; i <= 12; i++ {
		offers = append(offers, decimal.NewFromInt(int64(i)))
	}
	resolve := func(ctx context.Context, name string) (*CardResult, error) {
		if name != "Sol Ring" {
			return &CardResult{Name: name, PriceTrend: nullPrice("0.05")}, nil
		}
		return &CardResult{Name: name, PriceTrend: nullPrice("1.10"), Prices: offers}, nil
	}

	entries := []cardname.Entry{{Count: 1, Name: "Sol Ring"}, {Count: 1, Name: "Forest"}}
	report, err := Aggregate(context.Background(), entries, resolve, Rules{}, nil)
	if err != nil {
		t.Fatalf("FAIL: Unexpected error: %s", err.Error())
	}

	entry := report.Entries[0]
	if !entry.Avg10.Valid || !entry.Avg10.Decimal.Equal(price("5.5")) {
		t.Errorf("FAIL: Unexpected average of ten %v", entry.Avg10)
	}
	if !entry.Avg50.Valid || !entry.Avg50.Decimal.Equal(price("6.5")) {
		t.Errorf("FAIL: Unexpected average of fifty %v", entry.Avg50)
	}
	if report.Entries[1].Avg10.Valid || report.Entries[1].Avg50.Valid {
		t.Errorf("FAIL: Averages without offers should be invalid")
	}
}
