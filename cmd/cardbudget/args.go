package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtgban/go-mtgbudget/mtgbudget"
)

const usageHeader = `Usage: %s [options] <input-file> [output-file]

Resolve the price of every card listed in input-file and print a budget
report. The report is also exported to output-file if provided, in csv,
json or ndjson format depending on its extension (optionally .xz or .bz2).

Options:
`

var ErrMissingInput = errors.New("missing input file")

type config struct {
	Datasource   string
	ExcludePath  string
	ExcludeFirst bool
	NoBasics     bool
	Budget       decimal.NullDecimal
	PriceLimit   decimal.NullDecimal
	UpdateCache  string
	CacheDir     string
	RetryDelay   time.Duration
	Verbose      bool

	InputPath  string
	OutputPath string
}

func priceFlag(dst *decimal.NullDecimal) func(string) error {
	return func(value string) error {
		price, err := mtgbudget.ParsePrice(value)
		if err != nil {
			return fmt.Errorf("%q is not a valid amount", value)
		}
		*dst = decimal.NewNullDecimal(price)
		return nil
	}
}

// parseArgs reads the options from args, which may be placed before or
// after the positional arguments, using the environment for defaults.
func parseArgs(name string, args []string, getenv func(string) string, output io.Writer) (*config, error) {
	cfg := config{
		Datasource: defaultDatasource,
		CacheDir:   ".",
	}
	if env := getenv("CARDBUDGET_DATASOURCE"); env != "" {
		cfg.Datasource = env
	}
	if env := getenv("CARDBUDGET_CACHE_DIR"); env != "" {
		cfg.CacheDir = env
	}
	if env := getenv("CARDBUDGET_RETRY_DELAY"); env != "" {
		delay, err := time.ParseDuration(env)
		if err != nil {
			return nil, fmt.Errorf("invalid CARDBUDGET_RETRY_DELAY: %w", err)
		}
		cfg.RetryDelay = delay
	}

	var names []string
	for key := range providers {
		names = append(names, key)
	}
	sort.Strings(names)

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), usageHeader, name)
		fs.PrintDefaults()
	}

	fs.StringVar(&cfg.Datasource, "datasource", cfg.Datasource, "Price source to use ("+strings.Join(names, "/")+")")
	fs.StringVar(&cfg.ExcludePath, "exclude", "", "Path to a list of cards to leave out of the total")
	fs.BoolVar(&cfg.ExcludeFirst, "excludeFirst", false, "Leave the first card (the commander) out of the total")
	fs.BoolVar(&cfg.NoBasics, "no-basics", false, "Leave basic lands out of the total")
	fs.Func("budget", "Highest acceptable total", priceFlag(&cfg.Budget))
	fs.Func("limit", "Highest acceptable price for a single card", priceFlag(&cfg.PriceLimit))
	fs.Func("priceLimit", "Alias for -limit", priceFlag(&cfg.PriceLimit))
	fs.StringVar(&cfg.UpdateCache, "update-cache", "", "Rebuild the price cache from the bulk dump at this path, then exit")
	fs.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "Directory where price caches are stored")
	fs.DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "Initial wait when a source throttles requests")
	fs.BoolVar(&cfg.Verbose, "v", false, "Log every step of the resolution")

	var positionals []string
	for {
		err := fs.Parse(args)
		if err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		positionals = append(positionals, args[0])
		args = args[1:]
	}

	if _, found := providers[cfg.Datasource]; !found {
		return nil, fmt.Errorf("unknown datasource %q, use one of %s", cfg.Datasource, strings.Join(names, ", "))
	}
	if cfg.RetryDelay < 0 {
		return nil, errors.New("retry delay cannot be negative")
	}

	switch len(positionals) {
	case 0:
	case 1:
		cfg.InputPath = positionals[0]
	case 2:
		cfg.InputPath = positionals[0]
		cfg.OutputPath = positionals[1]
	default:
		return nil, fmt.Errorf("too many arguments: %s", strings.Join(positionals[2:], " "))
	}

	if cfg.OutputPath != "" {
		_, err := reportFormat(cfg.OutputPath)
		if err != nil {
			return nil, err
		}
	}
	if cfg.InputPath == "" && cfg.UpdateCache == "" {
		return nil, ErrMissingInput
	}

	return &cfg, nil
}

func (cfg *config) rules(exclusions map[string]bool) mtgbudget.Rules {
	return mtgbudget.Rules{
		ExcludeFirst:  cfg.ExcludeFirst,
		ExcludeBasics: cfg.NoBasics,
		ExcludedNames: exclusions,
		PriceLimit:    cfg.PriceLimit,
		BudgetLimit:   cfg.Budget,
	}
}

func readExclusions(path string) (map[string]bool, error) {
	if path == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return mtgbudget.ReadExclusions(file)
}
