package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/mtgban/go-mtgbudget/mtgbudget"
)

const (
	availabilityAttempts = 5
	availabilityInterval = 2 * time.Second
)

var Commit = func() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}
	return ""
}()

func waitAvailable(ctx context.Context, provider mtgbudget.Provider) bool {
	for i := 0; i < availabilityAttempts; i++ {
		if provider.CheckAvailability(ctx) {
			return true
		}
		log.Printf("%s is not available (%d/%d)", provider.Info().Name, i+1, availabilityAttempts)
		if i == availabilityAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(availabilityInterval):
		}
	}
	return false
}

func printProgress(event mtgbudget.ProgressEvent) {
	if event.Entry != nil {
		return
	}
	fmt.Fprintf(os.Stderr, "[%d/%d] %s (running total %s)\n",
		event.Index+1, event.Total, event.Name, event.RunningTotal.StringFixed(2))
}

func run() int {
	start := time.Now()

	cfg, err := parseArgs(filepath.Base(os.Args[0]), os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if errors.Is(err, ErrMissingInput) {
		log.Println(err, "- run with -h for usage")
		return 1
	}
	if err != nil {
		log.Println(err)
		return 2
	}

	var logCallback mtgbudget.LogCallbackFunc
	if cfg.Verbose {
		log.Println("cardbudget version", Commit)
		logCallback = log.Printf
	}

	provider := providers[cfg.Datasource].Init(cfg, logCallback)
	defer provider.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.UpdateCache != "" {
		n, err := provider.RebuildCache(ctx, cfg.UpdateCache)
		if err != nil {
			log.Println("cache rebuild failed:", err)
			return 1
		}
		log.Printf("%s cache rebuilt with %d prices in %s", provider.Info().Name, n, time.Since(start))
		if cfg.InputPath == "" {
			return 0
		}
	}

	file, err := os.Open(cfg.InputPath)
	if err != nil {
		log.Println(err)
		return 1
	}
	entries, err := mtgbudget.ReadCardList(file)
	file.Close()
	if err != nil {
		log.Println(err)
		return 1
	}

	exclusions, err := readExclusions(cfg.ExcludePath)
	if err != nil {
		log.Println(err)
		return 1
	}

	provider.Initialize()
	if !waitAvailable(ctx, provider) {
		log.Println(provider.Info().Name, "cannot be reached and no price cache is available")
		return 1
	}

	// An interrupt stops the batch, but lets the current card complete
	resolveCtx := context.WithoutCancel(ctx)
	resolve := mtgbudget.Memoize(func(_ context.Context, name string) (*mtgbudget.CardResult, error) {
		return provider.Resolve(resolveCtx, name)
	}, mtgbudget.DefaultMemoSize, mtgbudget.DefaultMemoTTL)

	report, err := mtgbudget.Aggregate(ctx, entries, resolve, cfg.rules(exclusions), printProgress)
	interrupted := err != nil
	if interrupted {
		log.Printf("Interrupted after %d of %d entries: %s", len(report.Entries), len(entries), err)
	}
	report.Currency = provider.Info().Currency

	renderTable(os.Stdout, report, cfg.Verbose)
	if cfg.Verbose {
		renderStats(os.Stdout, report)
	}

	if cfg.OutputPath != "" {
		err = writeReport(report, cfg.OutputPath)
		if err != nil {
			log.Println(err)
			return 1
		}
	}

	if cfg.Verbose {
		log.Println("Completed in", time.Since(start))
	}

	if interrupted {
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
