package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/mtgban/go-mtgbudget/cardmarket"
	"github.com/mtgban/go-mtgbudget/mtgbudget"
	"github.com/mtgban/go-mtgbudget/scryfall"
)

type source struct {
	Download func(ctx context.Context, dir string) ([]string, error)
	Provider func(cacheDir string) mtgbudget.Provider
}

var sources = map[string]source{
	"cardmarket": {
		Download: cardmarket.DownloadBulk,
		Provider: func(cacheDir string) mtgbudget.Provider {
			provider := cardmarket.NewProvider()
			provider.LogCallback = log.Printf
			provider.CachePath = filepath.Join(cacheDir, cardmarket.CacheFileName)
			return provider
		},
	},
	"scryfall": {
		Download: scryfall.DownloadBulk,
		Provider: func(cacheDir string) mtgbudget.Provider {
			provider := scryfall.NewProvider()
			provider.LogCallback = log.Printf
			provider.CachePath = filepath.Join(cacheDir, scryfall.CacheFileName)
			return provider
		},
	},
}

func run() int {
	sourceOpt := flag.String("source", "cardmarket", "Which bulk data to download (cardmarket/scryfall)")
	outputPathOpt := flag.String("output-path", "dumps", "Directory where to save the files")
	rebuildOpt := flag.Bool("rebuild", false, "Rebuild the price cache once the download is complete")
	cacheDirOpt := flag.String("cache-dir", os.Getenv("CARDBUDGET_CACHE_DIR"), "Directory where price caches are stored")

	flag.Parse()

	src, found := sources[*sourceOpt]
	if !found {
		fmt.Fprintln(os.Stderr, "Invalid -source option, see -h for supported values")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	files, err := src.Download(ctx, *outputPathOpt)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, file := range files {
		log.Println("Downloaded", file)
	}
	log.Println("Download took", time.Since(start))

	if !*rebuildOpt {
		return 0
	}

	cacheDir := *cacheDirOpt
	if cacheDir == "" {
		cacheDir = "."
	}
	provider := src.Provider(cacheDir)
	defer provider.Close()

	n, err := provider.RebuildCache(ctx, files[len(files)-1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	log.Printf("%s cache rebuilt with %d prices", provider.Info().Name, n)

	return 0
}

func main() {
	os.Exit(run())
}
