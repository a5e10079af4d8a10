package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/mtgban/go-mtgbudget/fetcher"
	"github.com/mtgban/go-mtgbudget/priceindex"
)

const (
	// Name pattern of the bulk file containing every printing
	DumpPattern = "all-cards-*.json"

	scryfallAllCardsURL = "https://api.scryfall.com/bulk-data/all-cards"
)

var ErrNoDump = errors.New("no bulk file found")

// DumpFile returns the bulk file to use for dumpPath: the path itself, or
// the most recent dump in it if it is a directory.
func DumpFile(dumpPath string) (string, error) {
	fi, err := os.Stat(dumpPath)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return dumpPath, nil
	}

	matches, err := filepath.Glob(filepath.Join(dumpPath, DumpPattern))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoDump, dumpPath)
	}

	// Dumps carry a timestamp in their name
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// BuildRecords streams the bulk file, keeping the printings with at least
// one positive euro price.
func BuildRecords(ctx context.Context, dumpPath string) ([]priceindex.Record, error) {
	reader, err := priceindex.OpenDump(dumpPath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	builder := priceindex.NewBuilder()
	err = priceindex.StreamArray(reader, "data", func(dec *json.Decoder) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		var card Card
		err := dec.Decode(&card)
		if err != nil {
			return err
		}
		if card.Digital {
			return nil
		}

		builder.Add(priceindex.Record{
			Id:    card.Id,
			Name:  card.Name,
			Price: card.BestPrice(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dumpPath, err)
	}
	if builder.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", dumpPath, priceindex.ErrNoRecords)
	}

	return builder.Records(), nil
}

// RebuildCache replaces the local cache with the content of the bulk file
// found at dumpPath. The prices in use are not affected until the next
// Initialize.
func (sf *Scryfall) RebuildCache(ctx context.Context, dumpPath string) (int, error) {
	dumpFile, err := DumpFile(dumpPath)
	if err != nil {
		return 0, err
	}

	sf.printf("Parsing %s", dumpFile)
	records, err := BuildRecords(ctx, dumpFile)
	if err != nil {
		return 0, err
	}

	err = priceindex.Persist(sf.CachePath, records)
	if err != nil {
		return 0, err
	}
	sf.printf("Stored %d prices in %s", len(records), sf.CachePath)

	return len(records), nil
}

// DownloadBulk saves the latest bulk file with every printing in dir
func DownloadBulk(ctx context.Context, dir string) ([]string, error) {
	api := newAPIFetcher()
	defer api.Close()

	page, err := api.Fetch(ctx, scryfallAllCardsURL)
	if err != nil {
		return nil, err
	}
	if page.StatusCode != http.StatusOK {
		return nil, &fetcher.StatusError{URL: scryfallAllCardsURL, StatusCode: page.StatusCode}
	}

	var bulk struct {
		DownloadURI string `json:"download_uri"`
	}
	err = json.Unmarshal(page.Body, &bulk)
	if err != nil {
		return nil, err
	}
	if bulk.DownloadURI == "" {
		return nil, ErrNoDump
	}

	dst := filepath.Join(dir, path.Base(bulk.DownloadURI))
	_, err = fetcher.Download(ctx, bulk.DownloadURI, dst)
	if err != nil {
		return nil, err
	}
	return []string{dst}, nil
}
