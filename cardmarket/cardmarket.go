package cardmarket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mtgban/go-mtgbudget/cardname"
	"github.com/mtgban/go-mtgbudget/fetcher"
	"github.com/mtgban/go-mtgbudget/mtgbudget"
	"github.com/mtgban/go-mtgbudget/priceindex"
)

const (
	CacheFileName = "cardmarket_prices.ndjson"

	mkmHomeURL   = "https://www.cardmarket.com"
	mkmCardsURL  = "https://www.cardmarket.com/en/Magic/Cards/"
	mkmSearchURL = "https://www.cardmarket.com/en/Magic/AdvancedSearch?doSubmit=1&cardName="

	// European sellers only, Excellent or better, English or German
	mkmItemOptions = "?sellerCountry=1,2,3,33,35,5,6,8,9,11,12,7,14,15,37,16,17,21,18,19,20,22,23,24,25,26,27,29,31,30,10,28&minCondition=4&language=1,3"

	// Number of offers kept from a page, enough for the averages
	maxOffers = 50
)

var errNotFoundPage = errors.New("not found page")

type CardMarket struct {
	LogCallback mtgbudget.LogCallbackFunc

	// Location of the local price cache
	CachePath string

	// Source of the pages, a browser-like session is used if nil
	Fetcher fetcher.Fetcher

	Backoff *fetcher.Backoff

	index *priceindex.Index
}

func NewProvider() *CardMarket {
	mkm := CardMarket{}
	mkm.CachePath = CacheFileName
	mkm.Backoff = fetcher.NewBackoff()
	return &mkm
}

func (mkm *CardMarket) printf(format string, a ...interface{}) {
	if mkm.LogCallback != nil {
		mkm.LogCallback("[MKM] "+format, a...)
	}
}

func (mkm *CardMarket) Info() mtgbudget.ProviderInfo {
	return mtgbudget.ProviderInfo{
		Name:      "Cardmarket",
		Shorthand: "MKM",
		Currency:  "EUR",
	}
}

func (mkm *CardMarket) Initialize() {
	mkm.index = priceindex.Load(mkm.CachePath, mkm.printf)
	if mkm.index.Len() > 0 {
		mkm.printf("Loaded %d prices from %s", mkm.index.Len(), mkm.CachePath)
	}
}

func (mkm *CardMarket) session() fetcher.Fetcher {
	if mkm.Fetcher == nil {
		mkm.Fetcher = fetcher.NewSessionFetcher()
	}
	return mkm.Fetcher
}

func (mkm *CardMarket) CheckAvailability(ctx context.Context) bool {
	if mkm.index.Len() > 0 {
		return true
	}

	page, err := mkm.session().Fetch(ctx, mkmHomeURL)
	if err != nil {
		mkm.printf("%s is unreachable: %s", mkmHomeURL, err.Error())
		return false
	}
	if page.StatusCode < 200 || page.StatusCode >= 300 {
		mkm.printf("%s replied with status %d", mkmHomeURL, page.StatusCode)
		return false
	}
	return true
}

// ItemURL returns the link to the offers for the card addressed by slug
func ItemURL(slug string) string {
	return mkmCardsURL + slug + mkmItemOptions
}

// SearchURL returns the link to the search results for name
func SearchURL(name string) string {
	return mkmSearchURL + url.QueryEscape(name)
}

func (mkm *CardMarket) Resolve(ctx context.Context, name string) (*mtgbudget.CardResult, error) {
	slug := cardname.Slugify(name)

	price, found := mkm.index.Lookup(name)
	if found {
		return &mtgbudget.CardResult{
			Name:       name,
			URLSlug:    slug,
			PriceTrend: decimal.NewNullDecimal(price),
			SourceURL:  ItemURL(slug),
		}, nil
	}

	if slug != "" {
		result, err := mkm.fetchItem(ctx, slug)
		if err == nil {
			return result, nil
		}
		mkm.printf("%s: direct lookup failed: %s", name, err.Error())
	}

	slug, err := mkm.search(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", mtgbudget.ErrCardNotFound, name, err)
	}

	result, err := mkm.fetchItem(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", mtgbudget.ErrCardNotFound, name, err)
	}
	return result, nil
}

func (mkm *CardMarket) fetchItem(ctx context.Context, slug string) (*mtgbudget.CardResult, error) {
	link := ItemURL(slug)
	page, err := mkm.Backoff.Fetch(ctx, mkm.session(), link, mkm.printf)
	if err != nil {
		return nil, err
	}

	item, err := parseItemPage(page.Body)
	if err != nil {
		return nil, err
	}

	return &mtgbudget.CardResult{
		Name:       item.Name,
		URLSlug:    slug,
		PriceTrend: item.Trend,
		SourceURL:  link,
		Prices:     item.Prices,
	}, nil
}

func (mkm *CardMarket) search(ctx context.Context, name string) (string, error) {
	page, err := mkm.Backoff.Fetch(ctx, mkm.session(), SearchURL(name), mkm.printf)
	if err != nil {
		return "", err
	}

	href, err := parseSearchPage(page.Body)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	slug := path.Base(strings.TrimSuffix(u.Path, "/"))
	if slug == "" || slug == "." || slug == "/" {
		return "", mtgbudget.ErrNoResult
	}
	return slug, nil
}

func (mkm *CardMarket) Close() error {
	if mkm.Fetcher == nil {
		return nil
	}
	return mkm.Fetcher.Close()
}
