package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/mtgban/go-mtgbudget/cardname"
	"github.com/mtgban/go-mtgbudget/fetcher"
	"github.com/mtgban/go-mtgbudget/mtgbudget"
	"github.com/mtgban/go-mtgbudget/priceindex"
)

const (
	CacheFileName = "scryfall_prices.ndjson"

	scryfallUserAgent = "go-mtgbudget/1.0"

	scryfallBulkURL   = "https://api.scryfall.com/bulk-data"
	scryfallSearchURL = "https://api.scryfall.com/cards/search?q="
	scryfallNamedURL  = "https://api.scryfall.com/cards/named?fuzzy="
	scryfallSiteURL   = "https://scryfall.com/search?q="

	// The API asks for at most 10 requests per second
	requestsPerSecond = 10
)

type Prices struct {
	EUR       decimal.NullDecimal `json:"eur"`
	EURFoil   decimal.NullDecimal `json:"eur_foil"`
	EUREtched decimal.NullDecimal `json:"eur_etched"`
}

type Card struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	Digital     bool   `json:"digital"`
	ScryfallURI string `json:"scryfall_uri"`
	Prices      Prices `json:"prices"`
}

// BestPrice returns the cheapest finish usually available
func (c *Card) BestPrice() decimal.NullDecimal {
	return priceindex.BestPrice(c.Prices.EUR, c.Prices.EURFoil, c.Prices.EUREtched)
}

type Scryfall struct {
	LogCallback mtgbudget.LogCallbackFunc

	// Location of the local price cache
	CachePath string

	// Source of the API responses, a paced http client is used if nil
	Fetcher fetcher.Fetcher

	Backoff *fetcher.Backoff

	index *priceindex.Index
}

func NewProvider() *Scryfall {
	sf := Scryfall{}
	sf.CachePath = CacheFileName
	sf.Backoff = fetcher.NewBackoff()
	return &sf
}

func (sf *Scryfall) printf(format string, a ...interface{}) {
	if sf.LogCallback != nil {
		sf.LogCallback("[SF] "+format, a...)
	}
}

func (sf *Scryfall) Info() mtgbudget.ProviderInfo {
	return mtgbudget.ProviderInfo{
		Name:      "Scryfall",
		Shorthand: "SF",
		Currency:  "EUR",
	}
}

func (sf *Scryfall) Initialize() {
	sf.index = priceindex.Load(sf.CachePath, sf.printf)
	if sf.index.Len() > 0 {
		sf.printf("Loaded %d prices from %s", sf.index.Len(), sf.CachePath)
	}
}

func newAPIFetcher() *fetcher.HTTPFetcher {
	hf := fetcher.NewHTTPFetcher()
	hf.Header.Set("User-Agent", scryfallUserAgent)
	hf.Header.Set("Accept", "application/json")
	hf.Limiter = rate.NewLimiter(requestsPerSecond, 1)
	return hf
}

func (sf *Scryfall) session() fetcher.Fetcher {
	if sf.Fetcher == nil {
		sf.Fetcher = newAPIFetcher()
	}
	return sf.Fetcher
}

func (sf *Scryfall) CheckAvailability(ctx context.Context) bool {
	if sf.index.Len() > 0 {
		return true
	}

	page, err := sf.session().Fetch(ctx, scryfallBulkURL)
	if err != nil {
		sf.printf("%s is unreachable: %s", scryfallBulkURL, err.Error())
		return false
	}
	if page.StatusCode < 200 || page.StatusCode >= 300 {
		sf.printf("%s replied with status %d", scryfallBulkURL, page.StatusCode)
		return false
	}
	return true
}

func exactQuery(name string) string {
	return `!"` + strings.ReplaceAll(name, `"`, ``) + `"`
}

// SearchURL returns the API query for the printing of name with the
// lowest euro price
func SearchURL(name string) string {
	return scryfallSearchURL + url.QueryEscape(exactQuery(name)+" prefer:eur-low")
}

// NamedURL returns the API query for the card best matching name
func NamedURL(name string) string {
	return scryfallNamedURL + url.QueryEscape(name)
}

// SiteURL returns the link to the printings of name on the website
func SiteURL(name string) string {
	return scryfallSiteURL + url.QueryEscape(exactQuery(name))
}

func (sf *Scryfall) Resolve(ctx context.Context, name string) (*mtgbudget.CardResult, error) {
	price, found := sf.index.Lookup(name)
	if found {
		return &mtgbudget.CardResult{
			Name:       name,
			URLSlug:    cardname.Slugify(name),
			PriceTrend: decimal.NewNullDecimal(price),
			SourceURL:  SiteURL(name),
		}, nil
	}

	card, err := sf.searchExact(ctx, name)
	if err == nil {
		return newResult(card), nil
	}
	sf.printf("%s: exact lookup failed: %s", name, err.Error())

	fuzzy, err := sf.searchFuzzy(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", mtgbudget.ErrCardNotFound, name, err)
	}

	// Look for the cheapest printing of the card found
	card, err = sf.searchExact(ctx, fuzzy.Name)
	if err != nil {
		sf.printf("%s: exact lookup of %s failed: %s", name, fuzzy.Name, err.Error())
		card = fuzzy
	}
	return newResult(card), nil
}

func newResult(card *Card) *mtgbudget.CardResult {
	link := card.ScryfallURI
	if link == "" {
		link = SiteURL(card.Name)
	}
	return &mtgbudget.CardResult{
		Name:       card.Name,
		URLSlug:    cardname.Slugify(card.Name),
		PriceTrend: card.BestPrice(),
		SourceURL:  link,
	}
}

func (sf *Scryfall) searchExact(ctx context.Context, name string) (*Card, error) {
	page, err := sf.Backoff.Fetch(ctx, sf.session(), SearchURL(name), sf.printf)
	if err != nil {
		return nil, err
	}

	var response struct {
		TotalCards int    `json:"total_cards"`
		Data       []Card `json:"data"`
	}
	err = json.Unmarshal(page.Body, &response)
	if err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, mtgbudget.ErrNoResult
	}

	return &response.Data[0], nil
}

func (sf *Scryfall) searchFuzzy(ctx context.Context, name string) (*Card, error) {
	page, err := sf.Backoff.Fetch(ctx, sf.session(), NamedURL(name), sf.printf)
	if err != nil {
		if fetcher.IsNotFound(err) {
			return nil, mtgbudget.ErrNoResult
		}
		return nil, err
	}

	var card Card
	err = json.Unmarshal(page.Body, &card)
	if err != nil {
		return nil, err
	}
	if card.Name == "" {
		return nil, mtgbudget.ErrNoResult
	}

	return &card, nil
}

func (sf *Scryfall) Close() error {
	if sf.Fetcher == nil {
		return nil
	}
	return sf.Fetcher.Close()
}
