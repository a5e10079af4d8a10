package cardmarket

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/mtgban/go-mtgbudget/mtgbudget"
)

const (
	titleSelector  = `body > main > div:nth-of-type(2) > div > h1`
	trendSelector  = `#info > div > dl > dd:nth-of-type(4) > span`
	offersSelector = `div[class*=price-container] span[class*=bold]`
	resultSelector = `body > main > section > div:nth-of-type(2) > div:nth-of-type(1) > div:nth-of-type(2) > div:nth-of-type(1) > div:nth-of-type(1) > h2 > a`

	notFoundMarker = "404"
)

type itemPage struct {
	Name   string
	Trend  decimal.NullDecimal
	Prices []decimal.Decimal
}

func parseItemPage(body []byte) (*itemPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	title := doc.Find(titleSelector).First()
	if title.Length() == 0 {
		return nil, errNotFoundPage
	}

	// Skip the nested elements, which contain the edition name
	name := strings.TrimSpace(title.Contents().FilterFunction(func(_ int, s *goquery.Selection) bool {
		return goquery.NodeName(s) == "#text"
	}).Text())
	if name == "" || strings.Contains(name, notFoundMarker) {
		return nil, errNotFoundPage
	}

	item := itemPage{
		Name:  name,
		Trend: mtgbudget.ParseNullPrice(doc.Find(trendSelector).First().Text()),
	}

	doc.Find(offersSelector).Each(func(_ int, s *goquery.Selection) {
		price, err := mtgbudget.ParsePrice(s.Text())
		if err != nil || !price.IsPositive() {
			return
		}
		if len(item.Prices) < maxOffers {
			item.Prices = append(item.Prices, price)
		}
	})

	return &item, nil
}

func parseSearchPage(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	href, found := doc.Find(resultSelector).First().Attr("href")
	if !found || strings.TrimSpace(href) == "" {
		return "", mtgbudget.ErrNoResult
	}
	return strings.TrimSpace(href), nil
}
