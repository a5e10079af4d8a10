package cardmarket

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mtgban/go-mtgbudget/fetcher"
	"github.com/mtgban/go-mtgbudget/priceindex"
)

const (
	ProductListFileName = "products_singles_1.json"
	PriceGuideFileName  = "price_guide_1.json"

	mkmProductListURL = "https://downloads.s3.cardmarket.com/productCatalog/productList/" + ProductListFileName
	mkmPriceGuideURL  = "https://downloads.s3.cardmarket.com/productCatalog/priceGuide/" + PriceGuideFileName
)

type MKMProduct struct {
	IdProduct   int    `json:"idProduct"`
	Name        string `json:"name"`
	IdCategory  int    `json:"idCategory"`
	IdExpansion int    `json:"idExpansion"`
}

type MKMPriceGuide struct {
	IdProduct int                 `json:"idProduct"`
	Avg       decimal.NullDecimal `json:"avg"`
	Low       decimal.NullDecimal `json:"low"`
	Trend     decimal.NullDecimal `json:"trend"`
	TrendFoil decimal.NullDecimal `json:"trend-foil"`
}

// BestPrice returns the most representative price of the guide
func (pg *MKMPriceGuide) BestPrice() decimal.NullDecimal {
	return priceindex.BestPrice(pg.Trend, pg.Avg, pg.TrendFoil, pg.Low)
}

// DumpFiles returns the product list and price guide paths for dumpPath,
// which is either the directory containing both, or one of the two files.
func DumpFiles(dumpPath string) (string, string, error) {
	fi, err := os.Stat(dumpPath)
	if err != nil {
		return "", "", err
	}

	dir := dumpPath
	if !fi.IsDir() {
		dir = filepath.Dir(dumpPath)
	}
	return filepath.Join(dir, ProductListFileName), filepath.Join(dir, PriceGuideFileName), nil
}

// LoadProducts maps every product id to its name
func LoadProducts(ctx context.Context, productsPath string) (map[int]string, error) {
	reader, err := priceindex.OpenDump(productsPath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	products := map[int]string{}
	err = priceindex.StreamArray(reader, "products", func(dec *json.Decoder) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		var product MKMProduct
		err := dec.Decode(&product)
		if err != nil {
			return err
		}
		if product.Name != "" {
			products[product.IdProduct] = product.Name
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", productsPath, err)
	}
	return products, nil
}

// BuildRecords joins the product list and the price guide, keeping the
// products with at least one positive price.
func BuildRecords(ctx context.Context, productsPath, pricesPath string) ([]priceindex.Record, error) {
	products, err := LoadProducts(ctx, productsPath)
	if err != nil {
		return nil, err
	}

	reader, err := priceindex.OpenDump(pricesPath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	builder := priceindex.NewBuilder()
	err = priceindex.StreamArray(reader, "priceGuides", func(dec *json.Decoder) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		var guide MKMPriceGuide
		err := dec.Decode(&guide)
		if err != nil {
			return err
		}

		name, found := products[guide.IdProduct]
		if !found {
			return nil
		}
		builder.Add(priceindex.Record{
			Id:    strconv.Itoa(guide.IdProduct),
			Name:  name,
			Price: guide.BestPrice(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pricesPath, err)
	}
	if builder.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", pricesPath, priceindex.ErrNoRecords)
	}

	return builder.Records(), nil
}

// RebuildCache replaces the local cache with the content of the dumps found
// at dumpPath. The prices in use are not affected until the next Initialize.
func (mkm *CardMarket) RebuildCache(ctx context.Context, dumpPath string) (int, error) {
	productsPath, pricesPath, err := DumpFiles(dumpPath)
	if err != nil {
		return 0, err
	}

	mkm.printf("Parsing %s and %s", productsPath, pricesPath)
	records, err := BuildRecords(ctx, productsPath, pricesPath)
	if err != nil {
		return 0, err
	}

	err = priceindex.Persist(mkm.CachePath, records)
	if err != nil {
		return 0, err
	}
	mkm.printf("Stored %d prices in %s", len(records), mkm.CachePath)

	return len(records), nil
}

// DownloadBulk saves the latest product list and price guide in dir
func DownloadBulk(ctx context.Context, dir string) ([]string, error) {
	var out []string
	for _, link := range []string{mkmProductListURL, mkmPriceGuideURL} {
		dst := filepath.Join(dir, filepath.Base(link))
		_, err := fetcher.Download(ctx, link, dst)
		if err != nil {
			return out, err
		}
		out = append(out, dst)
	}
	return out, nil
}
