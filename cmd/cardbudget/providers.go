package main

import (
	"path/filepath"

	"github.com/mtgban/go-mtgbudget/cardmarket"
	"github.com/mtgban/go-mtgbudget/mtgbudget"
	"github.com/mtgban/go-mtgbudget/scryfall"
)

const defaultDatasource = "cardmarket"

type providerOption struct {
	Init func(cfg *config, logCallback mtgbudget.LogCallbackFunc) mtgbudget.Provider
}

var providers = map[string]*providerOption{
	"cardmarket": {
		Init: func(cfg *config, logCallback mtgbudget.LogCallbackFunc) mtgbudget.Provider {
			provider := cardmarket.NewProvider()
			provider.LogCallback = logCallback
			provider.CachePath = filepath.Join(cfg.CacheDir, cardmarket.CacheFileName)
			if cfg.RetryDelay > 0 {
				provider.Backoff.BaseDelay = cfg.RetryDelay
			}
			return provider
		},
	},
	"scryfall": {
		Init: func(cfg *config, logCallback mtgbudget.LogCallbackFunc) mtgbudget.Provider {
			provider := scryfall.NewProvider()
			provider.LogCallback = logCallback
			provider.CachePath = filepath.Join(cfg.CacheDir, scryfall.CacheFileName)
			if cfg.RetryDelay > 0 {
				provider.Backoff.BaseDelay = cfg.RetryDelay
			}
			return provider
		},
	},
}
