package mtgbudget

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mtgban/go-mtgbudget/cardname"
)

const (
	DefaultMemoSize = 2048
	DefaultMemoTTL  = 30 * time.Minute
)

type memoEntry struct {
	result *CardResult
	err    error
}

// Memoize wraps resolve so that names sharing the same key are looked up
// only once. Definitive misses are remembered too, while any other error
// is returned and retried on the next call.
func Memoize(resolve ResolveFunc, size int, ttl time.Duration) ResolveFunc {
	if size <= 0 {
		size = DefaultMemoSize
	}
	if ttl <= 0 {
		ttl = DefaultMemoTTL
	}
	cache := expirable.NewLRU[string, memoEntry](size, nil, ttl)

	return func(ctx context.Context, name string) (*CardResult, error) {
		key := cardname.Key(name)
		cached, hit := cache.Get(key)
		if hit {
			return cached.result, cached.err
		}

		result, err := resolve(ctx, name)
		if err == nil || errors.Is(err, ErrCardNotFound) {
			cache.Add(key, memoEntry{result: result, err: err})
		}
		return result, err
	}
}
