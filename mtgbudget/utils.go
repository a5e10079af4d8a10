package mtgbudget

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var ErrInvalidPrice = errors.New("invalid price")

// ParsePrice converts a price figure as displayed by a marketplace into a
// decimal amount. Currency symbols and spaces are dropped; when both comma
// and period are present the last one is the decimal separator, otherwise a
// single comma followed by at most two digits is read as decimal separator.
func ParsePrice(priceStr string) (decimal.Decimal, error) {
	priceStr = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, priceStr)
	if priceStr == "" || strings.HasPrefix(priceStr, "-") {
		return decimal.Zero, ErrInvalidPrice
	}

	comma := strings.LastIndex(priceStr, ",")
	period := strings.LastIndex(priceStr, ".")
	switch {
	case comma >= 0 && period >= 0:
		if comma > period {
			priceStr = strings.Replace(priceStr, ".", "", -1)
			priceStr = strings.Replace(priceStr, ",", ".", 1)
		} else {
			priceStr = strings.Replace(priceStr, ",", "", -1)
		}
	case comma >= 0:
		if strings.Count(priceStr, ",") == 1 && len(priceStr)-comma-1 <= 2 {
			priceStr = strings.Replace(priceStr, ",", ".", 1)
		} else {
			priceStr = strings.Replace(priceStr, ",", "", -1)
		}
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Zero, ErrInvalidPrice
	}
	return price, nil
}

// ParseNullPrice is like ParsePrice, but reports a failure as an invalid
// value, so that a single bad field does not spoil a whole record.
func ParseNullPrice(priceStr string) decimal.NullDecimal {
	price, err := ParsePrice(priceStr)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(price)
}
