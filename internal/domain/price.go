package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Limits of the stored columns: quantities and stock are INTEGER, unit prices
// NUMERIC(14,4).
const (
	MaxQuantity = math.MaxInt32
	PriceScale  = 4
)

var maxPrice = decimal.New(1, 14-PriceScale)

// CheckPrice reports why amount cannot be stored as a unit price, or nil.
func CheckPrice(amount decimal.Decimal) error {
	switch {
	case amount.IsNegative():
		return errors.New("cannot be negative")
	case !amount.Equal(amount.Truncate(PriceScale)):
		return fmt.Errorf("must have at most %d decimal places", PriceScale)
	case amount.GreaterThanOrEqual(maxPrice):
		return fmt.Errorf("must be less than %s", maxPrice)
	}
	return nil
}

type priceSource uint8

const (
	sourceCatalog priceSource = iota
	sourceCaller
)

// PriceChoice says where a line item's unit price comes from: a price the
// caller supplied, or the product's current catalog price. The zero value is
// a catalog lookup.
type PriceChoice struct {
	source priceSource
	amount decimal.Decimal
}

func CallerPrice(amount decimal.Decimal) PriceChoice {
	return PriceChoice{source: sourceCaller, amount: amount}
}

func CatalogPrice() PriceChoice {
	return PriceChoice{source: sourceCatalog}
}

// PriceFromOptional maps an optional request field to a choice.
func PriceFromOptional(amount *decimal.Decimal) PriceChoice {
	if amount == nil {
		return CatalogPrice()
	}
	return CallerPrice(*amount)
}

func (c PriceChoice) IsCatalog() bool {
	return c.source == sourceCatalog
}

// Amount returns the caller-supplied price and whether one was given.
func (c PriceChoice) Amount() (decimal.Decimal, bool) {
	if c.source != sourceCaller {
		return decimal.Zero, false
	}
	return c.amount, true
}
