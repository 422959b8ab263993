package oracle

import (
	"errors"
	"math/big"
	"strings"
	"sync"
)

// ErrPriceUnavailable is returned when no price has been published for the
// requested asset.
var ErrPriceUnavailable = errors.New("oracle: price unavailable")

// ErrInvalidPrice is returned when a publisher submits a non-positive price.
var ErrInvalidPrice = errors.New("oracle: price must be positive")

// PriceOracle supplies 18-decimal fixed point prices for assets, quoted in
// the liability asset. Implementations must treat unknown assets as an
// error, never as zero.
type PriceOracle interface {
	Price(asset string) (*big.Int, error)
}

// ManualOracle is a concurrency-safe price table fed by an operator or a
// test. It backs genesis seeding and every engine test in this repo.
type ManualOracle struct {
	mu     sync.RWMutex
	prices map[string]*big.Int
}

func NewManualOracle() *ManualOracle {
	return &ManualOracle{prices: make(map[string]*big.Int)}
}

// SetPrice publishes the price for an asset, replacing any previous value.
func (o *ManualOracle) SetPrice(asset string, price *big.Int) error {
	symbol := normalizeSymbol(asset)
	if symbol == "" {
		return ErrPriceUnavailable
	}
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[symbol] = new(big.Int).Set(price)
	return nil
}

// Price implements PriceOracle.
func (o *ManualOracle) Price(asset string) (*big.Int, error) {
	symbol := normalizeSymbol(asset)
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.prices[symbol]
	if !ok {
		return nil, ErrPriceUnavailable
	}
	return new(big.Int).Set(price), nil
}

func normalizeSymbol(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}
