// Package exchange converts amounts between currencies using live rates.
package exchange

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrMissingCurrency is returned when either currency code is blank.
	ErrMissingCurrency = errors.New("from and to currencies are required")
	// ErrInvalidRate is returned when a source yields a non-positive rate.
	ErrInvalidRate = errors.New("conversion rate must be positive")
)

// Quote is the rate for one currency pair on a given day.
type Quote struct {
	Rate decimal.Decimal
	Date time.Time
}

// ConversionResult contains converted amount details.
type ConversionResult struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	Original decimal.Decimal `json:"original"`
	Amount   decimal.Decimal `json:"amount"`
	Rate     decimal.Decimal `json:"rate"`
	RateDate time.Time       `json:"rateDate"`
}

// RateSource looks up the rate for a normalized currency pair.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (Quote, error)
}

// Service converts amounts between currencies.
type Service interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (ConversionResult, error)
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// convert validates the request, fetches a quote from src and applies it.
// Same-currency conversions never reach src.
func convert(ctx context.Context, src RateSource, amount decimal.Decimal, from, to string) (ConversionResult, error) {
	from, to = normalize(from), normalize(to)
	if from == "" || to == "" {
		return ConversionResult{}, ErrMissingCurrency
	}
	if !amount.IsPositive() {
		return ConversionResult{}, ErrInvalidAmount
	}

	q := Quote{Rate: decimal.NewFromInt(1), Date: time.Now().UTC()}
	if from != to {
		var err error
		if q, err = src.Rate(ctx, from, to); err != nil {
			return ConversionResult{}, err
		}
		if !q.Rate.IsPositive() {
			return ConversionResult{}, ErrInvalidRate
		}
	}

	return ConversionResult{
		From:     from,
		To:       to,
		Original: amount,
		Amount:   amount.Mul(q.Rate).Round(2),
		Rate:     q.Rate,
		RateDate: q.Date,
	}, nil
}
