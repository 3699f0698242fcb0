package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/exchange"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
	"gitlab.com/yelinaung/finance-concierge/internal/repository"
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// CurrencyRequest is the input for creating or updating a currency.
type CurrencyRequest struct {
	Code    string `json:"code" binding:"required,len=3"`
	Symbol  string `json:"symbol" binding:"required,max=5"`
	Name    string `json:"name" binding:"required,max=100"`
	Country string `json:"country" binding:"max=100"`
}

// CurrencyService manages the currency catalogue and conversions.
type CurrencyService struct {
	currencies CurrencyStore
	rates      exchange.Service
}

// NewCurrencyService creates a CurrencyService. rates may be nil, which disables Convert.
func NewCurrencyService(currencies CurrencyStore, rates exchange.Service) *CurrencyService {
	return &CurrencyService{currencies: currencies, rates: rates}
}

// List returns the catalogue.
func (s *CurrencyService) List(ctx context.Context) ([]models.Currency, error) {
	return s.currencies.List(ctx)
}

// Get returns one currency.
func (s *CurrencyService) Get(ctx context.Context, id int) (*models.Currency, error) {
	c, err := s.currencies.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Currency not found: %d", id)
	}
	return c, nil
}

// Create adds a currency. Codes are unique.
func (s *CurrencyService) Create(ctx context.Context, req CurrencyRequest) (*models.Currency, error) {
	c, err := buildCurrency(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.currencies.GetByCode(ctx, c.Code); err == nil {
		return nil, apperr.Conflict("Currency already exists: %s", c.Code)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if err := s.currencies.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Currency already exists: %s", c.Code)
		}
		return nil, err
	}
	return c, nil
}

// Update overwrites a currency.
func (s *CurrencyService) Update(ctx context.Context, id int, req CurrencyRequest) (*models.Currency, error) {
	c, err := buildCurrency(req)
	if err != nil {
		return nil, err
	}
	c.ID = id
	if err := s.currencies.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Currency already exists: %s", c.Code)
		}
		return nil, notFound(err, "Currency not found: %d", id)
	}
	return c, nil
}

// Delete removes a currency.
func (s *CurrencyService) Delete(ctx context.Context, id int) error {
	if err := s.currencies.Delete(ctx, id); err != nil {
		return notFound(err, "Currency not found: %d", id)
	}
	return nil
}

// Convert converts amount at the latest rate.
func (s *CurrencyService) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*exchange.ConversionResult, error) {
	if s.rates == nil {
		return nil, apperr.BadRequest("Currency conversion is not configured")
	}
	if !amount.IsPositive() {
		return nil, apperr.Field("amount", "must be greater than 0")
	}
	res, err := s.rates.Convert(ctx, amount, from, to)
	if err != nil {
		if errors.Is(err, exchange.ErrMissingCurrency) || errors.Is(err, exchange.ErrInvalidAmount) {
			return nil, apperr.BadRequest("%s", err.Error())
		}
		return nil, err
	}
	return &res, nil
}

func buildCurrency(req CurrencyRequest) (*models.Currency, error) {
	c := &models.Currency{
		Code:    strings.ToUpper(strings.TrimSpace(req.Code)),
		Symbol:  strings.TrimSpace(req.Symbol),
		Name:    strings.TrimSpace(req.Name),
		Country: strings.TrimSpace(req.Country),
	}
	fields := map[string]string{}
	if !currencyCode.MatchString(c.Code) {
		fields["code"] = "must be a 3-letter code"
	}
	if c.Symbol == "" {
		fields["symbol"] = "is required"
	}
	if c.Name == "" {
		fields["name"] = "is required"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}
	return c, nil
}
