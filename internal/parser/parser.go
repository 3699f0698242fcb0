// Package parser extracts expenses from free text without calling a model.
// It is the fallback used when Gemini is not configured or fails.
package parser

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

// DefaultCategory is used when no keyword matches.
const DefaultCategory = "Food"

// ErrNoAmount is returned when the message contains no positive amount.
var ErrNoAmount = errors.New("could not extract a valid amount from message")

// ParsedExpense represents an expense parsed from user input.
type ParsedExpense struct {
	Amount      decimal.Decimal
	Currency    string // empty when the message names no currency
	Category    string
	Description string
	Confidence  decimal.Decimal
}

// amountRegex matches amounts like "5", "$5.50", "5,50".
var amountRegex = regexp.MustCompile(`\$?(\d+(?:[.,]\d{1,2})?)`)

var codeRegex = regexp.MustCompile(`\b[A-Za-z]{3}\b`)

var (
	scoreAmount      = decimal.RequireFromString("0.4")
	scoreCategory    = decimal.RequireFromString("0.3")
	scoreDescription = decimal.RequireFromString("0.2")
	scoreCurrency    = decimal.RequireFromString("0.1")
)

// ParseExpense parses messages like "coffee $4.50" or "uber 12 SGD".
func ParseExpense(message string) (*ParsedExpense, error) {
	message = strings.TrimSpace(message)

	loc := amountRegex.FindStringSubmatchIndex(message)
	if loc == nil {
		return nil, ErrNoAmount
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(message[loc[2]:loc[3]], ",", "."))
	if err != nil || !amount.IsPositive() {
		return nil, ErrNoAmount
	}

	currency, currencyToken := detectCurrency(message)
	category, keyword := CategoryFor(message)
	description := describe(message, currencyToken)

	confidence := scoreAmount
	if keyword {
		confidence = confidence.Add(scoreCategory)
	}
	if description != "" {
		confidence = confidence.Add(scoreDescription)
	}
	if currency != "" {
		confidence = confidence.Add(scoreCurrency)
	}

	return &ParsedExpense{
		Amount:      amount.Round(2),
		Currency:    currency,
		Category:    category,
		Description: description,
		Confidence:  confidence,
	}, nil
}

// currencySymbols is ordered longest first so "S$" wins over "$".
var currencySymbols = func() [][2]string {
	out := make([][2]string, 0, len(models.SupportedCurrencies))
	for code, sym := range models.SupportedCurrencies {
		out = append(out, [2]string{sym, code})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i][0]) != len(out[j][0]) {
			return len(out[i][0]) > len(out[j][0])
		}
		return out[i][1] < out[j][1]
	})
	return out
}()

// detectCurrency returns the currency code named in message and the token
// that named it. A 3-letter code beats a symbol.
func detectCurrency(message string) (code, token string) {
	for _, m := range codeRegex.FindAllString(message, -1) {
		if _, ok := models.SupportedCurrencies[strings.ToUpper(m)]; ok {
			return strings.ToUpper(m), m
		}
	}
	for _, s := range currencySymbols {
		if strings.Contains(message, s[0]) {
			return s[1], s[0]
		}
	}
	return "", ""
}

// describe returns message without the currency token and the amount.
func describe(message, currencyToken string) string {
	rest := message
	if currencyToken != "" {
		rest = strings.Replace(rest, currencyToken, " ", 1)
	}
	if loc := amountRegex.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]] + " " + rest[loc[1]:]
	}
	return strings.TrimFunc(strings.Join(strings.Fields(rest), " "), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}
