package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// CategorySeed describes a category inserted at migration time.
type CategorySeed struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Icon        string `toml:"icon"`
	Color       string `toml:"color"`
}

// Defaults is reference data that deployments may override with a TOML file.
type Defaults struct {
	Currency       string             `toml:"currency"`
	BudgetDefaults map[string]float64 `toml:"budget_defaults"`
	Categories     []CategorySeed     `toml:"categories"`
}

// BuiltinDefaults returns the defaults used when no CONFIG_FILE is given.
func BuiltinDefaults() *Defaults {
	return &Defaults{
		Currency: "USD",
		Categories: []CategorySeed{
			{Name: "Food", Description: "Meals, coffee and snacks", Icon: "🍔", Color: "#FF6B6B"},
			{Name: "Transport", Description: "Taxis, fuel and public transit", Icon: "🚗", Color: "#4ECDC4"},
			{Name: "Entertainment", Description: "Movies, games and streaming", Icon: "🎬", Color: "#45B7D1"},
			{Name: "Bills", Description: "Rent, utilities and subscriptions", Icon: "📄", Color: "#96CEB4"},
			{Name: "Shopping", Description: "Clothes and general purchases", Icon: "🛍️", Color: "#FFEAA7"},
			{Name: "Health", Description: "Medicine, doctor and gym", Icon: "🏥", Color: "#DDA0DD"},
			{Name: "Education", Description: "Courses, books and tuition", Icon: "📚", Color: "#98D8C8"},
			{Name: "Grocery", Description: "Supermarket and household supplies", Icon: "🛒", Color: "#F7DC6F"},
			{Name: "Investment", Description: "Stocks, funds and savings", Icon: "📈", Color: "#85C1E9"},
			{Name: "Insurance", Description: "Health, car and life insurance", Icon: "🛡️", Color: "#F8C471"},
			{Name: "Other", Description: "Everything else", Icon: "📦", Color: "#BDC3C7"},
		},
	}
}

// LoadDefaults reads a TOML defaults file and overlays it on the built-in defaults.
// An empty path returns the built-in defaults.
func LoadDefaults(path string) (*Defaults, error) {
	d := BuiltinDefaults()
	if path == "" {
		return d, nil
	}

	var file Defaults
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to read CONFIG_FILE %s: %w", path, err)
	}

	if file.Currency != "" {
		d.Currency = strings.ToUpper(file.Currency)
	}
	if len(file.Categories) > 0 {
		for _, c := range file.Categories {
			if strings.TrimSpace(c.Name) == "" {
				return nil, fmt.Errorf("CONFIG_FILE %s: category without a name", path)
			}
		}
		d.Categories = file.Categories
	}
	for name, limit := range file.BudgetDefaults {
		if limit < 0 {
			return nil, fmt.Errorf("CONFIG_FILE %s: budget default for %s is negative", path, name)
		}
	}
	d.BudgetDefaults = file.BudgetDefaults

	return d, nil
}

// BudgetLimitOverrides converts the TOML budget defaults to decimals.
func (d *Defaults) BudgetLimitOverrides() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(d.BudgetDefaults))
	for name, limit := range d.BudgetDefaults {
		out[name] = decimal.NewFromFloat(limit)
	}
	return out
}
