// Package models defines the domain entities for the finance concierge.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency assigned to new users and expenses without one.
const DefaultCurrency = "USD"

// MaxCategoryNameLength is the maximum allowed length for category names.
const MaxCategoryNameLength = 50

// DefaultCategoryIcon is used when a category is created without an icon.
const DefaultCategoryIcon = "📦"

// SupportedCurrencies lists the currency codes recognised in free text, keyed to their symbol.
var SupportedCurrencies = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"SGD": "S$",
	"JPY": "¥",
	"INR": "₹",
	"AUD": "A$",
	"CAD": "C$",
}

// Role is a user's authorization level.
type Role string

const (
	RoleUser    Role = "USER"
	RolePremium Role = "PREMIUM"
	RoleAdmin   Role = "ADMIN"
)

// User is an account holder.
type User struct {
	ID              int64      `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Role            Role       `json:"role"`
	DefaultCurrency string     `json:"defaultCurrency"`
	TelegramID      *int64     `json:"telegramId,omitempty"`
	Active          bool       `json:"active"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Category is global reference data shared by all users.
type Category struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Currency is an entry in the currency catalogue.
type Currency struct {
	ID      int    `json:"id"`
	Code    string `json:"code"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Expense is a single spend record.
type Expense struct {
	ID              int              `json:"id"`
	UserID          int64            `json:"userId"`
	CategoryID      int              `json:"categoryId"`
	Category        *Category        `json:"category,omitempty"`
	Amount          decimal.Decimal  `json:"amount"`
	Currency        string           `json:"currency"`
	Description     string           `json:"description"`
	ExpenseDate     time.Time        `json:"expenseDate"`
	AIParsed        bool             `json:"aiParsed"`
	AIConfidence    *decimal.Decimal `json:"aiConfidence,omitempty"`
	OriginalMessage string           `json:"originalMessage,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// CategoryName returns the joined category name or "Other" when none is loaded.
func (e Expense) CategoryName() string {
	if e.Category == nil || e.Category.Name == "" {
		return "Other"
	}
	return e.Category.Name
}

// BudgetPeriod is the window over which a budget limit applies.
type BudgetPeriod string

const (
	PeriodDaily   BudgetPeriod = "DAILY"
	PeriodWeekly  BudgetPeriod = "WEEKLY"
	PeriodMonthly BudgetPeriod = "MONTHLY"
	PeriodYearly  BudgetPeriod = "YEARLY"
)

// ParseBudgetPeriod parses a period name case-insensitively. Empty input means MONTHLY.
func ParseBudgetPeriod(s string) (BudgetPeriod, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return PeriodMonthly, nil
	case "DAILY":
		return PeriodDaily, nil
	case "WEEKLY":
		return PeriodWeekly, nil
	case "MONTHLY":
		return PeriodMonthly, nil
	case "YEARLY":
		return PeriodYearly, nil
	}
	return "", fmt.Errorf("invalid budget period %q", s)
}

// Budget is a spending limit for one category, or for all spending when CategoryID is nil.
type Budget struct {
	ID             int              `json:"id"`
	UserID         int64            `json:"userId"`
	CategoryID     *int             `json:"categoryId,omitempty"`
	Category       *Category        `json:"category,omitempty"`
	Limit          decimal.Decimal  `json:"limit"`
	Period         BudgetPeriod     `json:"period"`
	AlertThreshold *decimal.Decimal `json:"alertThreshold,omitempty"`
	Active         bool             `json:"active"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// IsTotal reports whether the budget covers all categories.
func (b *Budget) IsTotal() bool {
	return b.CategoryID == nil
}

// ChatSession tracks the conversational session of one user.
type ChatSession struct {
	ID           int       `json:"id"`
	UserID       int64     `json:"userId"`
	SessionID    string    `json:"sessionId"`
	AppName      string    `json:"appName"`
	Active       bool      `json:"active"`
	LastActivity time.Time `json:"lastActivity"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MessageTypeChat marks a regular conversational exchange.
const MessageTypeChat = "CHAT"

// ChatMessage is one user message and the agent's reply.
type ChatMessage struct {
	ID            int       `json:"id"`
	UserID        int64     `json:"userId"`
	SessionID     string    `json:"sessionId"`
	UserMessage   string    `json:"userMessage"`
	AgentResponse string    `json:"agentResponse"`
	MessageType   string    `json:"messageType"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ParsingLog records one attempt to turn free text into an expense.
type ParsingLog struct {
	ID                int
	UserID            int64
	OriginalMessage   string
	ParsedAmount      *decimal.Decimal
	ParsedCategory    string
	ParsedDescription string
	Confidence        *decimal.Decimal
	Model             string
	RawResponse       string
	ProcessingMs      int64
	Success           bool
	ErrorMessage      string
	CreatedAt         time.Time
}

// RefreshToken is the stored form of an issued refresh token. Only the hash is kept.
type RefreshToken struct {
	ID        int
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
