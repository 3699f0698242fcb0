package parser

import (
	"strings"
	"unicode"

	"gitlab.com/yelinaung/finance-concierge/internal/models"
)

var keywordCategories = map[string]string{
	"coffee": "Food", "tea": "Food", "lunch": "Food", "dinner": "Food", "breakfast": "Food",
	"food": "Food", "restaurant": "Food", "cafe": "Food", "pizza": "Food", "burger": "Food", "meal": "Food",

	"uber": "Transport", "grab": "Transport", "taxi": "Transport", "cab": "Transport", "bus": "Transport",
	"train": "Transport", "metro": "Transport", "flight": "Transport", "gas": "Transport",
	"fuel": "Transport", "parking": "Transport", "toll": "Transport",

	"movie": "Entertainment", "cinema": "Entertainment", "concert": "Entertainment", "game": "Entertainment",
	"gaming": "Entertainment", "show": "Entertainment", "theatre": "Entertainment", "theater": "Entertainment",
	"netflix": "Entertainment", "spotify": "Entertainment",

	"electricity": "Bills", "electric": "Bills", "water": "Bills", "internet": "Bills", "wifi": "Bills",
	"phone": "Bills", "mobile": "Bills", "rent": "Bills", "bill": "Bills", "utility": "Bills", "utilities": "Bills",

	"shopping": "Shopping", "shop": "Shopping", "clothes": "Shopping", "clothing": "Shopping",
	"shoes": "Shopping", "amazon": "Shopping", "mall": "Shopping",

	"doctor": "Health", "hospital": "Health", "medicine": "Health", "pharmacy": "Health",
	"medical": "Health", "gym": "Health", "fitness": "Health", "health": "Health",

	"grocery": "Grocery", "groceries": "Grocery", "supermarket": "Grocery",

	"education": "Education", "book": "Education", "books": "Education", "course": "Education",
	"tuition": "Education", "school": "Education",

	"insurance": "Insurance", "premium": "Insurance",
	"stocks": "Investment", "etf": "Investment", "crypto": "Investment",
}

// CategoryFor returns the category of the first keyword in message, in word
// order. matched is false when it fell back to DefaultCategory.
func CategoryFor(message string) (category string, matched bool) {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if c, ok := keywordCategories[w]; ok {
			return c, true
		}
	}
	return DefaultCategory, false
}

// MatchCategory finds the category best matching a suggested name.
// It tries an exact case-insensitive match, then the shortest category
// containing the suggestion, then the longest category the suggestion contains.
func MatchCategory(suggested string, categories []models.Category) *models.Category {
	s := strings.ToLower(strings.TrimSpace(suggested))
	if s == "" {
		return nil
	}

	for i := range categories {
		if strings.ToLower(categories[i].Name) == s {
			return &categories[i]
		}
	}

	var best *models.Category
	for i := range categories {
		name := strings.ToLower(categories[i].Name)
		if strings.Contains(name, s) && (best == nil || len(name) < len(best.Name)) {
			best = &categories[i]
		}
	}
	if best != nil {
		return best
	}

	for i := range categories {
		name := strings.ToLower(categories[i].Name)
		if strings.Contains(s, name) && (best == nil || len(name) > len(best.Name)) {
			best = &categories[i]
		}
	}
	return best
}
