package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const minHashSaltLength = 32

var hashSalt string

// InitHashSalt loads LOG_HASH_SALT. It panics if the salt is missing or too short,
// since hashed identifiers would otherwise be trivially reversible.
func InitHashSalt() {
	salt := os.Getenv("LOG_HASH_SALT")
	if salt == "" {
		panic("LOG_HASH_SALT must be set")
	}
	if len(salt) < minHashSaltLength {
		panic(fmt.Sprintf("LOG_HASH_SALT must be at least %d characters", minHashSaltLength))
	}
	hashSalt = salt
}

// InitHashSaltForTesting sets the salt without validation.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

func hashWithSalt(id int64) string {
	data := fmt.Sprintf("%d:%s", id, hashSalt)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:8]
}

// HashUserID creates a privacy-preserving hash of a user ID.
func HashUserID(userID int64) string {
	return hashWithSalt(userID)
}

// HashChatID creates a privacy-preserving hash of a Telegram chat ID.
func HashChatID(chatID int64) string {
	return hashWithSalt(chatID)
}

// SanitizeEmail keeps the domain and masks the local part.
func SanitizeEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return SanitizeText(email)
	}
	return fmt.Sprintf("%c***%s", email[0], email[at:])
}

// SanitizeDescription redacts a description but keeps its shape for debugging.
func SanitizeDescription(desc string) string {
	if desc == "" {
		return "<empty>"
	}

	words := strings.Fields(desc)
	return fmt.Sprintf("<redacted: %d words, %d chars>", len(words), len(desc))
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	if len(text) <= 10 {
		return fmt.Sprintf("<%d chars>", len(text))
	}

	return fmt.Sprintf("%s...<%d chars>", text[:3], len(text))
}
