// Package knol computes the content identity of an imported card.
package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/qbank/internal/domain"
)

// Normalize concatenates the card's content after cleaning each part.
// Question and answer are trimmed, lowercased and get unix line endings;
// tags are normalized, sorted and comma-joined. Difficulty is not part of
// the identity so editing it keeps a card's review history.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		p = strings.TrimSpace(p)
		return p
	}

	q := normalizePart(card.Question)
	a := normalizePart(card.Answer)
	tags := strings.Join(domain.NormalizeTags(card.Tags), ",")

	// Joined with a newline so "question"+"answer" cannot collide with
	// "questionanswer".
	return strings.Join([]string{q, a, tags}, "\n")
}

// Hash takes a card, normalizes it, and returns its SHA-256 hash as a hex string.
func Hash(card domain.Card) string {
	normalized := Normalize(card)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
