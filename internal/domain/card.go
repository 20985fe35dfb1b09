package domain

// Card represents a single question-answer entry parsed from a markdown deck.
type Card struct {
	Question   string
	Answer     string
	Tags       []string
	Difficulty int // 0 means "not set"; the importer falls back to DefaultDifficulty.
	Hash       string
}
