// Package parser reads markdown decks. A card starts with "Q:" and may carry
// a multi-line "A:" answer, a "T:" line of comma-separated tags and a "D:"
// difficulty. Cards are separated by "---" or by the next "Q:".
package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/conorfennell/qbank/internal/domain"
)

const (
	questionPrefix   = "Q:"
	answerPrefix     = "A:"
	tagsPrefix       = "T:"
	difficultyPrefix = "D:"
	separator        = "---"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
)

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cards, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cards, nil
}

// Parse reads from an io.Reader and extracts all cards.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.Card
	var currentCard domain.Card
	var currentBlock []string
	currentState := seeking

	flushBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(currentBlock, "\n"))
		switch currentState {
		case readingQuestion:
			currentCard.Question = content
		case readingAnswer:
			currentCard.Answer = content
		}
		currentBlock = nil
	}

	finishCard := func() {
		flushBlock()
		if currentCard.Question != "" {
			cards = append(cards, currentCard)
		}
		currentCard = domain.Card{}
		currentState = seeking
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		switch {
		case strings.TrimSpace(line) == separator:
			finishCard()

		case strings.HasPrefix(line, questionPrefix):
			if currentCard.Question != "" || currentState != seeking {
				finishCard()
			}
			currentState = readingQuestion
			currentBlock = append(currentBlock, field(line, questionPrefix))

		case strings.HasPrefix(line, answerPrefix):
			flushBlock()
			currentState = readingAnswer
			currentBlock = append(currentBlock, field(line, answerPrefix))

		case strings.HasPrefix(line, tagsPrefix):
			flushBlock()
			currentState = seeking
			currentCard.Tags = domain.NormalizeTags(strings.Split(field(line, tagsPrefix), ","))

		case strings.HasPrefix(line, difficultyPrefix):
			flushBlock()
			currentState = seeking
			raw := strings.TrimSpace(field(line, difficultyPrefix))
			d, err := strconv.Atoi(raw)
			if err != nil || d < domain.MinDifficulty || d > domain.MaxDifficulty {
				return nil, fmt.Errorf("line %d: invalid difficulty %q", lineNo, raw)
			}
			currentCard.Difficulty = d

		case currentState != seeking:
			currentBlock = append(currentBlock, line)
		}
	}

	finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

func field(line, prefix string) string {
	return strings.TrimPrefix(line[len(prefix):], " ")
}
