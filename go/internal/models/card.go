package models

import "fmt"

// CardValue is one of the eight estimation tokens.
type CardValue string

const (
	Card1      CardValue = "1"
	Card2      CardValue = "2"
	Card3      CardValue = "3"
	Card5      CardValue = "5"
	Card8      CardValue = "8"
	Card13     CardValue = "13"
	Card21     CardValue = "21"
	CardUnsure CardValue = "?"
)

// CardValues lists the deck in display order. The first seven are ordered by size.
var CardValues = []CardValue{Card1, Card2, Card3, Card5, Card8, Card13, Card21, CardUnsure}

var cardWeights = map[CardValue]float64{
	Card1:  1,
	Card2:  2,
	Card3:  3,
	Card5:  5,
	Card8:  8,
	Card13: 13,
	Card21: 21,
}

// ParseCardValue validates a raw token.
func ParseCardValue(raw string) (CardValue, error) {
	v := CardValue(raw)
	if !v.Valid() {
		return "", fmt.Errorf("invalid card value %q", raw)
	}
	return v, nil
}

// Valid reports whether v belongs to the deck.
func (v CardValue) Valid() bool {
	if v == CardUnsure {
		return true
	}
	_, ok := cardWeights[v]
	return ok
}

// Numeric reports whether v takes part in averages and spread.
func (v CardValue) Numeric() bool {
	_, ok := cardWeights[v]
	return ok
}

// Weight returns the numeric weight of v, 0 for the unsure marker.
func (v CardValue) Weight() float64 {
	return cardWeights[v]
}

// Ordinal returns the position of v within the deck, or -1 for unknown tokens.
func (v CardValue) Ordinal() int {
	for i, c := range CardValues {
		if c == v {
			return i
		}
	}
	return -1
}

func (v CardValue) String() string {
	return string(v)
}

// CardInfo is the guide text shown for a card.
type CardInfo struct {
	Title       string
	Description string
	Examples    string
}

// CardGuide describes what each card means when sizing a task.
var CardGuide = map[CardValue]CardInfo{
	Card1:      {Title: "Trivial", Description: "Tiny change with no unknowns.", Examples: "Fix a typo, change a color"},
	Card2:      {Title: "Small", Description: "Simple and well-understood task.", Examples: "Add a form field, rename a column"},
	Card3:      {Title: "Moderate", Description: "Straightforward work that touches a few files.", Examples: "New API endpoint, simple component"},
	Card5:      {Title: "Medium", Description: "Meaningful complexity with minor unknowns.", Examples: "Multi-step form, third-party integration"},
	Card8:      {Title: "Large", Description: "Significant effort with multiple moving parts.", Examples: "Real-time notifications, RBAC"},
	Card13:     {Title: "Very Large", Description: "Complex task that should likely be broken down.", Examples: "Major refactor, reporting dashboard"},
	Card21:     {Title: "Epic", Description: "Too large for one sprint, must be split.", Examples: "Full auth system, DB migration"},
	CardUnsure: {Title: "Unsure", Description: "Needs more info or spike before sizing.", Examples: "Unknown dependencies, unclear requirements"},
}
