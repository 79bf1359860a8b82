// Package results summarizes a revealed round.
package results

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/mcdev12/planpoker/go/internal/models"
)

// Placeholder is rendered for statistics that have no numeric votes behind them.
const Placeholder = "—"

// Consensus classifies how far apart the comparable votes are.
type Consensus string

const (
	ConsensusAgreed    Consensus = "Consensus"
	ConsensusClose     Consensus = "Close"
	ConsensusDivergent Consensus = "Divergent"
)

// closeSpread is the widest ordinal spread still considered close.
const closeSpread = 2

// Summary is the derived results panel for a roster.
type Summary struct {
	Count     int // numeric votes behind Average and Median
	Average   float64
	Median    float64
	evenCount bool

	Consensus Consensus
	Low       models.CardValue // extremes, set when Divergent
	High      models.CardValue

	Tally map[models.CardValue]int // every cast card, including the unsure marker
}

// Compute derives the summary from the roster at reveal time.
func Compute(roster []models.Vote) Summary {
	s := Summary{
		Consensus: ConsensusAgreed,
		Tally:     make(map[models.CardValue]int),
	}

	var weights []float64
	var cards []models.CardValue
	for _, v := range roster {
		if v.Value == nil {
			continue
		}
		s.Tally[*v.Value]++
		if !v.Value.Numeric() {
			continue
		}
		weights = append(weights, v.Value.Weight())
		cards = append(cards, *v.Value)
	}

	s.Count = len(weights)
	if s.Count > 0 {
		s.Average = average(weights)
		s.Median = median(weights)
		s.evenCount = s.Count%2 == 0
	}

	if len(cards) < 2 {
		return s
	}

	low, high := cards[0], cards[0]
	for _, c := range cards[1:] {
		if c.Ordinal() < low.Ordinal() {
			low = c
		}
		if c.Ordinal() > high.Ordinal() {
			high = c
		}
	}

	switch spread := high.Ordinal() - low.Ordinal(); {
	case spread == 0:
		s.Consensus = ConsensusAgreed
	case spread <= closeSpread:
		s.Consensus = ConsensusClose
	default:
		s.Consensus = ConsensusDivergent
		s.Low = low
		s.High = high
	}
	return s
}

// HasNumeric reports whether Average and Median are defined.
func (s Summary) HasNumeric() bool {
	return s.Count > 0
}

// AverageText renders the average with one decimal.
func (s Summary) AverageText() string {
	if !s.HasNumeric() {
		return Placeholder
	}
	return strconv.FormatFloat(s.Average, 'f', 1, 64)
}

// MedianText renders the median; an even count is shown with one decimal.
func (s Summary) MedianText() string {
	if !s.HasNumeric() {
		return Placeholder
	}
	if s.evenCount {
		return strconv.FormatFloat(s.Median, 'f', 1, 64)
	}
	return strconv.FormatFloat(s.Median, 'f', -1, 64)
}

// Range renders the divergent extremes, e.g. "1–21".
func (s Summary) Range() string {
	if s.Consensus != ConsensusDivergent {
		return ""
	}
	return fmt.Sprintf("%s–%s", s.Low, s.High)
}

func average(weights []float64) float64 {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	return roundOne(sum / float64(len(weights)))
}

func median(weights []float64) float64 {
	sorted := make([]float64, len(weights))
	copy(sorted, weights)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return roundOne((sorted[mid-1] + sorted[mid]) / 2)
	}
	return sorted[mid]
}

func roundOne(f float64) float64 {
	return math.Round(f*10) / 10
}
