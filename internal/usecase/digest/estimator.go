// Package digest implements the adaptive chunking and iterative map-reduce
// reduction core of the summarization pipeline. It splits arbitrarily long
// text into token-bounded chunks along semantic boundaries, summarizes each
// chunk through the Summarizer port, and recursively merges partial summaries
// until the aggregate fits within a token budget.
package digest

import (
	"docdigest/internal/utils/text"
)

// DefaultCharsPerToken is the conservative characters-per-token ratio used
// for local budgeting decisions. The exact value is tunable; correctness only
// requires that the same ratio is applied uniformly across the pipeline.
const DefaultCharsPerToken = 3

// Estimator approximates the token cost of a text span without invoking the
// model. It is deterministic, pure, and O(len(text)): the estimate is the
// rune count divided by a fixed characters-per-token ratio, so longer text
// never estimates lower than shorter text.
type Estimator struct {
	charsPerToken int
}

// NewEstimator creates an Estimator with the given characters-per-token
// ratio. Non-positive ratios fall back to DefaultCharsPerToken.
func NewEstimator(charsPerToken int) Estimator {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return Estimator{charsPerToken: charsPerToken}
}

// Estimate returns the approximate token cost of the given text.
func (e Estimator) Estimate(s string) int {
	return e.fromRunes(text.CountRunes(s))
}

// EstimateAll returns the total approximate token cost of all texts.
func (e Estimator) EstimateAll(texts []string) int {
	total := 0
	for _, t := range texts {
		total += e.Estimate(t)
	}
	return total
}

// fromRunes converts a rune count to a token estimate.
func (e Estimator) fromRunes(runes int) int {
	if runes <= 0 {
		return 0
	}
	return runes / e.charsPerToken
}

// wouldExceed reports whether an accumulation of curRunes runes, extended by
// a joiner of joinRunes runes and a unit of nextRunes runes, estimates above
// budget. Both the splitter and the grouper make their close-and-start-new
// decision through this single primitive so budget comparisons stay
// consistent across the pipeline.
func (e Estimator) wouldExceed(curRunes, joinRunes, nextRunes, budget int) bool {
	return e.fromRunes(curRunes+joinRunes+nextRunes) > budget
}
