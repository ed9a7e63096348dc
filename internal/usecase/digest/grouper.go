package digest

import (
	"docdigest/internal/utils/text"
)

// mergeJoiner is the separator the Summarizer port uses when it joins a
// group of summaries into one merge prompt. Grouping accounts for it so the
// estimate matches what the port will actually send.
const mergeJoiner = "\n\n"

// Grouper packs a sequence of already-summarized texts into ordered groups
// whose combined estimated token cost stays under a budget. It applies the
// same greedy first-fit accumulation rule as the Splitter, but over whole
// summaries instead of paragraph fragments.
type Grouper struct {
	est Estimator
}

// NewGrouper creates a Grouper that budgets with the given estimator.
func NewGrouper(est Estimator) Grouper {
	return Grouper{est: est}
}

// Group packs texts in input order. A text is added to the current group
// unless doing so would exceed the budget while the group is non-empty, in
// which case the group is closed and the text starts a new one. A single
// text that alone exceeds the budget becomes its own group; nothing is ever
// dropped or duplicated, and order is preserved within and across groups.
func (g Grouper) Group(texts []string, budget int) [][]string {
	var groups [][]string
	var current []string
	curRunes := 0

	joinRunes := text.CountRunes(mergeJoiner)

	for _, t := range texts {
		unitRunes := text.CountRunes(t)
		if len(current) > 0 && g.est.wouldExceed(curRunes, joinRunes, unitRunes, budget) {
			groups = append(groups, current)
			current = []string{t}
			curRunes = unitRunes
			continue
		}
		if len(current) > 0 {
			curRunes += joinRunes
		}
		current = append(current, t)
		curRunes += unitRunes
	}

	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
