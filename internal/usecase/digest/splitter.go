package digest

import (
	"strings"

	"docdigest/internal/utils/text"
)

// Splitter divides text into chunks whose estimated token cost stays within
// a budget, preferring paragraph boundaries and falling back to sentence
// boundaries for paragraphs that alone exceed the budget.
//
// Guarantees:
//   - every chunk is trimmed and non-empty
//   - chunk order follows document order, nothing is reordered or dropped
//   - the same (text, budget) input always yields the same chunk sequence
//   - a chunk only exceeds the budget when a single sentence alone does,
//     in which case it is emitted as an over-budget chunk rather than lost
type Splitter struct {
	est Estimator
}

// NewSplitter creates a Splitter that budgets with the given estimator.
func NewSplitter(est Estimator) Splitter {
	return Splitter{est: est}
}

// Split divides the input into budget-bounded chunks. Paragraphs are
// double-newline-delimited units; a paragraph whose own estimate exceeds the
// budget is split at sentence boundaries and its sentences accumulate under
// the same rule. Empty paragraphs and sentences are skipped.
func (s Splitter) Split(input string, budget int) []string {
	var chunks []string
	var cur strings.Builder
	curRunes := 0

	flush := func() {
		if c := strings.TrimSpace(cur.String()); c != "" {
			chunks = append(chunks, c)
		}
		cur.Reset()
		curRunes = 0
	}

	// add closes the running chunk first when adding the unit would push
	// the estimate over budget. A unit arriving at an empty chunk is always
	// accepted, which is how a single oversized sentence survives.
	add := func(unit, joiner string) {
		unitRunes := text.CountRunes(unit)
		if cur.Len() > 0 {
			joinRunes := text.CountRunes(joiner)
			if s.est.wouldExceed(curRunes, joinRunes, unitRunes, budget) {
				flush()
			} else {
				cur.WriteString(joiner)
				curRunes += joinRunes
			}
		}
		cur.WriteString(unit)
		curRunes += unitRunes
	}

	for _, para := range strings.Split(input, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if s.est.Estimate(para) > budget {
			// Oversized paragraph: close the running chunk and pack the
			// paragraph sentence by sentence. The sentence tail stays open
			// so a following short paragraph may still join it.
			flush()
			for _, sentence := range splitSentences(para) {
				add(sentence, " ")
			}
			continue
		}

		add(para, "\n\n")
	}

	flush()
	return chunks
}

// splitSentences splits a paragraph at sentence terminators, keeping the
// terminator with its sentence. Both the ASCII period and the CJK full stop
// are honored so transcripts in either script split at sentence boundaries.
func splitSentences(para string) []string {
	var sentences []string
	var b strings.Builder

	for _, r := range para {
		b.WriteRune(r)
		if r == '.' || r == '。' {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}

	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
