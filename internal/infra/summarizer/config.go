package summarizer

import (
	"fmt"
	"strings"
)

// ProviderConfig is a common interface for summarizer provider configuration.
// Both Ollama and Claude implementations should implement this interface
// to ensure consistent validation and configuration behavior.
type ProviderConfig interface {
	// GetModel returns the model identifier used for completion calls.
	GetModel() string

	// Validate validates the configuration and returns an error if invalid.
	// This should check all configuration fields for validity.
	Validate() error
}

const (
	// minMaxTokens is the minimum allowed response token cap.
	minMaxTokens = 64

	// maxMaxTokens is the maximum allowed response token cap.
	maxMaxTokens = 32768
)

// ValidateMaxTokens validates that the response token cap is within the
// valid range (64-32768). Returns an error with a descriptive message if
// the cap is out of range.
func ValidateMaxTokens(maxTokens int) error {
	if maxTokens < minMaxTokens {
		return fmt.Errorf("max tokens %d is below minimum %d", maxTokens, minMaxTokens)
	}
	if maxTokens > maxMaxTokens {
		return fmt.Errorf("max tokens %d exceeds maximum %d", maxTokens, maxMaxTokens)
	}
	return nil
}

// mergeSeparator joins partial summaries inside merge prompts. Each partial
// keeps its position so the merged summary preserves document order.
const mergeSeparator = "\n\n---\n\n"

// buildSummarizePrompt constructs the prompt for summarizing a single chunk.
// Every call rebuilds the prompt from scratch; no conversational state is
// carried across calls.
func buildSummarizePrompt(text string) string {
	return fmt.Sprintf(
		"Summarize the following text concisely. Preserve key facts, figures, and conclusions. "+
			"Respond with the summary only, no preamble:\n\n%s", text)
}

// buildMergePrompt constructs the prompt for combining partial summaries
// into one coherent summary. The partials appear in document order and the
// prompt instructs the model to keep that order.
func buildMergePrompt(summaries []string) string {
	return fmt.Sprintf(
		"The following are partial summaries of consecutive sections of one document, in order. "+
			"Combine them into a single coherent summary that preserves their order and key facts. "+
			"Respond with the merged summary only, no preamble:\n\n%s",
		strings.Join(summaries, mergeSeparator))
}
