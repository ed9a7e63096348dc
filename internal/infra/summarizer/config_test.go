package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMaxTokens(t *testing.T) {
	tests := []struct {
		name      string
		maxTokens int
		wantErr   bool
	}{
		{"minimum boundary", 64, false},
		{"maximum boundary", 32768, false},
		{"typical value", 4096, false},
		{"below minimum", 63, true},
		{"zero", 0, true},
		{"negative", -1, true},
		{"above maximum", 32769, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMaxTokens(tt.maxTokens)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildSummarizePrompt(t *testing.T) {
	prompt := buildSummarizePrompt("The quick brown fox jumps over the lazy dog.")

	assert.Contains(t, prompt, "Summarize the following text")
	assert.Contains(t, prompt, "The quick brown fox jumps over the lazy dog.")
}

func TestBuildMergePrompt_PreservesOrder(t *testing.T) {
	summaries := []string{"first part", "second part", "third part"}

	prompt := buildMergePrompt(summaries)

	assert.Contains(t, prompt, "partial summaries")
	first := strings.Index(prompt, "first part")
	second := strings.Index(prompt, "second part")
	third := strings.Index(prompt, "third part")
	assert.True(t, first >= 0 && first < second && second < third,
		"partials must appear in input order")
	assert.Contains(t, prompt, mergeSeparator)
}

func TestBuildPrompt_Stateless(t *testing.T) {
	// Identical inputs must yield identical prompts: no state carries over.
	a := buildSummarizePrompt("same input")
	b := buildSummarizePrompt("same input")
	assert.Equal(t, a, b)

	m1 := buildMergePrompt([]string{"x", "y"})
	m2 := buildMergePrompt([]string{"x", "y"})
	assert.Equal(t, m1, m2)
}
