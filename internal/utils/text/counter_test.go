package text

import "testing"

func TestCountRunes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"ascii", "hello", 5},
		{"japanese", "こんにちは", 5},
		{"mixed", "hello世界", 7},
		{"emoji", "Hello👋", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountRunes(tt.text); got != tt.want {
				t.Errorf("CountRunes(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestCollapseSpaces(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", ""},
		{"already clean", "one two", "one two"},
		{"newlines and tabs", "one\n\ttwo  three\r\nfour", "one two three four"},
		{"surrounding whitespace", "  padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollapseSpaces(tt.text); got != tt.want {
				t.Errorf("CollapseSpaces(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank(" \n\t ") {
		t.Error("IsBlank(whitespace) = false, want true")
	}
	if IsBlank(" x ") {
		t.Error("IsBlank(\" x \") = true, want false")
	}
}
