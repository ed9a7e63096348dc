package entity

import "testing"

func TestTaskType_Valid(t *testing.T) {
	tests := []struct {
		name string
		task TaskType
		want bool
	}{
		{"short summary", TaskShortSummary, true},
		{"long summary", TaskLongSummary, true},
		{"detailed analysis", TaskDetailedAnalysis, true},
		{"academic paper", TaskAcademicPaper, true},
		{"empty", TaskType(""), false},
		{"unknown", TaskType("podcast"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.Valid(); got != tt.want {
				t.Errorf("TaskType(%q).Valid() = %v, want %v", tt.task, got, tt.want)
			}
		})
	}
}

func TestDocument_Empty(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty string", "", true},
		{"whitespace only", "  \n\t\r\n  ", true},
		{"plain text", "hello", false},
		{"cjk text", "你好", false},
		{"text with surrounding whitespace", "\n\n  content  \n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewDocument(SourceHTML, "https://example.com", tt.text)
			if got := doc.Empty(); got != tt.want {
				t.Errorf("Document.Empty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDocument_Len(t *testing.T) {
	// Len counts runes, not bytes, so CJK documents budget consistently.
	doc := NewDocument(SourceTranscript, "video-id", "hello世界")
	if got := doc.Len(); got != 7 {
		t.Errorf("Document.Len() = %d, want 7", got)
	}
}
