// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Document, along with
// their validation rules and domain-specific errors.
package entity

// SourceKind identifies the type of source a Document was extracted from.
type SourceKind string

const (
	// SourcePDF marks text extracted from a PDF document.
	SourcePDF SourceKind = "pdf"
	// SourceHTML marks text extracted from a web article.
	SourceHTML SourceKind = "html"
	// SourceTranscript marks text produced by audio transcription.
	SourceTranscript SourceKind = "transcript"
)

// TaskType selects the summarization profile, which in turn drives the
// token budget used for chunking and reduction.
type TaskType string

const (
	// TaskShortSummary produces a compact summary with a tight token budget.
	TaskShortSummary TaskType = "short_summary"
	// TaskLongSummary is the default profile for general documents.
	TaskLongSummary TaskType = "long_summary"
	// TaskDetailedAnalysis allows a larger budget for in-depth coverage.
	TaskDetailedAnalysis TaskType = "detailed_analysis"
	// TaskAcademicPaper allows the largest budget, for dense academic text.
	TaskAcademicPaper TaskType = "academic_paper"
)

// Valid reports whether the task type is one of the supported profiles.
func (t TaskType) Valid() bool {
	switch t {
	case TaskShortSummary, TaskLongSummary, TaskDetailedAnalysis, TaskAcademicPaper:
		return true
	}
	return false
}

// Document is an immutable plain-text payload produced by an extractor.
// The text is never mutated after construction; the summarization core
// consumes it exactly once per run.
type Document struct {
	// Source identifies where the text came from ("pdf", "html", "transcript").
	Source SourceKind

	// Origin is the original location of the document (URL or file path).
	// Informational only; the core never interprets it.
	Origin string

	// Text is the extracted plain-text content.
	Text string
}

// NewDocument creates a Document for the given source kind and text.
func NewDocument(source SourceKind, origin, text string) Document {
	return Document{
		Source: source,
		Origin: origin,
		Text:   text,
	}
}

// Empty reports whether the document carries no usable text.
func (d Document) Empty() bool {
	for _, r := range d.Text {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// Len returns the length of the document text in runes.
func (d Document) Len() int {
	return len([]rune(d.Text))
}
