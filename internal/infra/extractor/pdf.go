package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docdigest/internal/domain/entity"
	"docdigest/internal/observability/metrics"
	"docdigest/internal/resilience/circuitbreaker"
)

// defaultPDFToTextBinary is the poppler utility used for text extraction.
const defaultPDFToTextBinary = "pdftotext"

// PDF extracts text from PDF documents, either local files or URLs, by
// invoking pdftotext through a circuit-breaker-protected tool runner.
type PDF struct {
	client *http.Client
	tools  *circuitbreaker.ToolRunner
	config FetchConfig
	binary string
}

// NewPDF creates a new PDF extractor. An empty binaryPath selects the
// pdftotext binary from PATH.
func NewPDF(config FetchConfig, binaryPath string) *PDF {
	if binaryPath == "" {
		binaryPath = defaultPDFToTextBinary
	}
	return &PDF{
		client: &http.Client{Timeout: config.Timeout},
		tools: circuitbreaker.NewToolRunnerWithConfig(
			circuitbreaker.DefaultConfig("pdftotext"), 2*time.Minute),
		config: config,
		binary: binaryPath,
	}
}

// Extract converts the PDF at the given path or URL to plain text. Remote
// documents are downloaded to a temporary file first, with the same SSRF
// and size protections as HTML fetching.
func (p *PDF) Extract(ctx context.Context, source string) (entity.Document, error) {
	start := time.Now()

	path := source
	if isHTTPURL(source) {
		downloaded, cleanup, err := p.download(ctx, source)
		if err != nil {
			return entity.Document{}, err
		}
		defer cleanup()
		path = downloaded
	} else if _, err := os.Stat(source); err != nil {
		return entity.Document{}, fmt.Errorf("pdf file not accessible: %w", err)
	}

	// "-" writes extracted text to stdout
	out, err := p.tools.Run(ctx, p.binary, "-enc", "UTF-8", path, "-")
	if err != nil {
		return entity.Document{}, fmt.Errorf("pdf text extraction failed: %w", err)
	}

	cleaned := cleanPDFText(string(out))
	if cleaned == "" {
		return entity.Document{}, fmt.Errorf("%w: %s", ErrNoReadableContent, source)
	}

	metrics.RecordExtraction("pdf", time.Since(start))

	return entity.NewDocument(entity.SourcePDF, source, cleaned), nil
}

// download fetches a remote PDF into a temporary file and returns its path
// together with a cleanup function.
func (p *PDF) download(ctx context.Context, urlStr string) (string, func(), error) {
	if err := validateURL(urlStr, p.config.DenyPrivateIPs); err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", nil, fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", "docdigest/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("pdf download failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("pdf download failed: HTTP %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "docdigest-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() {
		_ = os.Remove(tmp.Name())
	}

	limited := io.LimitReader(resp.Body, p.config.MaxBodySize+1)
	written, err := io.Copy(tmp, limited)
	closeErr := tmp.Close()
	if err != nil || closeErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to write pdf to disk: %w", err)
	}
	if written > p.config.MaxBodySize {
		cleanup()
		return "", nil, fmt.Errorf("%w: pdf exceeds limit %d bytes", ErrBodyTooLarge, p.config.MaxBodySize)
	}

	return tmp.Name(), cleanup, nil
}

// isHTTPURL reports whether the source looks like a remote URL rather than
// a local file path.
func isHTTPURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// hasPDFExtension reports whether the path or URL ends in .pdf.
func hasPDFExtension(source string) bool {
	trimmed := source
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.EqualFold(filepath.Ext(trimmed), ".pdf")
}

// cleanPDFText normalizes pdftotext output into paragraph-structured text:
// form feeds become paragraph breaks, hard-wrapped lines are joined, and
// hyphenation at line ends is repaired.
func cleanPDFText(raw string) string {
	raw = strings.ReplaceAll(raw, "\f", "\n\n")

	var paragraphs []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			paragraphs = append(paragraphs, cur.String())
			cur.Reset()
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}

		if cur.Len() > 0 {
			joined := cur.String()
			if strings.HasSuffix(joined, "-") {
				// Repair hyphenation: "exam-" + "ple" -> "example"
				cur.Reset()
				cur.WriteString(strings.TrimSuffix(joined, "-"))
			} else {
				cur.WriteString(" ")
			}
		}
		cur.WriteString(line)
	}
	flush()

	return strings.Join(paragraphs, "\n\n")
}
