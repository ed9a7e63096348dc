package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"docdigest/internal/domain/entity"
)

// pdfContentType is the MIME type that identifies a PDF response.
const pdfContentType = "application/pdf"

// DetectSource determines which extractor should handle a source string.
//
// Detection order:
//  1. Local paths are PDFs when they carry a .pdf extension
//  2. YouTube URLs go to transcription
//  3. URLs ending in .pdf go to the PDF extractor
//  4. A HEAD request resolves ambiguous URLs by Content-Type
//  5. Everything else is treated as a web article
func DetectSource(ctx context.Context, source string) (entity.SourceKind, error) {
	if !isHTTPURL(source) {
		if _, err := os.Stat(source); err != nil {
			return "", fmt.Errorf("%w: %s is neither a URL nor an existing file", ErrUnsupportedSource, source)
		}
		if hasPDFExtension(source) {
			return entity.SourcePDF, nil
		}
		return "", fmt.Errorf("%w: unsupported local file type: %s", ErrUnsupportedSource, source)
	}

	if IsYouTubeURL(source) {
		return entity.SourceTranscript, nil
	}

	if hasPDFExtension(source) {
		return entity.SourcePDF, nil
	}

	if sniffRemotePDF(ctx, source) {
		return entity.SourcePDF, nil
	}

	return entity.SourceHTML, nil
}

// sniffRemotePDF issues a HEAD request and checks the Content-Type header.
// Any failure is treated as "not a PDF"; the HTML extractor will surface a
// proper error if the URL is truly unreachable.
func sniffRemotePDF(ctx context.Context, urlStr string) bool {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, urlStr, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", "docdigest/1.0")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	contentType := resp.Header.Get("Content-Type")
	return strings.HasPrefix(strings.ToLower(contentType), pdfContentType)
}

// Factory routes each source to the matching extractor based on source
// detection. It implements the pipeline's Extractor interface so callers
// can summarize any supported source through a single entry point.
type Factory struct {
	html       *HTML
	pdf        *PDF
	transcript *Transcript
}

// NewFactory creates a Factory from the individual extractors. The
// transcript extractor may be nil when transcription is not configured;
// YouTube sources then fail with ErrUnsupportedSource.
func NewFactory(html *HTML, pdf *PDF, transcript *Transcript) *Factory {
	return &Factory{
		html:       html,
		pdf:        pdf,
		transcript: transcript,
	}
}

// Extract detects the source kind and delegates to the matching extractor.
func (f *Factory) Extract(ctx context.Context, source string) (entity.Document, error) {
	kind, err := DetectSource(ctx, source)
	if err != nil {
		return entity.Document{}, err
	}

	slog.Debug("source detected",
		slog.String("source", source),
		slog.String("kind", string(kind)))

	return f.dispatch(ctx, kind, source)
}

// dispatch routes a detected source kind to its extractor.
func (f *Factory) dispatch(ctx context.Context, kind entity.SourceKind, source string) (entity.Document, error) {
	switch kind {
	case entity.SourcePDF:
		return f.pdf.Extract(ctx, source)
	case entity.SourceTranscript:
		if f.transcript == nil {
			return entity.Document{}, fmt.Errorf(
				"%w: transcription is not configured (set WHISPER_MODEL_PATH)", ErrUnsupportedSource)
		}
		return f.transcript.Extract(ctx, source)
	case entity.SourceHTML:
		return f.html.Extract(ctx, source)
	default:
		return entity.Document{}, fmt.Errorf("%w: %q", entity.ErrUnknownSourceKind, kind)
	}
}
