package extractor

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"docdigest/internal/domain/entity"
	"docdigest/internal/observability/metrics"
	"docdigest/internal/resilience/circuitbreaker"
	"docdigest/internal/resilience/retry"
	"docdigest/internal/utils/text"
)

// HTML extracts clean article text from web pages using Mozilla's
// Readability algorithm, with a goquery-based fallback for pages the
// algorithm cannot handle.
//
// Features:
//   - SSRF prevention via URL validation
//   - Circuit breaker and retry for fault tolerance
//   - Size limiting to prevent memory exhaustion
//   - Redirect validation for security
//
// Thread safety: HTML is safe for concurrent use.
type HTML struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	config         FetchConfig
}

// NewHTML creates a new HTML extractor with the given configuration.
func NewHTML(config FetchConfig) *HTML {
	e := &HTML{
		circuitBreaker: circuitbreaker.New(circuitbreaker.ContentFetchConfig()),
		retryConfig:    retry.ContentFetchConfig(),
		config:         config,
	}

	// Each redirect target is validated for security (SSRF check)
	e.client = &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= e.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), e.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}

	return e
}

// Extract fetches the page and returns its article text as a Document.
//
// The fetch process:
//  1. Validates the URL for security (SSRF prevention)
//  2. Executes the HTTP request through retry and circuit breaker
//  3. Enforces the size limit while reading the response
//  4. Extracts article content using Readability, falling back to a
//     DOM-stripping pass when Readability finds nothing
func (h *HTML) Extract(ctx context.Context, urlStr string) (entity.Document, error) {
	if err := validateURL(urlStr, h.config.DenyPrivateIPs); err != nil {
		return entity.Document{}, err
	}

	start := time.Now()

	var content string
	retryErr := retry.WithBackoff(ctx, h.retryConfig, func() error {
		result, err := h.circuitBreaker.Execute(func() (interface{}, error) {
			return h.doFetch(ctx, urlStr)
		})
		if err != nil {
			return err
		}
		content = result.(string)
		return nil
	})
	if retryErr != nil {
		return entity.Document{}, fmt.Errorf("html extraction failed: %w", retryErr)
	}

	metrics.RecordExtraction("html", time.Since(start))

	return entity.NewDocument(entity.SourceHTML, urlStr, content), nil
}

// doFetch performs the actual HTTP request and content extraction.
// Called through the circuit breaker.
func (h *HTML) doFetch(ctx context.Context, urlStr string) (interface{}, error) {
	reqCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", "docdigest/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: request exceeded %v", ErrFetchTimeout, h.config.Timeout)
		}
		if urlErr, ok := err.(*url.Error); ok && urlErr.Err != nil {
			return "", urlErr.Err
		}
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		// Typed so the retry layer can distinguish transient from permanent
		return "", &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	// Read response body with size limit to prevent memory exhaustion
	limitedReader := io.LimitReader(resp.Body, h.config.MaxBodySize+1)
	htmlBytes, err := io.ReadAll(limitedReader)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(htmlBytes)) > h.config.MaxBodySize {
		return "", fmt.Errorf("%w: response size exceeds limit %d bytes",
			ErrBodyTooLarge, h.config.MaxBodySize)
	}

	// Parse the final URL (may have changed due to redirects)
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		parsedURL = nil // Readability can work without URL
	}
	if resp.Request != nil && resp.Request.URL != nil {
		parsedURL = resp.Request.URL
	}

	article, err := readability.FromReader(bytes.NewReader(htmlBytes), parsedURL)
	if err == nil && article.TextContent != "" {
		return article.TextContent, nil
	}
	if err != nil {
		slog.Debug("readability extraction failed, trying DOM fallback",
			slog.String("url", urlStr),
			slog.Any("error", err))
	}

	// Fallback: strip boilerplate elements and take the remaining body text.
	fallback, fbErr := stripBodyText(htmlBytes)
	if fbErr != nil || fallback == "" {
		return "", fmt.Errorf("%w: %s", ErrNoReadableContent, urlStr)
	}

	slog.Debug("used DOM fallback for content extraction",
		slog.String("url", urlStr),
		slog.Int("content_length", len(fallback)))

	return fallback, nil
}

// stripBodyText removes non-content elements and returns the normalized
// body text. Used when Readability cannot identify an article.
func stripBodyText(htmlBytes []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBytes))
	if err != nil {
		return "", fmt.Errorf("html parse failed: %w", err)
	}

	doc.Find("script, style, noscript, nav, header, footer, aside, form").Remove()

	var paragraphs []string
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		raw := sel.Text()
		for _, para := range strings.Split(raw, "\n") {
			cleaned := text.CollapseSpaces(para)
			if !text.IsBlank(cleaned) {
				paragraphs = append(paragraphs, cleaned)
			}
		}
	})

	return strings.Join(paragraphs, "\n\n"), nil
}
