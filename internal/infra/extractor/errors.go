package extractor

import "errors"

var (
	// ErrInvalidURL indicates the source URL is malformed or uses a
	// disallowed scheme.
	ErrInvalidURL = errors.New("invalid url")

	// ErrPrivateIP indicates the source URL resolves to a private,
	// loopback, or link-local address.
	ErrPrivateIP = errors.New("url resolves to private ip")

	// ErrBodyTooLarge indicates the response body exceeded the configured
	// size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTooManyRedirects indicates the redirect limit was exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrFetchTimeout indicates the request exceeded its deadline.
	ErrFetchTimeout = errors.New("fetch timeout")

	// ErrNoReadableContent indicates the page yielded no usable article text.
	ErrNoReadableContent = errors.New("no readable content found")

	// ErrUnsupportedSource indicates no extractor can handle the source.
	ErrUnsupportedSource = errors.New("unsupported source")
)
