package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// videoIDPattern matches the canonical 11-character YouTube video ID.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// youtubeHosts are the hostnames recognized as YouTube.
var youtubeHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
}

// IsYouTubeURL reports whether the source is a YouTube video URL.
func IsYouTubeURL(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return youtubeHosts[strings.ToLower(u.Hostname())]
}

// ExtractVideoID extracts the 11-character video ID from a YouTube URL.
// Supported forms: watch?v=ID, youtu.be/ID, shorts/ID, embed/ID, live/ID.
func ExtractVideoID(source string) (string, error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	host := strings.ToLower(u.Hostname())
	if !youtubeHosts[host] {
		return "", fmt.Errorf("%w: not a youtube url: %s", ErrInvalidURL, source)
	}

	var candidate string

	if host == "youtu.be" {
		candidate = strings.Trim(u.Path, "/")
	} else if v := u.Query().Get("v"); v != "" {
		candidate = v
	} else {
		// Path-based forms: /shorts/ID, /embed/ID, /live/ID
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 {
			switch parts[0] {
			case "shorts", "embed", "live":
				candidate = parts[1]
			}
		}
	}

	if !videoIDPattern.MatchString(candidate) {
		return "", fmt.Errorf("%w: no video id in %s", ErrInvalidURL, source)
	}

	return candidate, nil
}

// languageMap translates video language tags reported by yt-dlp into
// whisper language codes. Region subtags are stripped before lookup.
var languageMap = map[string]string{
	"en": "en",
	"ja": "ja",
	"zh": "zh",
	"ko": "ko",
	"fr": "fr",
	"de": "de",
	"es": "es",
	"pt": "pt",
	"ru": "ru",
	"it": "it",
	"nl": "nl",
	"ar": "ar",
	"hi": "hi",
}

// whisperAutoDetect lets whisper choose the language itself.
const whisperAutoDetect = "auto"

// NormalizeLanguage converts a video language tag (e.g. "en-US", "ja") to
// a whisper language code. Unknown or empty tags fall back to automatic
// detection.
func NormalizeLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" || tag == "none" || tag == "null" {
		return whisperAutoDetect
	}

	// Strip region subtags: "en-US" -> "en", "zh-Hans" -> "zh"
	if idx := strings.IndexAny(tag, "-_"); idx > 0 {
		tag = tag[:idx]
	}

	if code, ok := languageMap[tag]; ok {
		return code
	}
	return whisperAutoDetect
}
