package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"docdigest/internal/domain/entity"
	"docdigest/internal/observability/metrics"
	"docdigest/internal/resilience/circuitbreaker"
	"docdigest/internal/utils/text"
)

// TranscriptConfig holds settings for the audio transcription pipeline.
type TranscriptConfig struct {
	// YtDlpPath is the yt-dlp binary used for audio download.
	YtDlpPath string
	// FFmpegPath is the ffmpeg binary used for resampling.
	FFmpegPath string
	// WhisperPath is the whisper-cli binary used for transcription.
	WhisperPath string
	// WhisperModel is the path to the whisper model file (required).
	WhisperModel string
	// Language is the spoken language tag ("en", "ja-JP", ...). Empty or
	// unrecognized tags let whisper auto-detect.
	Language string
	// OutputDir is the working directory for audio and transcript files.
	OutputDir string
	// KeepAudioFiles disables deletion of downloaded and resampled audio.
	KeepAudioFiles bool
	// KeepTranscriptFiles disables deletion of intermediate SRT files.
	KeepTranscriptFiles bool
	// AudioSampleRate is the sample rate whisper expects (Hz).
	AudioSampleRate int
	// AudioChannels is the channel count whisper expects.
	AudioChannels int
}

// DefaultTranscriptConfig returns the transcription settings whisper.cpp
// works best with: 16 kHz mono WAV input.
func DefaultTranscriptConfig() TranscriptConfig {
	return TranscriptConfig{
		YtDlpPath:       "yt-dlp",
		FFmpegPath:      "ffmpeg",
		WhisperPath:     "whisper-cli",
		OutputDir:       filepath.Join(os.TempDir(), "docdigest"),
		AudioSampleRate: 16000,
		AudioChannels:   1,
	}
}

// Validate checks the transcript configuration for consistency.
func (c TranscriptConfig) Validate() error {
	if c.WhisperModel == "" {
		return fmt.Errorf("whisper model path is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.AudioSampleRate <= 0 {
		return fmt.Errorf("audio sample rate must be positive, got %d", c.AudioSampleRate)
	}
	if c.AudioChannels <= 0 {
		return fmt.Errorf("audio channel count must be positive, got %d", c.AudioChannels)
	}
	return nil
}

// LoadTranscriptConfigFromEnv loads the transcription configuration from
// environment variables. WHISPER_MODEL_PATH is required; everything else
// falls back to defaults.
func LoadTranscriptConfigFromEnv() (TranscriptConfig, error) {
	config := DefaultTranscriptConfig()

	config.WhisperModel = os.Getenv("WHISPER_MODEL_PATH")
	config.Language = os.Getenv("WHISPER_LANGUAGE")

	if val := os.Getenv("YT_DLP_PATH"); val != "" {
		config.YtDlpPath = val
	}
	if val := os.Getenv("FFMPEG_PATH"); val != "" {
		config.FFmpegPath = val
	}
	if val := os.Getenv("WHISPER_BINARY_PATH"); val != "" {
		config.WhisperPath = val
	}
	if val := os.Getenv("YOUTUBE_OUTPUT_DIR"); val != "" {
		config.OutputDir = val
	}
	if val := os.Getenv("KEEP_AUDIO_FILES"); val != "" {
		config.KeepAudioFiles = val == "true" || val == "1"
	}
	if val := os.Getenv("KEEP_TRANSCRIPT_FILES"); val != "" {
		config.KeepTranscriptFiles = val == "true" || val == "1"
	}
	if val := os.Getenv("AUDIO_SAMPLE_RATE"); val != "" {
		rate, err := strconv.Atoi(val)
		if err != nil {
			return TranscriptConfig{}, fmt.Errorf("invalid AUDIO_SAMPLE_RATE: %w", err)
		}
		config.AudioSampleRate = rate
	}
	if val := os.Getenv("AUDIO_CHANNELS"); val != "" {
		channels, err := strconv.Atoi(val)
		if err != nil {
			return TranscriptConfig{}, fmt.Errorf("invalid AUDIO_CHANNELS: %w", err)
		}
		config.AudioChannels = channels
	}

	if err := config.Validate(); err != nil {
		return TranscriptConfig{}, fmt.Errorf("invalid transcript config: %w", err)
	}

	return config, nil
}

// Transcript extracts text from YouTube videos by downloading the audio
// track, resampling it, and transcribing it with whisper.cpp. All three
// external tools run through a shared circuit breaker so a broken
// installation fails fast instead of on every request.
//
// Completed transcripts are cached in OutputDir keyed by video ID, so
// re-processing the same video skips the expensive tool pipeline.
type Transcript struct {
	tools  *circuitbreaker.ToolRunner
	config TranscriptConfig
}

// NewTranscript creates a new Transcript extractor.
func NewTranscript(config TranscriptConfig) *Transcript {
	return &Transcript{
		tools:  circuitbreaker.NewToolRunner(),
		config: config,
	}
}

// Extract downloads and transcribes a YouTube video's audio track.
//
// The pipeline:
//  1. Resolve the video ID and check the transcript cache
//  2. yt-dlp downloads the best audio stream as WAV
//  3. ffmpeg resamples to the rate and channel count whisper expects
//  4. whisper-cli transcribes to SRT
//  5. The SRT is cleaned into plain paragraphed text and cached
func (t *Transcript) Extract(ctx context.Context, source string) (entity.Document, error) {
	videoID, err := ExtractVideoID(source)
	if err != nil {
		return entity.Document{}, err
	}

	start := time.Now()
	logger := slog.With(slog.String("video_id", videoID))

	if cached, ok := t.readCache(videoID); ok {
		logger.Info("transcript cache hit")
		return entity.NewDocument(entity.SourceTranscript, source, cached), nil
	}

	if err := os.MkdirAll(t.config.OutputDir, 0o755); err != nil {
		return entity.Document{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	rawAudio := filepath.Join(t.config.OutputDir, videoID+".raw.wav")
	audio := filepath.Join(t.config.OutputDir, videoID+".wav")
	srtBase := filepath.Join(t.config.OutputDir, videoID)
	srt := srtBase + ".srt"

	if !t.config.KeepAudioFiles {
		defer func() {
			_ = os.Remove(rawAudio)
			_ = os.Remove(audio)
		}()
	}
	if !t.config.KeepTranscriptFiles {
		defer func() {
			_ = os.Remove(srt)
		}()
	}

	logger.Info("downloading audio track")
	if _, err := t.tools.Run(ctx, t.config.YtDlpPath,
		"-x", "--audio-format", "wav",
		"--no-playlist",
		"-o", rawAudio,
		source,
	); err != nil {
		return entity.Document{}, fmt.Errorf("audio download failed: %w", err)
	}

	logger.Info("resampling audio",
		slog.Int("sample_rate", t.config.AudioSampleRate),
		slog.Int("channels", t.config.AudioChannels))
	if _, err := t.tools.Run(ctx, t.config.FFmpegPath,
		"-y",
		"-i", rawAudio,
		"-ar", strconv.Itoa(t.config.AudioSampleRate),
		"-ac", strconv.Itoa(t.config.AudioChannels),
		audio,
	); err != nil {
		return entity.Document{}, fmt.Errorf("audio resampling failed: %w", err)
	}

	language := t.config.Language
	if language == "" {
		language = t.probeLanguage(ctx, source)
	}

	logger.Info("transcribing audio", slog.String("language", NormalizeLanguage(language)))
	if _, err := t.tools.Run(ctx, t.config.WhisperPath,
		"-m", t.config.WhisperModel,
		"-f", audio,
		"-l", NormalizeLanguage(language),
		"-osrt",
		"-of", srtBase,
	); err != nil {
		return entity.Document{}, fmt.Errorf("transcription failed: %w", err)
	}

	srtBytes, err := os.ReadFile(srt)
	if err != nil {
		return entity.Document{}, fmt.Errorf("failed to read transcript: %w", err)
	}

	cleaned := cleanSRT(string(srtBytes))
	if cleaned == "" {
		return entity.Document{}, fmt.Errorf("%w: transcription produced no text", ErrNoReadableContent)
	}

	t.writeCache(videoID, cleaned)

	metrics.RecordExtraction("transcript", time.Since(start))
	logger.Info("transcription complete",
		slog.Int("transcript_length", len(cleaned)),
		slog.Duration("duration", time.Since(start)))

	return entity.NewDocument(entity.SourceTranscript, source, cleaned), nil
}

// probeLanguage asks yt-dlp for the video metadata and returns the spoken
// language tag it reports. Any failure returns an empty tag, which maps to
// whisper's automatic detection.
func (t *Transcript) probeLanguage(ctx context.Context, source string) string {
	out, err := t.tools.Run(ctx, t.config.YtDlpPath,
		"--skip-download", "--no-playlist", "--dump-json", source)
	if err != nil {
		slog.Debug("video metadata probe failed",
			slog.String("source", source),
			slog.Any("error", err))
		return ""
	}

	var meta struct {
		Language string `json:"language"`
	}
	if err := json.Unmarshal(out, &meta); err != nil {
		return ""
	}
	return meta.Language
}

// cachePath returns the location of the cached plain-text transcript for a
// video ID.
func (t *Transcript) cachePath(videoID string) string {
	return filepath.Join(t.config.OutputDir, videoID+".txt")
}

func (t *Transcript) readCache(videoID string) (string, bool) {
	data, err := os.ReadFile(t.cachePath(videoID))
	if err != nil || len(data) == 0 {
		return "", false
	}
	return string(data), true
}

func (t *Transcript) writeCache(videoID string, transcript string) {
	if err := os.WriteFile(t.cachePath(videoID), []byte(transcript), 0o644); err != nil {
		slog.Warn("failed to cache transcript",
			slog.String("video_id", videoID),
			slog.Any("error", err))
	}
}

// srtTimestampPattern matches an SRT timing line such as
// "00:01:02,500 --> 00:01:05,000".
var srtTimestampPattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2},\d{3}\s+-->\s+\d{2}:\d{2}:\d{2},\d{3}`)

// srtIndexPattern matches an SRT sequence number line.
var srtIndexPattern = regexp.MustCompile(`^\d+$`)

// cleanSRT converts SubRip subtitle output into plain text. Sequence
// numbers and timing lines are dropped, consecutive duplicate lines are
// collapsed (whisper repeats captions across segment boundaries), and the
// remaining text is joined into a single flow.
func cleanSRT(srt string) string {
	var lines []string
	var previous string

	for _, line := range strings.Split(srt, "\n") {
		line = text.CollapseSpaces(line)
		if line == "" {
			continue
		}
		if srtIndexPattern.MatchString(line) || srtTimestampPattern.MatchString(line) {
			continue
		}
		if line == previous {
			continue
		}
		lines = append(lines, line)
		previous = line
	}

	return strings.Join(lines, " ")
}
