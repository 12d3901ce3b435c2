package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// FailedText is written in place of a translation that could not be obtained.
	FailedText    = "translation failed"
	MaxTextLength = 5000
	MaxAttempts   = 3

	DefaultBaseURL = "https://translate.googleapis.com/translate_a/single"
)

var (
	errEmptyTranslation = errors.New("empty translation")
	errMalformed        = errors.New("malformed response")
)

// Translator turns one piece of text into its translation. Implementations
// never fail: an unobtainable translation is reported as FailedText.
type Translator interface {
	Translate(ctx context.Context, text string) string
}

type Config struct {
	BaseURL    string
	SourceLang string
	TargetLang string
	Timeout    time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	backoff    func(attempt int) time.Duration
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SourceLang == "" {
		cfg.SourceLang = "auto"
	}
	if cfg.TargetLang == "" {
		cfg.TargetLang = "zh"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		backoff:    exponentialBackoff,
	}
}

// exponentialBackoff waits 2^attempt + 0.5 seconds after a failed attempt.
func exponentialBackoff(attempt int) time.Duration {
	seconds := math.Pow(2, float64(attempt)) + 0.5
	return time.Duration(seconds * float64(time.Second))
}

func (c *Client) Translate(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = truncate(text, MaxTextLength)

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		translated, err := c.request(ctx, text)
		if err == nil {
			return translated
		}
		if errors.Is(err, errEmptyTranslation) {
			c.logger.Warn("Translation endpoint returned no segments",
				zap.Int("attempt", attempt),
			)
			return FailedText
		}

		c.logger.Warn("Translation attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt == MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			c.logger.Error("Translation aborted", zap.Error(ctx.Err()))
			return FailedText
		case <-time.After(c.backoff(attempt)):
		}
	}

	c.logger.Error("Translation failed after all attempts",
		zap.Int("attempts", MaxAttempts),
	)
	return FailedText
}

func (c *Client) request(ctx context.Context, text string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", c.cfg.SourceLang)
	params.Set("tl", c.cfg.TargetLang)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	return parseSegments(body)
}

// parseSegments joins the first field of every segment in the first element
// of a response shaped like [[["translated","source",...],...],...].
func parseSegments(body []byte) (string, error) {
	var data []any
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("%w: %v", errMalformed, err)
	}
	if len(data) == 0 || data[0] == nil {
		return "", errEmptyTranslation
	}

	segments, ok := data[0].([]any)
	if !ok {
		return "", fmt.Errorf("%w: first element is %T", errMalformed, data[0])
	}
	if len(segments) == 0 {
		return "", errEmptyTranslation
	}

	var b strings.Builder
	for _, seg := range segments {
		fields, ok := seg.([]any)
		if !ok || len(fields) == 0 {
			return "", fmt.Errorf("%w: segment is %T", errMalformed, seg)
		}
		part, ok := fields[0].(string)
		if !ok {
			return "", fmt.Errorf("%w: segment text is %T", errMalformed, fields[0])
		}
		b.WriteString(part)
	}
	return b.String(), nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
