// Package jobsource resolves the job description from inline text, a file or a job posting URL.
package jobsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/spigell/resume-coach/internal/utils"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (compatible; resume-coach)"
	maxBodyBytes     = 5 << 20
)

// ErrNoSource is returned when none of the source fields is set.
var ErrNoSource = errors.New("no job description source given")

// noise is stripped before the text is extracted.
const noise = "nav, footer, header, script, style, noscript, form, .cookie-banner, .popup, .sidebar, .ad, .ads"

// postingSelectors are tried in order; the first match wins, then body.
var postingSelectors = []string{
	".job-description",
	"#job-description",
	".job-content",
	"#job-content",
	".posting-content",
	".job-details",
	"[data-testid='job-description']",
	"[itemprop='description']",
	"main",
	"article",
	"#content",
	".content",
}

// Source names where the job description comes from. URL wins over File, File over Text.
type Source struct {
	Text string
	File string
	URL  string
}

func (s Source) Empty() bool {
	return strings.TrimSpace(s.Text) == "" && strings.TrimSpace(s.File) == "" && strings.TrimSpace(s.URL) == ""
}

type Loader struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
}

func New(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loader{
		logger:     logger,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		UserAgent:  defaultUserAgent,
	}
}

// Load resolves src with a default Loader.
func Load(ctx context.Context, src Source) (string, error) {
	return New(nil).Load(ctx, src)
}

func (l *Loader) Load(ctx context.Context, src Source) (string, error) {
	var (
		text   string
		err    error
		origin string
	)

	switch {
	case strings.TrimSpace(src.URL) != "":
		origin = strings.TrimSpace(src.URL)
		text, err = l.fetch(ctx, origin)
	case strings.TrimSpace(src.File) != "":
		origin = strings.TrimSpace(src.File)
		text, err = readFile(origin)
	case src.Text != "":
		return src.Text, nil
	default:
		return "", ErrNoSource
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("job description from %s is empty", origin)
	}

	l.logger.Debug("job description loaded",
		zap.String("source", origin),
		zap.Int("length", len(text)),
		zap.String("preview", utils.TruncateForLog(text, 120)),
	)

	return text, nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read job description file: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

func (l *Loader) fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("invalid job posting url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", l.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	l.logger.Debug("fetch job posting", zap.String("url", parsed.String()))
	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch job posting: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch job posting: bad status: %s", resp.Status)
	}

	return ExtractText(io.LimitReader(resp.Body, maxBodyBytes))
}

// ExtractText reduces an HTML page to the text of its job posting.
func ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse job posting html: %w", err)
	}

	doc.Find(noise).Remove()

	var content *goquery.Selection
	for _, selector := range postingSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			content = selection.First()
			break
		}
	}
	if content == nil {
		content = doc.Find("body")
	}

	return collapseWhitespace(content.Text()), nil
}

func collapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
