// Package webfetch downloads a web page and reduces it to plain text that
// fits a token budget.
package webfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/golang-lru/v2/expirable"

	tokenutil "station/internal/shared/token"
)

var (
	ErrInvalidURL = errors.New("URL must start with http:// or https://")
	ErrTimeout    = errors.New("request timed out")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unsuccessful response status %d", e.Code)
}

// ContentTypeError reports a response that is not text.
type ContentTypeError struct {
	ContentType string
}

func (e *ContentTypeError) Error() string {
	ct := e.ContentType
	if ct == "" {
		ct = "not specified"
	}
	return fmt.Sprintf("unsupported content type %q, text content expected", ct)
}

// Config tunes a Fetcher.
type Config struct {
	Timeout      time.Duration
	MaxBytes     int64
	MaxTokens    int
	MaxRedirects int
	CacheSize    int
	CacheTTL     time.Duration
	UserAgent    string
}

// DefaultConfig mirrors the production limits.
func DefaultConfig() Config {
	return Config{
		Timeout:      15 * time.Second,
		MaxBytes:     2621440,
		MaxTokens:    196608,
		MaxRedirects: 10,
		CacheSize:    64,
		CacheTTL:     5 * time.Minute,
		UserAgent:    "station/1.0 (web content fetcher)",
	}
}

// Page is the extracted text of one URL.
type Page struct {
	URL            string
	Text           string
	ByteTruncated  bool
	TokenTruncated bool
	Cached         bool
}

// Fetcher downloads pages over HTTP.
type Fetcher struct {
	client *http.Client
	cfg    Config
	oracle tokenutil.Oracle
	cache  *expirable.LRU[string, Page]
}

// New builds a fetcher. A nil oracle uses the default tokenizer.
func New(cfg Config, oracle tokenutil.Oracle) *Fetcher {
	defaults := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaults.MaxRedirects
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if oracle == nil {
		oracle = tokenutil.Default()
	}
	maxRedirects := cfg.MaxRedirects
	f := &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		cfg:    cfg,
		oracle: oracle,
	}
	if cfg.CacheSize > 0 && cfg.CacheTTL > 0 {
		f.cache = expirable.NewLRU[string, Page](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return f
}

// Fetch downloads rawURL and returns its text content.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	url := strings.TrimSpace(rawURL)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return Page{}, ErrInvalidURL
	}
	if f.cache != nil {
		if page, ok := f.cache.Get(url); ok {
			page.Cached = true
			return page, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Page{}, ErrTimeout
		}
		return Page{}, fmt.Errorf("HTTP request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, &StatusError{Code: resp.StatusCode}
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "text/") {
		return Page{}, &ContentTypeError{ContentType: contentType}
	}

	page := Page{URL: url}
	body, truncated, err := f.readBody(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return Page{}, ErrTimeout
		}
		return Page{}, fmt.Errorf("read response: %w", err)
	}
	page.ByteTruncated = truncated

	text, err := htmlToText(body)
	if err != nil {
		return Page{}, fmt.Errorf("parse content: %w", err)
	}
	if f.cfg.MaxTokens > 0 && f.oracle.Count(text) > f.cfg.MaxTokens {
		text = f.oracle.Truncate(text, f.cfg.MaxTokens)
		page.TokenTruncated = true
	}
	page.Text = text

	if f.cache != nil {
		f.cache.Add(url, page)
	}
	return page, nil
}

func (f *Fetcher) readBody(body io.Reader) (string, bool, error) {
	if f.cfg.MaxBytes <= 0 {
		data, err := io.ReadAll(body)
		return string(data), false, err
	}
	data, err := io.ReadAll(io.LimitReader(body, f.cfg.MaxBytes+1))
	if err != nil {
		return "", false, err
	}
	if int64(len(data)) <= f.cfg.MaxBytes {
		return string(data), false, nil
	}
	// The cut may split a multi-byte rune.
	return strings.ToValidUTF8(string(data[:f.cfg.MaxBytes]), ""), true, nil
}

var whitespaceRun = regexp.MustCompile(`\s{2,}`)

// htmlToText strips markup, keeps link targets as "text (href)" and collapses
// whitespace runs.
func htmlToText(content string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", err
	}
	doc.Find("script, style").Remove()
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		text := strings.TrimSpace(s.Text())
		if text == "" {
			s.SetText("(" + href + ")")
			return
		}
		s.SetText(text + " (" + href + ")")
	})
	text := strings.ReplaceAll(doc.Text(), "\u00a0", " ")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
