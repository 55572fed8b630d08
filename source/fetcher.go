package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"

	"github.com/slideforge/slideforge/schema"
)

const (
	fetchTimeout = 30 * time.Second
	maxPageBytes = 10 << 20
	userAgent    = "SlideForge/1.0 (+https://github.com/slideforge/slideforge)"
)

// Fetcher retrieves a web page and reduces it to a document. Readability
// extraction strips navigation and boilerplate before the markdown
// conversion.
type Fetcher struct {
	client    *http.Client
	converter *md.Converter
	logger    *slog.Logger

	// validate is swapped out in tests to reach loopback servers.
	validate func(string) error
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = logger }
}

// NewFetcher creates a web page fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	f := &Fetcher{
		client:    &http.Client{Timeout: fetchTimeout},
		converter: converter,
		logger:    slog.Default(),
		validate:  ValidateURL,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves rawURL and parses it into a document.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*schema.ParsedDocument, error) {
	if err := f.validate(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read page body: %w", err)
	}

	pageURL, _ := url.Parse(rawURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract readable content: %w", err)
	}

	markdown, err := f.converter.ConvertString(article.Content)
	if err != nil {
		return nil, fmt.Errorf("convert page to markdown: %w", err)
	}

	doc, err := ParseMarkdown(markdown)
	if err != nil {
		return nil, fmt.Errorf("parse page content: %w", err)
	}
	doc.SourceType = schema.SourceURL
	if article.Title != "" {
		doc.Title = article.Title
	}
	if doc.Abstract == "" && article.Excerpt != "" {
		doc.Abstract = strings.TrimSpace(article.Excerpt)
	}
	if article.Byline != "" && len(doc.Authors) == 0 {
		doc.Authors = splitAuthors(article.Byline)
	}

	f.logger.Info("fetched web page",
		"url", rawURL,
		"title", doc.Title,
		"sections", len(doc.Sections),
		"chars", len(doc.FullMarkdown))

	return doc, nil
}

// ValidateURL validates a URL for security (SSRF prevention).
// It requires HTTPS and blocks localhost, private IPs, and local domains.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "https" {
		return fmt.Errorf("only HTTPS URLs are allowed")
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return fmt.Errorf("localhost URLs are not allowed")
	}
	if strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("local domain URLs are not allowed")
	}
	if ip := net.ParseIP(host); ip != nil && isPrivateIP(ip) {
		return fmt.Errorf("private IP URLs are not allowed")
	}
	return nil
}

// isPrivateIP reports whether ip falls in a private or reserved range.
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
