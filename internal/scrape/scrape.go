package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"jobapply-backend/internal/shared/telemetry"
	"jobapply-backend/internal/shared/util"
)

const (
	// DefaultMaxChars caps extracted job text.
	DefaultMaxChars = 8000

	minPostingChars    = 100
	minPostingKeywords = 2
	maxBodyBytes       = 4 << 20
	userAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

var (
	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid job posting url")
	// ErrNotJobPosting is returned when the fetched page does not read like a job description.
	ErrNotJobPosting = errors.New("page does not look like a job posting")
	// ErrFetch is returned when the page could not be downloaded.
	ErrFetch = errors.New("fetch job posting")

	errBlockedAddress = errors.New("address not allowed")
)

// cgnat is the shared address space (RFC 6598), not covered by net.IP.IsPrivate.
var cgnat = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

var (
	removeSelectors = []string{
		"script", "style", "noscript", "iframe", "svg", "form",
		"header", "footer", "nav", "aside",
		"[role=navigation]", "[role=banner]", "[role=contentinfo]",
		".cookie-banner", ".advertisement", ".sidebar",
	}
	contentSelectors = []string{
		"[class*=job-description]", "[class*=jobDescription]", "[class*=description]",
		"[class*=job]", "article", "main", "#content", ".content",
	}
	postingKeywords = []string{
		"responsibilities", "requirements", "qualifications", "experience", "skills",
		"role", "position", "salary", "apply", "benefits", "team", "job",
	}

	blankRunRe = regexp.MustCompile(`\n{3,}`)
	spaceRunRe = regexp.MustCompile(`[ \t]+`)
)

// JobPosting is the cleaned text of a job page.
type JobPosting struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// Fetcher downloads and cleans job posting pages.
type Fetcher struct {
	client       *http.Client
	maxChars     int
	allowPrivate bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithPrivateNetworks lets the fetcher reach loopback and private addresses.
// Only local tooling and tests should use it.
func WithPrivateNetworks() Option {
	return func(f *Fetcher) { f.allowPrivate = true }
}

// NewFetcher returns a Fetcher with the given request timeout and text cap.
// By default it refuses to connect to loopback, private, link-local and
// unspecified addresses; the check runs on every dial so redirects and DNS
// answers are covered.
func NewFetcher(timeout time.Duration, maxChars int, opts ...Option) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	f := &Fetcher{maxChars: maxChars}
	for _, opt := range opts {
		opt(f)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !f.allowPrivate {
		dialer := &net.Dialer{Timeout: timeout, Control: rejectBlockedAddress}
		transport.DialContext = dialer.DialContext
		// A proxy would be the dialed address and hide the real target.
		transport.Proxy = nil
	}
	f.client = &http.Client{Timeout: timeout, Transport: transport}
	return f
}

func rejectBlockedAddress(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", errBlockedAddress, address)
	}
	ip := net.ParseIP(host)
	if ip == nil || blockedIP(ip) {
		return fmt.Errorf("%w: %s", errBlockedAddress, host)
	}
	return nil
}

func blockedIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() ||
		cgnat.Contains(ip)
}

// FetchJobDescription downloads rawURL and extracts its job description text.
// Extraction is heuristic; ErrNotJobPosting means the result failed validation.
func (f *Fetcher) FetchJobDescription(ctx context.Context, rawURL string) (JobPosting, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return JobPosting{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if !f.allowPrivate {
		if ip := net.ParseIP(u.Hostname()); ip != nil && blockedIP(ip) {
			return JobPosting{}, fmt.Errorf("%w: %s is not a public address", ErrInvalidURL, u.Hostname())
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return JobPosting{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, errBlockedAddress) {
			return JobPosting{}, fmt.Errorf("%w: %s resolves to a non-public address", ErrInvalidURL, u.Hostname())
		}
		return JobPosting{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return JobPosting{}, fmt.Errorf("%w: http status %d", ErrFetch, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return JobPosting{}, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}

	title, text, err := Clean(string(body), f.maxChars)
	if err != nil {
		return JobPosting{}, err
	}
	telemetry.Info("scrape.fetched", map[string]any{
		"host":        u.Host,
		"chars":       utf8.RuneCountInString(text),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if !LooksLikeJobPosting(text) {
		return JobPosting{}, ErrNotJobPosting
	}
	return JobPosting{Title: title, Text: text, URL: u.String()}, nil
}

// Clean strips page chrome from an HTML document, converts the richest content
// container to markdown and caps the result at maxChars runes.
func Clean(page string, maxChars int) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title, _ = doc.Find("meta[property='og:title']").First().Attr("content")
		title = strings.TrimSpace(title)
	}

	doc.Find(strings.Join(removeSelectors, ", ")).Remove()

	content := richest(doc)
	fragment, err := goquery.OuterHtml(content)
	if err != nil {
		return title, "", fmt.Errorf("render content: %w", err)
	}
	md, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		md = content.Text()
	}

	text = collapse(md)
	if maxChars > 0 {
		text = util.TruncateRunes(text, maxChars)
	}
	return title, text, nil
}

// richest picks the known content container with the most text, else body.
func richest(doc *goquery.Document) *goquery.Selection {
	var (
		best    *goquery.Selection
		bestLen int
	)
	for _, sel := range contentSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if n := len(strings.TrimSpace(s.Text())); n > bestLen {
				best, bestLen = s, n
			}
		})
	}
	if best == nil || bestLen < minPostingChars {
		return doc.Find("body").First()
	}
	return best
}

func collapse(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRunRe.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(blankRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

// LooksLikeJobPosting reports whether text is long enough and mentions at least
// two job-posting keywords.
func LooksLikeJobPosting(text string) bool {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minPostingChars {
		return false
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range postingKeywords {
		if strings.Contains(lower, kw) {
			hits++
			if hits >= minPostingKeywords {
				return true
			}
		}
	}
	return false
}
