package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	// DefaultAPIURL is the public arXiv query endpoint.
	DefaultAPIURL = "https://export.arxiv.org/api/query"

	// DefaultRequestInterval follows the arXiv API guideline of one request every three seconds.
	DefaultRequestInterval = 3 * time.Second

	defaultMaxRetries = 3
)

// ErrSearch is returned when the arXiv API reports an error entry instead of results.
var ErrSearch = errors.New("arxiv search failed")

// StatusError is a non-retryable HTTP status returned by arXiv.
type StatusError struct {
	URL    string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: http %s", e.URL, e.Status)
}

// Entry is one search result: the paper metadata plus where its PDF lives.
type Entry struct {
	ID          string // Versioned ID: "2301.00001v2"
	Title       string
	Authors     []string
	Published   time.Time
	AbstractURL string
	PDFURL      string
}

// Client talks to the arXiv API and PDF hosting. All requests share one
// limiter so searches and downloads together respect the request interval.
type Client struct {
	http       *http.Client
	baseURL    string
	limiter    *rate.Limiter
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// NewClient creates a Client for the API at baseURL, spacing requests by interval.
// An empty baseURL uses DefaultAPIURL; a zero interval disables spacing.
func NewClient(baseURL string, interval time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Client{
		http:       &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: defaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 15 * time.Second
			b.MaxElapsedTime = time.Minute
			return b
		},
	}
}

// Search returns up to maxResults entries for query, newest submissions first.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Entry, error) {
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	resp, err := c.get(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		// arXiv reports malformed queries as a single entry under /api/errors
		if strings.Contains(e.ID, "/api/errors") {
			return nil, fmt.Errorf("%w: %s", ErrSearch, normalizeSpace(e.Summary))
		}
		entry := parseAtomEntry(e)
		if entry.ID == "" {
			continue
		}
		entries = append(entries, entry)
		if len(entries) == maxResults {
			break
		}
	}
	return entries, nil
}

// Download saves the resource at rawURL to dest. The body is written to a
// temporary file in the same directory and renamed once complete.
func (c *Client) Download(ctx context.Context, rawURL, dest string) error {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", dest, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", dest, err)
	}
	return nil
}

// get performs a rate-limited GET, retrying 429, 5xx and network errors with
// exponential backoff. The caller closes the body of the returned response.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	var resp *http.Response

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		r, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}

		switch {
		case r.StatusCode == http.StatusOK:
			resp = r
			return nil
		case r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500:
			r.Body.Close()
			return &StatusError{URL: rawURL, Status: r.Status, Code: r.StatusCode}
		default:
			r.Body.Close()
			return backoff.Permanent(&StatusError{URL: rawURL, Status: r.Status, Code: r.StatusCode})
		}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return resp, nil
}

// Atom feed structures for the arXiv API

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
	Links     []atomLink   `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// parseAtomEntry converts an atom entry to an Entry.
func parseAtomEntry(e atomEntry) Entry {
	// http://arxiv.org/abs/2301.00001v1 -> 2301.00001v1
	id := ""
	if idx := strings.LastIndex(e.ID, "/abs/"); idx >= 0 {
		id = strings.TrimSpace(e.ID[idx+len("/abs/"):])
	}

	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		authors = append(authors, normalizeSpace(a.Name))
	}

	entry := Entry{
		ID:          id,
		Title:       normalizeSpace(e.Title),
		Authors:     authors,
		AbstractURL: strings.TrimSpace(e.ID),
	}
	entry.Published, _ = time.Parse(time.RFC3339, strings.TrimSpace(e.Published))

	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			entry.PDFURL = l.Href
			break
		}
	}
	if entry.PDFURL == "" && id != "" {
		entry.PDFURL = strings.Replace(entry.AbstractURL, "/abs/", "/pdf/", 1)
	}
	return entry
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]`)

// FileName is the local name of an entry's PDF: "<id>.<title>.pdf" with
// every non-word character of the title replaced by an underscore.
func (e Entry) FileName() string {
	return e.ID + "." + nonWord.ReplaceAllString(e.Title, "_") + ".pdf"
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
