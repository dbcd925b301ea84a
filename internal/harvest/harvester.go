// Best-effort page fetch for enriching operator input.
// Failure here is never fatal: callers fall back to the raw text.

package harvest

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"
)

const (
	maxBodyBytes   = 512 * 1024
	maxExcerptLen  = 2000
	defaultTimeout = 10 * time.Second
)

// Result is what could be pulled out of the page.
type Result struct {
	Title    string
	Body     string
	ApplyURL string
}

// Harvester fetches one URL and extracts page title, a body text excerpt,
// and, when detectable, an application link.
type Harvester interface {
	Harvest(ctx context.Context, pageURL string) (*Result, error)
}

type httpHarvester struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPHarvester builds a harvester with a hard per-fetch ceiling.
// Zero timeout means the 10s default.
func NewHTTPHarvester(timeout time.Duration) Harvester {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &httpHarvester{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (h *httpHarvester) Harvest(ctx context.Context, pageURL string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fetch request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; jobdesk-bot/1.0)")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "page fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("page fetch returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse page html")
	}

	result := extract(doc)
	if result.ApplyURL != "" {
		result.ApplyURL = resolveURL(pageURL, result.ApplyURL)
	}
	return result, nil
}

// extract walks the parsed tree once, collecting title, visible text and
// the first link that looks like an application link.
func extract(doc *html.Node) *Result {
	res := &Result{}
	var body strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			case "title":
				if res.Title == "" {
					res.Title = strings.TrimSpace(textContent(n))
				}
				return
			case "a":
				if res.ApplyURL == "" {
					if href := applyHref(n); href != "" {
						res.ApplyURL = href
					}
				}
			}
		case html.TextNode:
			if body.Len() < maxExcerptLen {
				text := strings.TrimSpace(n.Data)
				if text != "" {
					if body.Len() > 0 {
						body.WriteByte(' ')
					}
					body.WriteString(text)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	excerpt := body.String()
	if len(excerpt) > maxExcerptLen {
		excerpt = excerpt[:maxExcerptLen]
	}
	res.Body = excerpt
	return res
}

// applyHref returns the anchor's href when the link text or the href itself
// mentions applying, "" otherwise.
func applyHref(n *html.Node) string {
	var href string
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = strings.TrimSpace(attr.Val)
			break
		}
	}
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}

	label := strings.ToLower(textContent(n))
	if strings.Contains(label, "apply") || strings.Contains(strings.ToLower(href), "apply") {
		return href
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func resolveURL(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
