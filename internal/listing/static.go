package listing

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	staticUserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"
	defaultStaticTimeout = 30 * time.Second
)

// StaticSource fetches pages over plain HTTP and reads their HTML without
// running scripts. Pages that render their content client-side yield little
// text; use BrowserSource for those.
type StaticSource struct {
	httpClient *resty.Client
}

// NewStaticSource creates an HTTP page source. A zero timeout uses the default.
func NewStaticSource(timeout time.Duration) *StaticSource {
	if timeout == 0 {
		timeout = defaultStaticTimeout
	}
	return &StaticSource{
		httpClient: resty.New().
			SetDebug(false).
			SetTimeout(timeout).
			SetHeaders(map[string]string{
				"Accept":          "text/html,application/xhtml+xml",
				"Accept-Language": "en-NZ,en;q=0.9,zh-TW;q=0.8",
				"User-Agent":      staticUserAgent,
			}),
	}
}

// Document fetches pageURL and extracts its document surface.
func (s *StaticSource) Document(ctx context.Context, pageURL string) (*Document, error) {
	if pageURL == "" {
		return nil, fmt.Errorf("%w: a page URL is required for static fetching", ErrNoBrowserTab)
	}
	base, err := url.Parse(pageURL)
	if err != nil || !isHTTPURL(pageURL) {
		return nil, fmt.Errorf("invalid page URL: %s", pageURL)
	}

	res, err := handleError(s.httpClient.R().SetContext(ctx).Get(pageURL))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}

	doc, err := ParseHTML(res.Body(), base)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("url", pageURL).Int("images", len(doc.Images)).Msg("fetched static page")
	return doc, nil
}

// handleError is a generic error handler for failing response (>399 status
// code). Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}
	return res, nil
}

// ParseHTML builds a Document from raw HTML. Image sources are resolved
// against base.
func ParseHTML(body []byte, base *url.URL) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	doc := &Document{}
	var text strings.Builder
	var headingFound bool

	var walk func(n *html.Node, inBody bool)
	walk = func(n *html.Node, inBody bool) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			case atom.Head:
				doc.Title = findTitle(n)
				return
			case atom.Title:
				if doc.Title == "" {
					doc.Title = strings.TrimSpace(nodeText(n))
				}
				return
			case atom.Body:
				inBody = true
			case atom.H1:
				if !headingFound {
					doc.Heading = collapseSpace(nodeText(n))
					headingFound = true
				}
			case atom.Img:
				if src := resolveURL(base, attr(n, "src")); src != "" {
					doc.Images = append(doc.Images, src)
				}
			case atom.Br:
				text.WriteString("\n")
			}
		}

		if n.Type == html.TextNode && inBody {
			text.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}

		if n.Type == html.ElementNode && inBody && isBlock(n.DataAtom) {
			text.WriteString("\n")
		}
	}
	walk(root, false)

	doc.Text = normalizeLines(text.String())
	return doc, nil
}

// normalizeLines collapses whitespace within lines and drops empty lines,
// roughly how a browser lays out innerText.
func normalizeLines(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = collapseSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func findTitle(head *html.Node) string {
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Title {
			return strings.TrimSpace(nodeText(c))
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.Address, atom.Article, atom.Aside, atom.Blockquote, atom.Dd, atom.Div,
		atom.Dl, atom.Dt, atom.Fieldset, atom.Figcaption, atom.Figure, atom.Footer,
		atom.Form, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Header,
		atom.Hr, atom.Li, atom.Main, atom.Nav, atom.Ol, atom.P, atom.Pre, atom.Section,
		atom.Table, atom.Tr, atom.Ul:
		return true
	}
	return false
}
