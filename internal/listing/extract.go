package listing

import (
	"regexp"
	"strconv"
	"strings"
)

// The seller signal patterns only match the English and Traditional Chinese
// wording used by Facebook Marketplace and Trade Me. A page that words these
// differently yields no signal, which means "unknown", not "trustworthy".
var (
	priceRe    = regexp.MustCompile(`\$[0-9,.]+`)
	feedbackRe = regexp.MustCompile(`(?i)(\d+(\.\d+)?)%\s*(positive feedback|正面評價)`)
	joinedRe   = regexp.MustCompile(`(?i)(Joined|加入於)\s*(\d{4})`)
)

// FromDocument extracts a listing from a page document. Missing fields fall
// back to neutral defaults; it never fails.
func FromDocument(doc *Document, imageDomains []string) *Listing {
	title := strings.TrimSpace(doc.Heading)
	if title == "" {
		title = doc.Title
	}

	return &Listing{
		Title:          title,
		Price:          ExtractPrice(doc.Text),
		Body:           truncateRunes(doc.Text, MaxBodyExcerpt),
		ImageURLs:      FilterImageURLs(doc.Images, imageDomains, MaxImages),
		SellerRating:   ExtractSellerRating(doc.Text),
		SellerJoinYear: ExtractJoinYear(doc.Text),
	}
}

// ExtractPrice returns the first dollar amount in text, or UnknownPrice.
func ExtractPrice(text string) string {
	if m := priceRe.FindString(text); m != "" {
		return m
	}
	return UnknownPrice
}

// ExtractSellerRating returns the positive feedback percentage, e.g. 99.6 for
// "99.6% positive feedback", or nil if the page has none.
func ExtractSellerRating(text string) *float64 {
	m := feedbackRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	rating, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &rating
}

// ExtractJoinYear returns the year following "Joined" / "加入於", or nil.
func ExtractJoinYear(text string) *int {
	m := joinedRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	return &year
}

// FilterImageURLs keeps the first limit unique URLs that contain one of the
// domain substrings, preserving their order.
func FilterImageURLs(urls []string, domains []string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	seen := make(map[string]bool)
	result := make([]string, 0, limit)
	for _, u := range urls {
		if u == "" || seen[u] || !containsAny(u, domains) {
			continue
		}
		seen[u] = true
		result = append(result, u)
		if len(result) == limit {
			break
		}
	}
	return result
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
