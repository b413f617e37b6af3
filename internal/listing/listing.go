package listing

import (
	"context"
	"errors"
	"fmt"
)

const (
	// MaxImages is the maximum number of image URLs kept per listing.
	MaxImages = 8
	// MaxBodyExcerpt is the maximum number of characters kept from the page text.
	MaxBodyExcerpt = 1000
	// UnknownPrice is used when no price is found on the page.
	UnknownPrice = "Unknown"
)

// DefaultImageDomains are the CDN host substrings whose images are kept.
// Facebook Marketplace serves photos from fbcdn, Trade Me from trademe.
var DefaultImageDomains = []string{"fbcdn", "trademe"}

// ErrNoBrowserTab is returned when attaching to a running browser finds no page to read.
var ErrNoBrowserTab = errors.New("no open browser tab found")

// Document is the raw page surface a scraper reads.
type Document struct {
	Text    string   `json:"text"`    // Visible page text (innerText of body)
	Heading string   `json:"heading"` // Text of the first h1, empty if none
	Title   string   `json:"title"`   // Document title
	Images  []string `json:"images"`  // Absolute img src values in DOM order
}

// Listing contains the information scraped from a single listing page.
type Listing struct {
	URL            string   `json:"url,omitempty"`
	Title          string   `json:"title"`
	Price          string   `json:"price"`
	Body           string   `json:"body"`
	ImageURLs      []string `json:"imageUrls"`
	SellerRating   *float64 `json:"sellerRating,omitempty"`   // Positive feedback percentage
	SellerJoinYear *int     `json:"sellerJoinYear,omitempty"` // Year the seller joined
}

// HasSellerSignals reports whether any seller trust signal was found.
func (l *Listing) HasSellerSignals() bool {
	return l.SellerRating != nil || l.SellerJoinYear != nil
}

// Source can read a listing page as a Document.
// An empty pageURL means the page currently open in the browser, for sources
// that support it.
type Source interface {
	Document(ctx context.Context, pageURL string) (*Document, error)
}

// Scraper turns page documents into listings.
type Scraper struct {
	source       Source
	imageDomains []string
}

// NewScraper creates a scraper reading pages from source. If no image domains
// are given, DefaultImageDomains is used.
func NewScraper(source Source, imageDomains ...string) *Scraper {
	if len(imageDomains) == 0 {
		imageDomains = DefaultImageDomains
	}
	return &Scraper{source: source, imageDomains: imageDomains}
}

// Scrape reads the page and extracts the listing from it.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (*Listing, error) {
	doc, err := s.source.Document(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	l := FromDocument(doc, s.imageDomains)
	l.URL = pageURL
	return l, nil
}
