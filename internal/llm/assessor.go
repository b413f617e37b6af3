// Package llm asks a multimodal model for a resale assessment of a listing.
package llm

import (
	"context"
	"errors"

	"github.com/raine/listing-appraiser/internal/images"
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("no response from Gemini")

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Request is what the assessment is based on.
type Request struct {
	Title  string
	Price  string
	Body   string // Excerpt of the seller's page text
	Images []images.EncodedImage
}

// Assessment is the model's markdown-ish answer with the call's usage.
type Assessment struct {
	Text  string
	Usage Usage
}

// Assessor produces a resale assessment for a listing.
type Assessor interface {
	Assess(ctx context.Context, req *Request) (*Assessment, error)
}
