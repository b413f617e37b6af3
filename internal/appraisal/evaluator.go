// Package appraisal runs the evaluation pipeline for one listing page:
// scrape, seller advisory, images, assessment and rendering.
package appraisal

import (
	"context"
	"fmt"
	"time"

	"github.com/raine/listing-appraiser/internal/images"
	"github.com/raine/listing-appraiser/internal/listing"
	"github.com/raine/listing-appraiser/internal/llm"
	"github.com/raine/listing-appraiser/internal/panel"
	"github.com/raine/listing-appraiser/internal/trust"
	"github.com/rs/zerolog/log"
)

// Scraper reads a listing from a page.
type Scraper interface {
	Scrape(ctx context.Context, pageURL string) (*listing.Listing, error)
}

// ImageFetcher downloads and encodes listing images, calling preview for
// each URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, urls []string, preview images.PreviewFunc) []images.EncodedImage
}

// Report is the outcome of a successful run.
type Report struct {
	Listing    *listing.Listing
	Advisory   *trust.Advisory
	ImageCount int
	Result     string
	Usage      llm.Usage
}

// Evaluator wires the pipeline stages together.
type Evaluator struct {
	scraper  Scraper
	fetcher  ImageFetcher
	assessor llm.Assessor
	now      func() time.Time
}

// NewEvaluator creates an Evaluator using the wall clock.
func NewEvaluator(scraper Scraper, fetcher ImageFetcher, assessor llm.Assessor) *Evaluator {
	return &Evaluator{
		scraper:  scraper,
		fetcher:  fetcher,
		assessor: assessor,
		now:      time.Now,
	}
}

// WithClock sets the clock used for the new-account check.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// Run evaluates the listing at pageURL and reports progress to p. An empty
// pageURL evaluates the page open in the browser. Failures are shown on p
// and returned; whatever was rendered before the failure stays. The trigger
// is re-enabled however the run ends.
func (e *Evaluator) Run(ctx context.Context, pageURL string, p panel.Panel) (report *Report, err error) {
	p.Reset()
	p.SetTriggerEnabled(false)
	p.SetPhase(panel.PhaseScraping)
	p.SetStatus(panel.StatusInitializing)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluation panicked: %v", r)
		}
		if err != nil {
			log.Error().Err(err).Str("url", pageURL).Msg("evaluation failed")
			p.SetPhase(panel.PhaseError)
			p.ShowError(err)
			report = nil
		}
		p.SetPhase(panel.PhaseIdle)
		p.SetTriggerEnabled(true)
	}()

	p.SetStatus(panel.StatusScraping)
	l, err := e.scraper.Scrape(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	report = &Report{Listing: l}

	p.SetPhase(panel.PhaseComputingAdvisory)
	if a, ok := trust.Evaluate(l.SellerRating, l.SellerJoinYear, e.now().Year()); ok {
		report.Advisory = &a
		p.ShowAdvisory(a)
	}

	p.SetPhase(panel.PhaseFetchingImages)
	encoded := e.fetcher.Fetch(ctx, l.ImageURLs, p.AddPreview)
	report.ImageCount = len(encoded)

	p.SetPhase(panel.PhaseCallingService)
	p.SetStatus(panel.StatusAssessing)
	assessment, err := e.assessor.Assess(ctx, &llm.Request{
		Title:  l.Title,
		Price:  l.Price,
		Body:   l.Body,
		Images: encoded,
	})
	if err != nil {
		return nil, fmt.Errorf("assessment failed: %w", err)
	}
	if assessment == nil {
		return nil, llm.ErrEmptyResponse
	}

	p.SetPhase(panel.PhaseRendering)
	p.ShowResult(assessment.Text)
	report.Result = assessment.Text
	report.Usage = assessment.Usage

	log.Info().
		Str("url", l.URL).
		Str("title", l.Title).
		Str("price", l.Price).
		Int("images", report.ImageCount).
		Msg("evaluation done")

	return report, nil
}
