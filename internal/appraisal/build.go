package appraisal

import (
	"context"
	"fmt"

	"github.com/raine/listing-appraiser/internal/config"
	"github.com/raine/listing-appraiser/internal/images"
	"github.com/raine/listing-appraiser/internal/listing"
	"github.com/raine/listing-appraiser/internal/llm"
	"github.com/rs/zerolog/log"
)

// NewSource creates the page source selected by cfg. The returned func
// releases it.
func NewSource(cfg *config.Config) (listing.Source, func(), error) {
	if cfg.ScrapeSource == config.SourceStatic {
		return listing.NewStaticSource(0), func() {}, nil
	}

	browser, err := listing.NewBrowserSource(listing.BrowserOpts{
		RemoteURL: cfg.ChromeRemoteURL,
		Headless:  cfg.ChromeHeadless,
	})
	if err != nil {
		return nil, nil, err
	}
	return browser, browser.Close, nil
}

// Build wires an Evaluator from cfg. The returned func releases the page
// source.
func Build(ctx context.Context, cfg *config.Config) (*Evaluator, func(), error) {
	assessor, err := llm.NewGeminiAssessor(ctx, llm.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.AssessTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize gemini assessor: %w", err)
	}

	source, closeSource, err := NewSource(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize %s page source: %w", cfg.ScrapeSource, err)
	}

	fetcher := images.NewFetcher(images.NewDownloader().WithTimeout(cfg.ImageTimeout), cfg.ImageWorkers)

	log.Info().
		Str("source", cfg.ScrapeSource).
		Int("imageWorkers", cfg.ImageWorkers).
		Msg("evaluator ready")

	return NewEvaluator(listing.NewScraper(source), fetcher, assessor), closeSource, nil
}
