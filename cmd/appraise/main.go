package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raine/listing-appraiser/internal/appraisal"
	"github.com/raine/listing-appraiser/internal/config"
	"github.com/raine/listing-appraiser/internal/listing"
	"github.com/raine/listing-appraiser/internal/panel"
	"github.com/raine/listing-appraiser/internal/server"
	"github.com/raine/listing-appraiser/internal/trust"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	config.LoadEnvFile()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("appraise failed")
	}
}

func newApp() *cli.App {
	sourceFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Value:   envOr("SCRAPE_SOURCE", config.SourceBrowser),
				Usage:   "Page source: browser or static.",
			},
			&cli.StringFlag{
				Name:    "chrome-remote-url",
				Aliases: []string{"remote"},
				Value:   os.Getenv("CHROME_REMOTE_URL"),
				Usage:   "DevTools websocket URL of a running Chrome.",
			},
			&cli.BoolFlag{
				Name:  "headful",
				Usage: "Show the launched Chrome window.",
			},
		}
	}

	return &cli.App{
		Name:  "appraise",
		Usage: "Appraise second-hand listings from the command line.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging."},
		},
		Before: func(c *cli.Context) error {
			level := zerolog.InfoLevel
			if c.Bool("debug") {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Evaluate one listing and print the result.",
				ArgsUsage: "[url]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "url",
						Aliases: []string{"u"},
						Usage:   "Listing URL. Empty evaluates the tab open in the remote browser.",
					},
					&cli.StringFlag{
						Name:  "html",
						Usage: "Also write the rendered panel to this file.",
					},
				}, sourceFlags()...),
				Action: runEvaluate,
			},
			{
				Name:  "serve",
				Usage: "Run the HTTP side panel.",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Aliases: []string{"a"},
						Value:   envOr("PANEL_ADDR", "127.0.0.1:8080"),
						Usage:   "Address to listen on.",
					},
					&cli.StringSliceFlag{
						Name:  "allow-origin",
						Usage: "Origins allowed to call the API. Defaults to PANEL_ALLOWED_ORIGINS; none allows no cross-origin calls.",
					},
				}, sourceFlags()...),
				Action: runServe,
			},
			{
				Name:      "scrape",
				Usage:     "Print the scraped listing and seller advisory as JSON.",
				ArgsUsage: "[url]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Listing URL."},
				}, sourceFlags()...),
				Action: func(c *cli.Context) error {
					return runScrape(c, os.Stdout)
				},
			},
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func pageURL(c *cli.Context) string {
	if u := c.String("url"); u != "" {
		return u
	}
	return c.Args().First()
}

// loadConfig reads the environment and applies the source flags on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return applySourceFlags(c, cfg)
}

func applySourceFlags(c *cli.Context, cfg *config.Config) (*config.Config, error) {
	cfg.ScrapeSource = c.String("source")
	if cfg.ScrapeSource != config.SourceBrowser && cfg.ScrapeSource != config.SourceStatic {
		return nil, fmt.Errorf("--source must be %q or %q", config.SourceBrowser, config.SourceStatic)
	}
	cfg.ChromeRemoteURL = c.String("chrome-remote-url")
	if c.Bool("headful") {
		cfg.ChromeHeadless = false
	}
	return cfg, nil
}

func runEvaluate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	evaluator, release, err := appraisal.Build(c.Context, cfg)
	if err != nil {
		return err
	}
	defer release()

	htmlPanel := panel.NewHTMLPanel()
	p := panel.Tee(panel.NewTerminalPanel(os.Stdout), htmlPanel)

	target := pageURL(c)
	report, runErr := evaluator.Run(c.Context, target, p)

	if path := c.String("html"); path != "" {
		if err := writePanel(htmlPanel, path, target); err != nil {
			return err
		}
		log.Info().Str("file", path).Msg("wrote panel")
	}
	if runErr != nil {
		return runErr
	}

	log.Info().
		Int("images", report.ImageCount).
		Int64("inputTokens", report.Usage.InputTokens).
		Int64("outputTokens", report.Usage.OutputTokens).
		Float64("costUSD", report.Usage.CostUSD).
		Msg("evaluation complete")
	return nil
}

func writePanel(p *panel.HTMLPanel, path, pageURL string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return p.Render(f, pageURL)
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	evaluator, release, err := appraisal.Build(c.Context, cfg)
	if err != nil {
		return err
	}
	defer release()

	htmlPanel := panel.NewHTMLPanel()
	origins := c.StringSlice("allow-origin")
	if len(origins) == 0 {
		origins = cfg.PanelAllowedOrigins
	}
	srv := server.New(appraisal.NewSession(evaluator, htmlPanel), htmlPanel, origins...)
	return srv.ListenAndServe(c.Context, c.String("addr"))
}

type scrapeOutput struct {
	Listing  *listing.Listing `json:"listing"`
	Advisory *advisoryOutput  `json:"advisory,omitempty"`
}

type advisoryOutput struct {
	Level    string `json:"level"`
	Headline string `json:"headline"`
	Detail   string `json:"detail"`
}

func runScrape(c *cli.Context, w io.Writer) error {
	// Scraping needs no Gemini key, so the config comes from flags only
	headless, err := config.ChromeHeadless()
	if err != nil {
		return err
	}
	cfg, err := applySourceFlags(c, &config.Config{ChromeHeadless: headless})
	if err != nil {
		return err
	}

	source, release, err := appraisal.NewSource(cfg)
	if err != nil {
		return err
	}
	defer release()

	l, err := listing.NewScraper(source).Scrape(c.Context, pageURL(c))
	if err != nil {
		return err
	}

	out := scrapeOutput{Listing: l}
	if a, ok := trust.Evaluate(l.SellerRating, l.SellerJoinYear, time.Now().Year()); ok {
		out.Advisory = &advisoryOutput{Level: a.Level.String(), Headline: a.Headline(), Detail: a.Detail()}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}
