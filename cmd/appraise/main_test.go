package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const page = `<html><head><title>Road bike | Trade Me</title></head><body>
<h1>Road bike</h1>
<div>Price $450</div>
<div>92% positive feedback</div>
<img src="https://trademe.tmcdn.co.nz/photoserver/1.jpg">
</body></html>`

func TestScrapeCommand(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer ts.Close()

	var out bytes.Buffer
	app := newApp()
	for _, cmd := range app.Commands {
		if cmd.Name == "scrape" {
			cmd.Action = func(c *cli.Context) error { return runScrape(c, &out) }
		}
	}

	err := app.RunContext(context.Background(), []string{"appraise", "scrape", "--source", "static", ts.URL + "/a/1"})
	require.NoError(t, err)

	var got struct {
		Listing struct {
			Title     string   `json:"title"`
			Price     string   `json:"price"`
			ImageURLs []string `json:"imageUrls"`
		} `json:"listing"`
		Advisory struct {
			Level  string `json:"level"`
			Detail string `json:"detail"`
		} `json:"advisory"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))

	assert.Equal(t, "Road bike", got.Listing.Title)
	assert.Equal(t, "$450", got.Listing.Price)
	assert.Equal(t, []string{"https://trademe.tmcdn.co.nz/photoserver/1.jpg"}, got.Listing.ImageURLs)
	assert.Equal(t, "danger", got.Advisory.Level)
	assert.Equal(t, "賣家好評率僅 92%。", got.Advisory.Detail)
}

func TestScrapeCommand_BadSource(t *testing.T) {
	err := newApp().RunContext(context.Background(), []string{"appraise", "scrape", "--source", "curl", "https://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--source must be")
}

func TestRunCommand_RequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("GEMINI_API_KEY")

	err := newApp().RunContext(context.Background(), []string{"appraise", "run", "--source", "static", "https://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY is not set")
}

func TestScrapeCommand_ReadsHeadlessSetting(t *testing.T) {
	t.Setenv("CHROME_HEADLESS", "maybe")

	err := newApp().RunContext(context.Background(), []string{"appraise", "scrape", "--source", "static", "https://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHROME_HEADLESS must be true or false")
}
