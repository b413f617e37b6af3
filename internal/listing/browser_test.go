package listing

import (
	"context"
	"errors"
	"testing"

	"github.com/chromedp/cdproto/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstPageTarget(t *testing.T) {
	targets := []*target.Info{
		{Type: "service_worker", URL: "https://www.facebook.com/sw.js"},
		{Type: "page", URL: "chrome://newtab/"},
		{Type: "page", URL: "https://www.facebook.com/marketplace/item/123", Title: "Marketplace"},
		{Type: "page", URL: "https://www.trademe.co.nz/a/listing/1"},
	}

	got := firstPageTarget(targets)
	require.NotNil(t, got)
	assert.Equal(t, "https://www.facebook.com/marketplace/item/123", got.URL)

	assert.Nil(t, firstPageTarget(targets[:2]))
	assert.Nil(t, firstPageTarget(nil))
}

func TestBrowserSource_ActiveTabRequiresRemote(t *testing.T) {
	b := &BrowserSource{}
	_, err := b.activeTabURL()
	assert.True(t, errors.Is(err, ErrNoBrowserTab))

	_, err = b.Document(context.Background(), "")
	assert.True(t, errors.Is(err, ErrNoBrowserTab))
}
