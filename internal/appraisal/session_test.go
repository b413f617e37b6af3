package appraisal

import (
	"context"
	"testing"

	"github.com/raine/listing-appraiser/internal/panel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_RejectsConcurrentRun(t *testing.T) {
	assessor := &fakeAssessor{
		text:    "done",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	p := panel.NewHTMLPanel()
	s := NewSession(NewEvaluator(&fakeScraper{listing: testListing()}, &fakeFetcher{}, assessor), p)

	done := make(chan error, 1)
	go func() {
		_, err := s.Evaluate(context.Background(), "https://www.trademe.co.nz/a/1")
		done <- err
	}()

	<-assessor.started
	assert.True(t, s.Running())
	before := p.Snapshot()

	_, err := s.Evaluate(context.Background(), "https://www.trademe.co.nz/a/2")
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Equal(t, before, p.Snapshot(), "rejected run must not touch the panel")
	assert.Equal(t, "https://www.trademe.co.nz/a/1", s.LastURL())

	close(assessor.release)
	require.NoError(t, <-done)
	assert.False(t, s.Running())

	after := p.Snapshot()
	assert.Equal(t, "done", string(after.HTML))
	assert.True(t, after.TriggerEnabled)
}

func TestSession_RunsAgainAfterFailure(t *testing.T) {
	scraper := &fakeScraper{err: assert.AnError}
	s := NewSession(NewEvaluator(scraper, &fakeFetcher{}, &fakeAssessor{text: "ok"}), panel.NewHTMLPanel())

	_, err := s.Evaluate(context.Background(), "a")
	require.Error(t, err)

	scraper.err = nil
	scraper.listing = testListing()
	_, err = s.Evaluate(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, scraper.urls)
}

func TestSession_BeginClaimsBeforeRunning(t *testing.T) {
	p := panel.NewHTMLPanel()
	s := NewSession(NewEvaluator(&fakeScraper{listing: testListing()}, &fakeFetcher{}, &fakeAssessor{text: "done"}), p)

	run, err := s.Begin("https://www.trademe.co.nz/a/1")
	require.NoError(t, err)
	assert.True(t, s.Running(), "claimed before the run starts")

	_, err = s.Begin("https://www.trademe.co.nz/a/2")
	assert.ErrorIs(t, err, ErrRunInProgress)

	_, err = run(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Running())

	run, err = s.Begin("https://www.trademe.co.nz/a/3")
	require.NoError(t, err)
	_, err = run(context.Background())
	assert.NoError(t, err)
}
