package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/raine/listing-appraiser/internal/appraisal"
	"github.com/raine/listing-appraiser/internal/images"
	"github.com/raine/listing-appraiser/internal/listing"
	"github.com/raine/listing-appraiser/internal/llm"
	"github.com/raine/listing-appraiser/internal/panel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScraper struct{}

func (stubScraper) Scrape(ctx context.Context, pageURL string) (*listing.Listing, error) {
	rating := 80.0
	return &listing.Listing{
		URL:          pageURL,
		Title:        "Desk",
		Price:        "$80",
		ImageURLs:    []string{"https://trademe.tmcdn.co.nz/1.jpg"},
		SellerRating: &rating,
	}, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, urls []string, preview images.PreviewFunc) []images.EncodedImage {
	for _, u := range urls {
		preview(u)
	}
	return nil
}

// blockingAssessor waits for release before answering.
type blockingAssessor struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingAssessor) Assess(ctx context.Context, req *llm.Request) (*llm.Assessment, error) {
	if b.started != nil {
		close(b.started)
		<-b.release
	}
	return &llm.Assessment{Text: "**值得買** 價格合理"}, nil
}

func newTestServer(assessor llm.Assessor) (*Server, *panel.HTMLPanel) {
	p := panel.NewHTMLPanel()
	evaluator := appraisal.NewEvaluator(stubScraper{}, stubFetcher{}, assessor)
	return New(appraisal.NewSession(evaluator, p), p), p
}

func TestServer_Page(t *testing.T) {
	s, _ := newTestServer(&blockingAssessor{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", res.Header.Get("Content-Type"))
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))
}

func TestServer_EvaluateForm(t *testing.T) {
	s, p := newTestServer(&blockingAssessor{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	res, err := http.PostForm(ts.URL+"/evaluate", url.Values{"url": {"https://www.trademe.co.nz/a/1"}})
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "<strong>值得買</strong> 價格合理")
	assert.Contains(t, string(body), `class="alert-danger"`)
	assert.Contains(t, string(body), `value="https://www.trademe.co.nz/a/1"`)
	assert.True(t, p.Snapshot().TriggerEnabled)
}

func TestServer_EvaluateAPI(t *testing.T) {
	s, _ := newTestServer(&blockingAssessor{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	res, err := http.Post(ts.URL+"/api/evaluate", "application/json", strings.NewReader(`{"url":"https://www.trademe.co.nz/a/1"}`))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var snap struct {
		Phase    string   `json:"phase"`
		HTML     string   `json:"html"`
		Previews []string `json:"previews"`
		Advisory *struct {
			Class string `json:"class"`
		} `json:"advisory"`
		TriggerEnabled bool `json:"triggerEnabled"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&snap))

	assert.Equal(t, "idle", snap.Phase)
	assert.Equal(t, "<strong>值得買</strong> 價格合理", snap.HTML)
	assert.Equal(t, []string{"https://trademe.tmcdn.co.nz/1.jpg"}, snap.Previews)
	require.NotNil(t, snap.Advisory)
	assert.Equal(t, "alert-danger", snap.Advisory.Class)
	assert.True(t, snap.TriggerEnabled)
}

func TestServer_EvaluateAPI_BadBody(t *testing.T) {
	s, _ := newTestServer(&blockingAssessor{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ConflictWhileRunning(t *testing.T) {
	assessor := &blockingAssessor{started: make(chan struct{}), release: make(chan struct{})}
	s, _ := newTestServer(assessor)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	done := make(chan int, 1)
	go func() {
		res, err := http.Post(ts.URL+"/api/evaluate", "application/json", strings.NewReader(`{}`))
		if err != nil {
			done <- 0
			return
		}
		res.Body.Close()
		done <- res.StatusCode
	}()
	<-assessor.started

	res, err := http.Post(ts.URL+"/api/evaluate", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	res, err = http.PostForm(ts.URL+"/evaluate", url.Values{})
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	res, err = http.Get(ts.URL + "/api/panel")
	require.NoError(t, err)
	var snap struct {
		TriggerEnabled bool `json:"triggerEnabled"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&snap))
	res.Body.Close()
	assert.False(t, snap.TriggerEnabled)

	close(assessor.release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(&blockingAssessor{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"message":"ok"}`, rec.Body.String())
}

func TestServer_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(&blockingAssessor{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/evaluate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_CORS(t *testing.T) {
	preflight := func(h http.Handler, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/evaluate", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("no origins configured sends no CORS headers", func(t *testing.T) {
		s, _ := newTestServer(&blockingAssessor{})
		h := s.Handler()

		rec := preflight(h, "https://evil.example")
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

		req := httptest.NewRequest(http.MethodGet, "/api/panel", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("configured origin is allowed", func(t *testing.T) {
		p := panel.NewHTMLPanel()
		evaluator := appraisal.NewEvaluator(stubScraper{}, stubFetcher{}, &blockingAssessor{})
		h := New(appraisal.NewSession(evaluator, p), p, "https://www.trademe.co.nz").Handler()

		rec := preflight(h, "https://www.trademe.co.nz")
		assert.Equal(t, "https://www.trademe.co.nz", rec.Header().Get("Access-Control-Allow-Origin"))

		rec = preflight(h, "https://evil.example")
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
