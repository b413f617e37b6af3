package panel

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/raine/listing-appraiser/internal/trust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func advisory(t *testing.T, rating float64) trust.Advisory {
	a, ok := trust.Evaluate(&rating, nil, 2026)
	require.True(t, ok)
	return a
}

func TestRenderMarkup(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"**A** b", "<strong>A</strong> b"},
		{"- **新品價格**：$900\n- **流動性**：高", "- <strong>新品價格</strong>：$900\n- <strong>流動性</strong>：高"},
		{"**unclosed", "**unclosed"},
		{"**a\nb**", "**a\nb**"},
		{"<script>x</script> **<b>**", "&lt;script&gt;x&lt;/script&gt; <strong>&lt;b&gt;</strong>"},
		{"# heading _not_ *italic*", "# heading _not_ *italic*"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(RenderMarkup(tt.in)))
	}
}

func TestPhase(t *testing.T) {
	assert.Equal(t, "fetching_images", PhaseFetchingImages.String())
	b, err := json.Marshal(map[string]Phase{"phase": PhaseCallingService})
	require.NoError(t, err)
	assert.JSONEq(t, `{"phase":"calling_service"}`, string(b))
}

func TestHTMLPanel_Run(t *testing.T) {
	p := NewHTMLPanel()
	assert.True(t, p.Snapshot().TriggerEnabled)

	p.Reset()
	p.SetTriggerEnabled(false)
	p.SetPhase(PhaseScraping)
	p.SetStatus(StatusScraping)
	p.ShowAdvisory(advisory(t, 90))
	p.AddPreview("https://scontent.fbcdn.net/1.jpg")
	p.AddPreview("https://scontent.fbcdn.net/2.jpg")

	s := p.Snapshot()
	assert.False(t, s.TriggerEnabled)
	assert.Equal(t, PhaseScraping, s.Phase)
	assert.Equal(t, StatusScraping, s.Status)
	require.NotNil(t, s.Advisory)
	assert.Equal(t, "alert-danger", s.Advisory.Class)
	assert.Len(t, s.Previews, 2)

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf, ""))
	page := buf.String()
	assert.Contains(t, page, `http-equiv="refresh"`)
	assert.Contains(t, page, `id="evaluate-btn" type="submit" disabled`)
	assert.Contains(t, page, `class="alert-danger"`)
	assert.Contains(t, page, "<b>警告：評價較低！</b><br>賣家好評率僅 90%。")
	assert.Contains(t, page, `src="https://scontent.fbcdn.net/2.jpg"`)
	assert.Contains(t, page, StatusScraping)

	p.ShowResult("**A** b")
	p.SetTriggerEnabled(true)

	buf.Reset()
	require.NoError(t, p.Render(&buf, "https://www.trademe.co.nz/a/1"))
	page = buf.String()
	assert.Contains(t, page, "<strong>A</strong> b")
	assert.NotContains(t, page, StatusScraping)
	assert.NotContains(t, page, `http-equiv="refresh"`)
	assert.NotContains(t, page, " disabled>")
	assert.Contains(t, page, `value="https://www.trademe.co.nz/a/1"`)
}

func TestHTMLPanel_ResetHidesAdvisory(t *testing.T) {
	p := NewHTMLPanel()
	p.ShowAdvisory(advisory(t, 99))
	p.AddPreview("https://scontent.fbcdn.net/1.jpg")
	p.ShowError(errors.New("boom"))

	p.Reset()
	s := p.Snapshot()
	assert.Nil(t, s.Advisory)
	assert.Empty(t, s.Previews)
	assert.Empty(t, s.Error)

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf, ""))
	assert.NotContains(t, buf.String(), `id="seller-alert"`)
}

func TestHTMLPanel_Error(t *testing.T) {
	p := NewHTMLPanel()
	p.SetStatus(StatusAssessing)
	p.ShowError(errors.New("no response from Gemini"))

	s := p.Snapshot()
	assert.Equal(t, "❌ 錯誤: no response from Gemini", s.Error)
	assert.Empty(t, s.Status)

	var buf bytes.Buffer
	require.NoError(t, p.Render(&buf, ""))
	assert.Contains(t, buf.String(), `<span class="error">❌ 錯誤: no response from Gemini</span>`)
}

func TestHTMLPanel_SnapshotIsCopy(t *testing.T) {
	p := NewHTMLPanel()
	p.AddPreview("a")
	s := p.Snapshot()
	s.Previews[0] = "changed"
	assert.Equal(t, "a", p.Snapshot().Previews[0])
}

func TestTerminalPanel(t *testing.T) {
	var buf bytes.Buffer
	p := NewTerminalPanel(&buf)

	p.Reset()
	p.SetStatus(StatusScraping)
	p.ShowAdvisory(advisory(t, 99.6))
	p.AddPreview("https://scontent.fbcdn.net/1.jpg")
	p.ShowResult("- **最終決策**：買")
	p.ShowError(errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, StatusScraping)
	assert.Contains(t, out, "✅ 賣家信用良好 (99.6%)")
	assert.Contains(t, out, "1. https://scontent.fbcdn.net/1.jpg")
	assert.Contains(t, out, "最終決策")
	assert.False(t, strings.Contains(out, "**"))
	assert.Contains(t, out, "❌ 錯誤: boom")
}

func TestTee(t *testing.T) {
	a, b := NewHTMLPanel(), NewHTMLPanel()
	p := Tee(a, b)

	p.SetTriggerEnabled(false)
	p.AddPreview("x")
	p.ShowResult("**A**")

	for _, hp := range []*HTMLPanel{a, b} {
		s := hp.Snapshot()
		assert.False(t, s.TriggerEnabled)
		assert.Equal(t, []string{"x"}, s.Previews)
		assert.Equal(t, "<strong>A</strong>", string(s.HTML))
	}
}
