// Package panel renders the progress and outcome of an evaluation run.
package panel

import (
	"fmt"
	"html"
	"html/template"
	"regexp"

	"github.com/raine/listing-appraiser/internal/trust"
)

// Status lines shown during a run.
const (
	StatusInitializing = "⏳ 初始化中..."
	StatusScraping     = "⏳ 正在搜尋網頁圖片與賣家資訊..."
	StatusAssessing    = "🚀 正在進行行情分析..."
)

// Phase is the stage an evaluation run is in.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseScraping
	PhaseComputingAdvisory
	PhaseFetchingImages
	PhaseCallingService
	PhaseRendering
	PhaseError
)

var phaseNames = map[Phase]string{
	PhaseIdle:              "idle",
	PhaseScraping:          "scraping",
	PhaseComputingAdvisory: "computing_advisory",
	PhaseFetchingImages:    "fetching_images",
	PhaseCallingService:    "calling_service",
	PhaseRendering:         "rendering",
	PhaseError:             "error",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Panel is a surface that shows an evaluation run: a status line, the seller
// advisory, image previews, the result and a trigger control.
type Panel interface {
	// Reset clears previews, result and error, and hides the advisory.
	Reset()
	SetPhase(p Phase)
	SetStatus(text string)
	ShowAdvisory(a trust.Advisory)
	AddPreview(imageURL string)
	// ShowResult shows the assessment text. Only **bold** markers are
	// interpreted.
	ShowResult(text string)
	ShowError(err error)
	SetTriggerEnabled(enabled bool)
}

var boldRe = regexp.MustCompile(`\*\*(.*?)\*\*`)

// RenderMarkup escapes text for HTML and turns **text** into
// <strong>text</strong>. No other markdown is interpreted.
func RenderMarkup(text string) template.HTML {
	escaped := html.EscapeString(text)
	return template.HTML(boldRe.ReplaceAllString(escaped, "<strong>$1</strong>"))
}

// ErrorText formats a failed run for display.
func ErrorText(err error) string {
	return fmt.Sprintf("❌ 錯誤: %s", err)
}
