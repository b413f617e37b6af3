package panel

import (
	"embed"
	"html/template"
	"io"
	"slices"
	"sync"

	"github.com/raine/listing-appraiser/internal/trust"
)

//go:embed templates/panel.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/panel.html"))

// AdvisoryView is the advisory banner as shown in the page.
type AdvisoryView struct {
	Level    string `json:"level"`
	Class    string `json:"class"`
	Icon     string `json:"icon"`
	Headline string `json:"headline"`
	Detail   string `json:"detail"`
	Inline   bool   `json:"inline"`
}

func newAdvisoryView(a trust.Advisory) *AdvisoryView {
	return &AdvisoryView{
		Level:    a.Level.String(),
		Class:    a.Class(),
		Icon:     a.Icon(),
		Headline: a.Headline(),
		Detail:   a.Detail(),
		Inline:   a.Inline(),
	}
}

// Snapshot is the state of every region of an HTMLPanel.
type Snapshot struct {
	Phase          Phase         `json:"phase"`
	Status         string        `json:"status,omitempty"`
	Advisory       *AdvisoryView `json:"advisory,omitempty"`
	Previews       []string      `json:"previews"`
	HTML           template.HTML `json:"html"`
	Error          string        `json:"error,omitempty"`
	TriggerEnabled bool          `json:"triggerEnabled"`
}

// HTMLPanel keeps the panel regions in memory and renders them as the side
// panel page. It is safe for concurrent use.
type HTMLPanel struct {
	mu    sync.Mutex
	state Snapshot
}

// NewHTMLPanel returns an idle panel with the trigger enabled.
func NewHTMLPanel() *HTMLPanel {
	return &HTMLPanel{state: Snapshot{Previews: []string{}, TriggerEnabled: true}}
}

func (p *HTMLPanel) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Advisory = nil
	p.state.Previews = []string{}
	p.state.HTML = ""
	p.state.Error = ""
	p.state.Status = ""
}

func (p *HTMLPanel) SetPhase(phase Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Phase = phase
}

func (p *HTMLPanel) SetStatus(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Status = text
}

func (p *HTMLPanel) ShowAdvisory(a trust.Advisory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Advisory = newAdvisoryView(a)
}

func (p *HTMLPanel) AddPreview(imageURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Previews = append(p.state.Previews, imageURL)
}

// ShowResult replaces the status line with the rendered result, the same
// region the status lived in.
func (p *HTMLPanel) ShowResult(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Status = ""
	p.state.HTML = RenderMarkup(text)
}

func (p *HTMLPanel) ShowError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Status = ""
	p.state.HTML = ""
	p.state.Error = ErrorText(err)
}

func (p *HTMLPanel) SetTriggerEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.TriggerEnabled = enabled
}

// Snapshot returns a copy of the current regions.
func (p *HTMLPanel) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	s.Previews = slices.Clone(p.state.Previews)
	if p.state.Advisory != nil {
		a := *p.state.Advisory
		s.Advisory = &a
	}
	return s
}

type pageData struct {
	Snapshot
	URL string
}

// Render writes the side panel page. pageURL prefills the URL field.
func (p *HTMLPanel) Render(w io.Writer, pageURL string) error {
	return pageTemplate.Execute(w, pageData{Snapshot: p.Snapshot(), URL: pageURL})
}
