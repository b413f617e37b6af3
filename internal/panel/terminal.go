package panel

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/raine/listing-appraiser/internal/trust"
)

// TerminalPanel prints a run to a terminal as it progresses.
type TerminalPanel struct {
	mu       sync.Mutex
	w        io.Writer
	previews int

	statusStyle  lipgloss.Style
	previewStyle lipgloss.Style
	boldStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	levelStyles  map[trust.Level]lipgloss.Style
}

// NewTerminalPanel creates a panel writing to w. Colors are only used when w
// is a terminal.
func NewTerminalPanel(w io.Writer) *TerminalPanel {
	r := lipgloss.NewRenderer(w)
	return &TerminalPanel{
		w:            w,
		statusStyle:  r.NewStyle().Foreground(lipgloss.Color("245")),
		previewStyle: r.NewStyle().Foreground(lipgloss.Color("240")),
		boldStyle:    r.NewStyle().Bold(true),
		errorStyle:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		levelStyles: map[trust.Level]lipgloss.Style{
			trust.Danger:  r.NewStyle().Foreground(lipgloss.Color("9")),
			trust.Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
			trust.Good:    r.NewStyle().Foreground(lipgloss.Color("42")),
		},
	}
}

func (t *TerminalPanel) println(s string) {
	fmt.Fprintln(t.w, s)
}

func (t *TerminalPanel) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.previews = 0
}

func (t *TerminalPanel) SetPhase(Phase) {}

func (t *TerminalPanel) SetStatus(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(t.statusStyle.Render(text))
}

func (t *TerminalPanel) ShowAdvisory(a trust.Advisory) {
	t.mu.Lock()
	defer t.mu.Unlock()
	style := t.levelStyles[a.Level]
	headline := style.Bold(true).Render(a.Icon() + " " + a.Headline())
	if a.Inline() {
		t.println(headline + " " + style.Render(a.Detail()))
		return
	}
	t.println(headline)
	t.println(style.Render(a.Detail()))
}

func (t *TerminalPanel) AddPreview(imageURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.previews++
	t.println(t.previewStyle.Render(fmt.Sprintf("🖼  %d. %s", t.previews, imageURL)))
}

func (t *TerminalPanel) ShowResult(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println("")
	t.println(boldRe.ReplaceAllStringFunc(text, func(m string) string {
		return t.boldStyle.Render(boldRe.FindStringSubmatch(m)[1])
	}))
}

func (t *TerminalPanel) ShowError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(t.errorStyle.Render(ErrorText(err)))
}

func (t *TerminalPanel) SetTriggerEnabled(bool) {}
