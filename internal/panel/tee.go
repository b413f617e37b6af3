package panel

import "github.com/raine/listing-appraiser/internal/trust"

type tee []Panel

// Tee returns a Panel that forwards every update to all of panels in order.
func Tee(panels ...Panel) Panel {
	return tee(panels)
}

func (t tee) Reset() {
	for _, p := range t {
		p.Reset()
	}
}

func (t tee) SetPhase(phase Phase) {
	for _, p := range t {
		p.SetPhase(phase)
	}
}

func (t tee) SetStatus(text string) {
	for _, p := range t {
		p.SetStatus(text)
	}
}

func (t tee) ShowAdvisory(a trust.Advisory) {
	for _, p := range t {
		p.ShowAdvisory(a)
	}
}

func (t tee) AddPreview(imageURL string) {
	for _, p := range t {
		p.AddPreview(imageURL)
	}
}

func (t tee) ShowResult(text string) {
	for _, p := range t {
		p.ShowResult(text)
	}
}

func (t tee) ShowError(err error) {
	for _, p := range t {
		p.ShowError(err)
	}
}

func (t tee) SetTriggerEnabled(enabled bool) {
	for _, p := range t {
		p.SetTriggerEnabled(enabled)
	}
}
