package appraisal

import (
	"context"
	"errors"
	"sync"

	"github.com/raine/listing-appraiser/internal/panel"
)

// ErrRunInProgress is returned when an evaluation is requested while one is
// still running.
var ErrRunInProgress = errors.New("an evaluation is already running")

// Session guards an Evaluator so that only one run is in flight at a time,
// like a button that is disabled while it works.
type Session struct {
	evaluator *Evaluator
	panel     panel.Panel

	mu      sync.Mutex
	running bool
	lastURL string
}

// NewSession creates a Session rendering to p.
func NewSession(evaluator *Evaluator, p panel.Panel) *Session {
	return &Session{evaluator: evaluator, panel: p}
}

// Begin claims the session for a run of pageURL and returns the func that
// performs it. While another run is in flight it returns ErrRunInProgress
// without touching the panel. The returned func must be called exactly
// once; it releases the session when the run ends.
func (s *Session) Begin(pageURL string) (func(ctx context.Context) (*Report, error), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, ErrRunInProgress
	}
	s.running = true
	s.lastURL = pageURL

	return func(ctx context.Context) (*Report, error) {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()
		return s.evaluator.Run(ctx, pageURL, s.panel)
	}, nil
}

// Evaluate runs an evaluation of pageURL. While another run is in flight it
// returns ErrRunInProgress without touching the panel.
func (s *Session) Evaluate(ctx context.Context, pageURL string) (*Report, error) {
	run, err := s.Begin(pageURL)
	if err != nil {
		return nil, err
	}
	return run(ctx)
}

// Running reports whether a run is in flight.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastURL returns the page URL of the most recent run.
func (s *Session) LastURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastURL
}

// Panel returns the panel runs are rendered to.
func (s *Session) Panel() panel.Panel {
	return s.panel
}
