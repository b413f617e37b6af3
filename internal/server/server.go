// Package server serves the HTML side panel and a small JSON API over the
// evaluation session.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/raine/listing-appraiser/internal/appraisal"
	"github.com/raine/listing-appraiser/internal/panel"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 16

// Server exposes one evaluation session over HTTP.
type Server struct {
	session *appraisal.Session
	panel   *panel.HTMLPanel
	origins []string
	// runCtx is the parent of evaluation runs. Runs outlive the request
	// that started them and only stop when the server shuts down.
	runCtx context.Context
}

// New creates a Server. The session must render to p.
func New(session *appraisal.Session, p *panel.HTMLPanel, allowedOrigins ...string) *Server {
	return &Server{session: session, panel: p, origins: allowedOrigins, runCtx: context.Background()}
}

// DefaultJSONResponse is the body of API errors.
type DefaultJSONResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// EvaluateBody is the body of POST /api/evaluate. An empty URL evaluates the
// browser's open tab.
type EvaluateBody struct {
	URL string `json:"url"`
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handlePage).Methods(http.MethodGet)
	r.HandleFunc("/evaluate", s.handleEvaluateForm).Methods(http.MethodPost)
	r.HandleFunc("/api/evaluate", s.handleEvaluateAPI).Methods(http.MethodPost)
	r.HandleFunc("/api/panel", s.handlePanel).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)

	var h http.Handler = r
	// Without configured origins no CORS headers are sent, so browsers
	// keep other sites from driving the API.
	if len(s.origins) > 0 {
		h = handlers.CORS(
			handlers.AllowedHeaders([]string{"Content-Type"}),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
			handlers.AllowedOrigins(s.origins),
		)(h)
	}
	h = accessLog(h)
	h = requestID(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(h)
	return h
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.runCtx = ctx
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("side panel listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, r.URL.Query().Get("url"))
}

func (s *Server) handleEvaluateForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	pageURL := r.PostFormValue("url")

	status := http.StatusOK
	if _, err := s.session.Evaluate(s.runCtx, pageURL); errors.Is(err, appraisal.ErrRunInProgress) {
		status = http.StatusConflict
	}
	s.renderPage(w, status, pageURL)
}

func (s *Server) handleEvaluateAPI(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body EvaluateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, DefaultJSONResponse{Error: "bad request body"})
		return
	}

	if _, err := s.session.Evaluate(s.runCtx, body.URL); errors.Is(err, appraisal.ErrRunInProgress) {
		writeJSON(w, http.StatusConflict, DefaultJSONResponse{Error: err.Error()})
		return
	}
	// Run failures are part of the panel snapshot
	writeJSON(w, http.StatusOK, s.panel.Snapshot())
}

func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.panel.Snapshot())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DefaultJSONResponse{Message: "ok"})
}

func (s *Server) renderPage(w http.ResponseWriter, status int, pageURL string) {
	var buf bytes.Buffer
	if err := s.panel.Render(&buf, pageURL); err != nil {
		log.Error().Err(err).Msg("failed to render panel")
		http.Error(w, "failed to render panel", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
