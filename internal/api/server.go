// Package api exposes the HTTP JSON API consumed by the assessment UI:
// session controls, live session state, and the stored run log with its
// rendered report.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gaitworks/posture.report/internal/db"
	"github.com/gaitworks/posture.report/internal/monitoring"
	"github.com/gaitworks/posture.report/internal/session"
)

// ANSI escape codes for request logging
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// SessionController is the slice of the session the API needs. Implemented
// by *session.Session; faked in tests.
type SessionController interface {
	State() session.State
	Start() bool
	Select(index int) bool
	SkipCurrent()
	Reset()
	Stop()
}

// Server hosts the API handlers.
type Server struct {
	session SessionController
	db      *db.DB
}

// NewServer creates an API server over the given session and run store.
func NewServer(s SessionController, database *db.DB) *Server {
	return &Server{session: s, db: database}
}

// ServeMux returns the API route table, intended to be mounted under /api.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("POST /runs", s.handleRecordRun)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /runs/{id}/report", s.handleRunReport)

	mux.HandleFunc("GET /session", s.handleSessionState)
	mux.HandleFunc("POST /session/start", s.handleSessionStart)
	mux.HandleFunc("POST /session/select", s.handleSessionSelect)
	mux.HandleFunc("POST /session/skip", s.handleSessionSkip)
	mux.HandleFunc("POST /session/reset", s.handleSessionReset)
	mux.HandleFunc("POST /session/stop", s.handleSessionStop)

	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf("[%s] %s %s %vms",
			statusCodeColor(lrw.statusCode), r.Method, r.URL.Path,
			time.Since(start).Milliseconds())
	})
}
