package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gaitworks/posture.report/internal/db"
	"github.com/gaitworks/posture.report/internal/httputil"
	"github.com/gaitworks/posture.report/internal/protocol"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil {
			httputil.BadRequest(w, "invalid limit")
			return
		}
		limit = v
	}
	runs, err := s.db.Runs(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []db.RunSummary{}
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	detail, err := s.db.Run(r.PathValue("id"))
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, "run not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, "failed to load run")
		return
	}
	httputil.WriteJSONOK(w, detail)
}

// recordRunRequest is the submission payload accepted from UI clients. It
// mirrors the backend submission format so this daemon can also act as the
// scoring endpoint for a kiosk deployment.
type recordRunRequest struct {
	Source       string                `json:"source"`
	RunStartedAt string                `json:"run_started_at"`
	RunEndedAt   string                `json:"run_ended_at"`
	Steps        []protocol.StepResult `json:"steps"`
}

type recordRunResponse struct {
	RunID      string              `json:"run_id"`
	Evaluation protocol.Evaluation `json:"evaluation"`
}

func (s *Server) handleRecordRun(w http.ResponseWriter, r *http.Request) {
	var req recordRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Steps) == 0 || len(req.Steps) > protocol.NumSteps {
		httputil.BadRequest(w, "steps must contain between 1 and 10 entries")
		return
	}

	startedAt, err := time.Parse(time.RFC3339, req.RunStartedAt)
	if err != nil {
		httputil.BadRequest(w, "invalid run_started_at")
		return
	}
	endedAt, err := time.Parse(time.RFC3339, req.RunEndedAt)
	if err != nil {
		httputil.BadRequest(w, "invalid run_ended_at")
		return
	}

	record := protocol.RunRecord{
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Steps:     req.Steps,
	}
	eval := protocol.Evaluate(record)

	source := req.Source
	if source == "" {
		source = "api"
	}
	runID, err := s.db.SaveRun(record, eval, source)
	if err != nil {
		httputil.InternalServerError(w, "failed to save run")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, recordRunResponse{
		RunID:      runID,
		Evaluation: eval,
	})
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.session.State())
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if !s.session.Start() {
		httputil.WriteJSONError(w, http.StatusConflict, "cannot start: no subject is tracked")
		return
	}
	httputil.WriteJSONOK(w, s.session.State())
}

type selectRequest struct {
	Index int `json:"index"`
}

func (s *Server) handleSessionSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid JSON body")
		return
	}
	if !s.session.Select(req.Index) {
		httputil.BadRequest(w, "no candidate at that index")
		return
	}
	httputil.WriteJSONOK(w, s.session.State())
}

func (s *Server) handleSessionSkip(w http.ResponseWriter, r *http.Request) {
	s.session.SkipCurrent()
	httputil.WriteJSONOK(w, s.session.State())
}

func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	s.session.Reset()
	httputil.WriteJSONOK(w, s.session.State())
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	s.session.Stop()
	httputil.WriteJSONOK(w, s.session.State())
}
