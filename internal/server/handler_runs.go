package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/me/rfdiff/internal/params"
	"github.com/me/rfdiff/pkg/model"
)

type commandResponse struct {
	Command []string `json:"command"`
	Shell   string   `json:"shell"`
}

// decodeParams reads a JSON ParameterSet body. It writes the error response
// and returns false on failure.
func decodeParams(w http.ResponseWriter, r *http.Request, reqID string) (model.ParameterSet, bool) {
	ps, err := params.Decode(r.Body, params.FormatJSON)
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrValidation,
			Message: "Invalid JSON body: " + err.Error(),
		})
		return ps, false
	}
	return ps, true
}

func (s *Server) handleBuildCommand(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	ps, ok := decodeParams(w, r, reqID)
	if !ok {
		return
	}

	tokens, err := s.runner.DryRun(ps)
	if err != nil {
		respondInvalid(w, reqID, err)
		return
	}
	respondOK(w, reqID, commandResponse{Command: tokens, Shell: strings.Join(tokens, " ")})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	ps, ok := decodeParams(w, r, reqID)
	if !ok {
		return
	}

	run, err := s.runner.Prepare(r.Context(), ps)
	if err != nil {
		respondInvalid(w, reqID, err)
		return
	}

	// Respond with a snapshot; the background goroutine owns run from here.
	snapshot := *run

	s.runs.Add(1)
	s.active.Add(1)
	go func() {
		defer s.runs.Done()
		defer s.active.Add(-1)
		// The runner records and logs the outcome.
		_ = s.runner.Execute(s.baseCtx, run)
	}()

	s.logger.Info("run accepted", "run_id", snapshot.ID, "run_name", snapshot.RunName)
	respondAccepted(w, reqID, snapshot)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	opts, apiErr := listOptions(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}

	runs, total, err := s.store.ListRuns(r.Context(), opts)
	if err != nil {
		respondInternal(w, reqID, err)
		return
	}
	if runs == nil {
		runs = []*model.Run{}
	}

	respondList(w, reqID, runs, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+opts.Limit < total,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		respondInternal(w, reqID, err)
		return
	}
	if run == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("run", id))
		return
	}
	respondOK(w, reqID, run)
}
