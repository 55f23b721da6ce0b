package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"github.com/snarg/speechscope/internal/pipeline"
	"github.com/snarg/speechscope/internal/storage"
)

// RunService is satisfied by *pipeline.Orchestrator.
type RunService interface {
	StartRun(ctx context.Context, url string) (string, error)
	GetRun(ctx context.Context, id string) (*pipeline.RunRecord, error)
}

type RunsHandler struct {
	runs RunService
}

func NewRunsHandler(runs RunService) *RunsHandler {
	return &RunsHandler{runs: runs}
}

type analyzeRequest struct {
	URL string `json:"url"`
}

type analyzeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Analyze runs the full pipeline for the posted URL and responds when the
// run has finished. A failed run answers 500 with the run id, whose record
// holds the error and any partial artifacts.
func (h *RunsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		WriteError(w, http.StatusBadRequest, "Missing url")
		return
	}

	log := hlog.FromRequest(r)
	log.Info().Str("url", req.URL).Msg("analysis requested")

	id, err := h.runs.StartRun(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidURL) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("run_id", id).Msg("analysis failed")
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error(), ID: id})
		return
	}
	WriteJSON(w, http.StatusOK, analyzeResponse{ID: id, Status: "done"})
}

// Result returns the stored record for a run. Failed runs are returned with
// 200; the record's error field is the failure signal.
func (h *RunsHandler) Result(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.runs.GetRun(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "Result not found")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("run_id", id).Msg("load result failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// DataFiles serves run artifacts read-only from dataDir under /data/.
// Directory listings are not served.
func DataFiles(dataDir string) http.Handler {
	fs := http.StripPrefix("/data/", http.FileServer(http.Dir(dataDir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			WriteError(w, http.StatusNotFound, "not found")
			return
		}
		fs.ServeHTTP(w, r)
	})
}
