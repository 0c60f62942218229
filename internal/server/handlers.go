package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/inferloop/dataforge/internal/quality"
	"github.com/inferloop/dataforge/pkg/models"
)

type submitJobRequest struct {
	SourcePath    string `json:"source_path"`
	TargetDataset string `json:"target_dataset"`
	TargetTable   string `json:"target_table"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "dataforge",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleSubmitJob accepts a job and runs it asynchronously. The response is
// the job in its INITIATED state; poll the status endpoint for progress.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.SourcePath == "" || req.TargetDataset == "" || req.TargetTable == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "source_path, target_dataset and target_table are required",
		})
		return
	}

	job := models.NewJob(req.SourcePath, req.TargetDataset, req.TargetTable)
	accepted := s.storeJob(job)

	go func() {
		result, err := s.runner.Run(context.Background(), job)
		if err != nil {
			s.logger.WithError(err).WithField("job_id", job.ID).Error("Job failed")
		}
		if result != nil {
			s.storeJob(result)
		}
	}()

	writeJSON(w, http.StatusAccepted, accepted)
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": s.listJobs()})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "job not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleGetLineage(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "job not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":  job.ID,
		"lineage": job.Lineage,
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(mux.Vars(r)["id"])
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "job not found"})
		return
	}
	if !job.Status.Terminal() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "job has not finished yet"})
		return
	}

	scorer := quality.NewScorer()
	dq := scorer.DataQualityScore(job)
	compliance := scorer.ComplianceScore(job)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":           job.ID,
		"status":           job.Status,
		"quality_score":    dq,
		"compliance_score": compliance,
		"grade":            quality.Grade(dq),
		"scorecard":        scorer.RenderScorecard(job, dq, compliance),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
