package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-insight/internal/apperr"
	"github.com/sells-group/rfp-insight/internal/model"
	"github.com/sells-group/rfp-insight/internal/pipeline"
	"github.com/sells-group/rfp-insight/internal/worker"
)

// maxBodySize bounds request bodies; RFP documents arrive inline.
const maxBodySize = 10 << 20 // 10MB

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return apperr.Validation("", "invalid request body: "+err.Error())
	}
	return nil
}

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceText string  `json:"source_text"`
		ProjectID  *string `json:"project_id"`
		Model      string  `json:"model"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	rec, err := s.pipeline.IngestAnalysis(r.Context(), pipeline.IngestRequest{
		SourceText: req.SourceText,
		ProjectID:  req.ProjectID,
		Model:      req.Model,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	err = s.pool.Submit(func(ctx context.Context) {
		if err := s.pipeline.RunExtraction(ctx, rec.ID); err != nil {
			zap.L().Error("background extraction failed",
				zap.String("analysis_id", rec.ID),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		if errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrStopped) {
			writeError(w, &apperr.Error{
				Kind:     apperr.KindUpstream,
				Upstream: apperr.UpstreamQuota,
				Code:     apperr.CodeQueueFull,
				Message:  "ingestion queue is full, retry later",
			})
			return
		}
		writeError(w, apperr.Persistence("enqueue extraction", err))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"analysis_id": rec.ID,
		"status":      rec.Status,
	})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	rec, err := s.pipeline.GetAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	// The source document can be large; the record view omits it.
	rec.SourceText = ""
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxQuestions      int      `json:"max_questions"`
		Categories        []string `json:"categories"`
		GenerateAIAnswers bool     `json:"generate_ai_answers"`
		Model             string   `json:"model"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	questions, err := s.pipeline.GenerateQuestions(r.Context(), chi.URLParam(r, "id"), pipeline.QuestionOptions{
		MaxQuestions:      req.MaxQuestions,
		Categories:        req.Categories,
		GenerateAIAnswers: req.GenerateAIAnswers,
		Model:             req.Model,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"questions":       questions,
		"generated_count": len(questions),
	})
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, stats, err := s.pipeline.QuestionOverview(r.Context(), chi.URLParam(r, "id"), requesterID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"questions":  questions,
		"statistics": stats,
	})
}

func (s *Server) handleSaveAnswers(w http.ResponseWriter, r *http.Request) {
	userID := requesterID(r)
	if userID == "" {
		writeError(w, apperr.Validation("", "X-User-ID header is required"))
		return
	}

	var req struct {
		AnalysisID        string                          `json:"analysis_id"`
		Answers           map[string]pipeline.AnswerInput `json:"answers"`
		CompletenessScore *float64                        `json:"completeness_score"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.AnalysisID == "" {
		writeError(w, apperr.Validation("", "analysis_id is required"))
		return
	}

	stats, err := s.pipeline.SaveResponses(r.Context(), req.AnalysisID, userID, req.Answers, req.CompletenessScore)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"statistics": stats,
	})
}

func (s *Server) handleConsolidate(w http.ResponseWriter, r *http.Request) {
	userID := requesterID(r)
	if userID == "" {
		writeError(w, apperr.Validation("", "X-User-ID header is required"))
		return
	}

	var req struct {
		ForceRegenerate bool   `json:"force_regenerate"`
		Model           string `json:"model"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	summary, err := s.pipeline.Consolidate(r.Context(), chi.URLParam(r, "id"), userID, pipeline.ConsolidateOptions{
		Force: req.ForceRegenerate,
		Model: req.Model,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary":          summary,
		"next_steps_ready": summary.Readiness.ReadySteps(),
	})
}

func (s *Server) handleSecondaryAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AnalysisID string         `json:"analysis_id"`
		Answers    []model.QAPair `json:"answers"`
		Model      string         `json:"model"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.AnalysisID == "" {
		writeError(w, apperr.Validation("", "analysis_id is required"))
		return
	}

	sec, err := s.pipeline.RunSecondary(r.Context(), req.AnalysisID, req.Answers, req.Model)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"secondary_analysis": sec,
	})
}
