package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-insight/internal/apperr"
	"github.com/sells-group/rfp-insight/internal/model"
)

const extractionMaxTokens = 4096

// truncationMarker is appended when source text exceeds the configured
// budget, so the engine knows the document is incomplete.
const truncationMarker = "\n[truncated]"

// IngestRequest carries the inputs for a new analysis.
type IngestRequest struct {
	SourceText string
	ProjectID  *string
	Model      string
}

// IngestAnalysis validates the request and creates the analysis record in
// the pending state. Extraction itself runs separately, normally on the
// ingest worker pool.
func (p *Pipeline) IngestAnalysis(ctx context.Context, req IngestRequest) (*model.AnalysisRecord, error) {
	if strings.TrimSpace(req.SourceText) == "" {
		return nil, apperr.Validation("", "source_text is required")
	}

	now := time.Now().UTC()
	rec := &model.AnalysisRecord{
		ID:         uuid.New().String(),
		ProjectID:  req.ProjectID,
		SourceText: req.SourceText,
		Status:     model.StatusPending,
		Model:      p.model(req.Model),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.store.CreateAnalysis(ctx, rec); err != nil {
		return nil, apperr.Persistence("create analysis", err)
	}

	zap.L().Info("analysis ingested",
		zap.String("analysis_id", rec.ID),
		zap.Int("source_chars", len(req.SourceText)),
		zap.Bool("has_project", rec.HasProject()),
	)
	return rec, nil
}

// RunExtraction executes the extraction stage for a pending analysis and
// drives the record to a terminal state. Engine failures mark the record
// failed; malformed engine output is not a failure, it produces a degraded
// completed record instead.
func (p *Pipeline) RunExtraction(ctx context.Context, analysisID string) error {
	rec, err := p.loadAnalysis(ctx, analysisID)
	if err != nil {
		return err
	}
	if rec.Status.IsTerminal() {
		return apperr.Conflict(apperr.CodeAlreadyProcessing,
			"analysis already reached status "+string(rec.Status))
	}
	if rec.Status == model.StatusProcessing {
		return apperr.Conflict(apperr.CodeAlreadyProcessing, "analysis is already being processed")
	}

	if err := p.store.UpdateAnalysisStatus(ctx, analysisID, model.StatusProcessing, ""); err != nil {
		return apperr.Persistence("mark analysis processing", err)
	}

	source := truncateSource(rec.SourceText, p.cfg.MaxSourceChars)
	modelID := p.model(rec.Model)

	resp, err := p.callEngine(ctx, "extraction", modelID, extractionSystem,
		fmt.Sprintf(extractionPrompt, source), extractionMaxTokens)
	if err != nil {
		if dbErr := p.store.UpdateAnalysisStatus(ctx, analysisID, model.StatusFailed, err.Error()); dbErr != nil {
			zap.L().Error("extract: failed to record failure",
				zap.String("analysis_id", analysisID),
				zap.Error(dbErr),
			)
		}
		return err
	}

	sections, confidence, degraded, reason := parseExtraction(resp.Text())
	if degraded {
		zap.L().Warn("extract: degraded result",
			zap.String("analysis_id", analysisID),
			zap.String("reason", reason),
			zap.Float64("confidence", confidence),
		)
	}

	rec.Sections = sections
	rec.ConfidenceScore = confidence
	rec.Status = model.StatusCompleted
	rec.Degraded = degraded
	rec.DegradedReason = reason
	rec.Model = modelID
	if err := p.store.CompleteAnalysis(ctx, rec); err != nil {
		return apperr.Persistence("complete analysis", err)
	}

	zap.L().Info("extraction completed",
		zap.String("analysis_id", analysisID),
		zap.Float64("confidence", confidence),
		zap.Bool("degraded", degraded),
	)
	return nil
}

// truncateSource cuts text at the byte budget and appends the truncation
// marker. A budget of zero or less disables truncation.
func truncateSource(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + truncationMarker
}

// parseExtraction decodes the engine's extraction JSON. On any parse
// failure it returns a deterministic degraded result: confidence pinned to
// the degraded value, a warning overview, and the raw response preserved
// in Extra so nothing the engine said is lost. A reported confidence below
// the degraded ceiling also marks the record degraded.
func parseExtraction(text string) (model.ExtractedSections, float64, bool, string) {
	cleaned := cleanJSON(text)

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return model.ExtractedSections{
			Overview: "Extraction degraded: the analysis engine returned unparseable output. Manual review required.",
			Extra:    map[string]any{"raw_response": text},
		}, model.DegradedConfidence, true, "unparseable engine output"
	}

	sections := model.ExtractedSections{}
	known := map[string]bool{
		"overview": true, "functional_requirements": true,
		"non_functional_requirements": true, "technical_specs": true,
		"business_requirements": true, "keywords": true,
		"risk_factors": true, "confidence": true,
	}

	sections.Overview, _ = raw["overview"].(string)
	sections.FunctionalRequirements = toStringSlice(raw["functional_requirements"])
	sections.NonFunctionalRequirements = toStringSlice(raw["non_functional_requirements"])
	sections.TechnicalSpecs = toStringSlice(raw["technical_specs"])
	sections.BusinessRequirements = toStringSlice(raw["business_requirements"])
	sections.Keywords = toStringSlice(raw["keywords"])
	sections.RiskFactors = toStringSlice(raw["risk_factors"])

	for k, v := range raw {
		if known[k] {
			continue
		}
		if sections.Extra == nil {
			sections.Extra = map[string]any{}
		}
		sections.Extra[k] = v
	}

	confidence, ok := toFloat64(raw["confidence"])
	if !ok {
		confidence = model.DegradedConfidence
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	if confidence < model.DegradedConfidenceCeiling {
		return sections, confidence, true, "engine confidence below degraded threshold"
	}
	return sections, confidence, false, ""
}
