package model

import "time"

// ProcessingStatus represents the lifecycle state of an analysis record.
// Completed and failed are terminal.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// DegradedConfidenceCeiling is the documented threshold below which a
// confidence score marks a fallback extraction. Degraded records are
// written with DegradedConfidence.
const (
	DegradedConfidenceCeiling = 0.2
	DegradedConfidence        = 0.1
)

// ExtractedSections holds the structured output of the extraction stage.
// Extra collects fields the reasoning engine returned that are not part of
// the fixed schema, so evolving engine output is not silently dropped.
type ExtractedSections struct {
	Overview                  string         `json:"overview"`
	FunctionalRequirements    []string       `json:"functional_requirements"`
	NonFunctionalRequirements []string       `json:"non_functional_requirements"`
	TechnicalSpecs            []string       `json:"technical_specs"`
	BusinessRequirements      []string       `json:"business_requirements"`
	Keywords                  []string       `json:"keywords"`
	RiskFactors               []string       `json:"risk_factors"`
	Extra                     map[string]any `json:"extra,omitempty"`
}

// AnalysisRecord is the persisted structured extraction of an RFP document.
// Frozen after extraction completes, except for the single secondary
// analysis slot which is overwritten on each secondary run.
type AnalysisRecord struct {
	ID              string             `json:"id"`
	ProjectID       *string            `json:"project_id,omitempty"`
	SourceText      string             `json:"source_text,omitempty"`
	Sections        ExtractedSections  `json:"sections"`
	ConfidenceScore float64            `json:"confidence_score"`
	Status          ProcessingStatus   `json:"status"`
	Degraded        bool               `json:"degraded"`
	DegradedReason  string             `json:"degraded_reason,omitempty"`
	Model           string             `json:"model,omitempty"`
	Error           string             `json:"error,omitempty"`
	Secondary       *SecondaryAnalysis `json:"secondary_analysis,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// HasProject reports whether the analysis is owned by a project. Standalone
// analyses cannot enter the question generation stage.
func (a *AnalysisRecord) HasProject() bool {
	return a.ProjectID != nil && *a.ProjectID != ""
}

// SecondaryAnalysis is the optional deep-dive result written into an
// analysis record's single secondary slot.
type SecondaryAnalysis struct {
	MarketInsights  []string  `json:"market_research_insights"`
	PersonaInsights []string  `json:"persona_insights"`
	Degraded        bool      `json:"degraded,omitempty"`
	RawResponse     string    `json:"raw_response,omitempty"`
	Model           string    `json:"model,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
}
