package model

import "time"

// AnswerStats aggregates answer coverage for an analysis. Always derived
// from the persisted response rows, never stored as an independent copy.
type AnswerStats struct {
	TotalQuestions       int     `json:"total_questions"`
	AnsweredQuestions    int     `json:"answered_questions"`
	AIAnswersUsed        int     `json:"ai_answers_used"`
	UserAnswersUsed      int     `json:"user_answers_used"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// Readiness signals whether downstream workflows have sufficient input to
// begin. Each flag is independent.
type Readiness struct {
	MarketResearch  bool `json:"market_research"`
	PersonaAnalysis bool `json:"persona_analysis"`
	ProposalWriting bool `json:"proposal_writing"`
}

// ReadySteps returns the names of downstream steps whose flag is set, in a
// fixed order.
func (r Readiness) ReadySteps() []string {
	steps := make([]string, 0, 3)
	if r.MarketResearch {
		steps = append(steps, "market_research")
	}
	if r.PersonaAnalysis {
		steps = append(steps, "persona_analysis")
	}
	if r.ProposalWriting {
		steps = append(steps, "proposal_writing")
	}
	return steps
}

// AnalysisSummary is the consolidated view of an analysis: insights plus
// answer statistics and readiness flags. One row per analysis, upserted.
// GeneratedAt is nil until the first successful consolidation; a set value
// makes the summary cacheable for unforced consolidate calls.
type AnalysisSummary struct {
	ID                   string      `json:"id"`
	AnalysisID           string      `json:"analysis_id"`
	Stats                AnswerStats `json:"statistics"`
	ConsolidatedInsights []string    `json:"consolidated_insights"`
	Readiness            Readiness   `json:"readiness"`
	GeneratedAt          *time.Time  `json:"generated_at,omitempty"`
	UpdatedAt            time.Time   `json:"last_updated_at"`
}

// QAPair is an arbitrary question/answer pair supplied to the secondary
// analyzer. Pairs are not required to match persisted questions.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
