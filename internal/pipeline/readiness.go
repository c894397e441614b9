package pipeline

import (
	"strings"

	"github.com/sells-group/rfp-insight/internal/config"
	"github.com/sells-group/rfp-insight/internal/model"
)

// EvaluateReadiness computes the three downstream readiness flags from the
// answered set and the extraction confidence. Pure function of its inputs;
// thresholds come from configuration and default to the documented values
// (market 50%, persona 60%, proposal 75% with confidence >= 0.6).
func EvaluateReadiness(cfg config.ReadinessConfig, questions []model.Question, responses []model.UserResponse, stats model.AnswerStats, confidence float64) model.Readiness {
	answered := make(map[string]bool, len(responses))
	for _, r := range responses {
		if r.IsFinal {
			answered[r.QuestionID] = true
		}
	}

	marketCovered := false
	personaCovered := false
	for _, q := range questions {
		if !answered[q.ID] {
			continue
		}
		cat := strings.ToLower(strings.TrimSpace(q.Category))
		if containsCategory(cfg.MarketCategories, cat) {
			marketCovered = true
		}
		if containsCategory(cfg.PersonaCategories, cat) {
			personaCovered = true
		}
	}

	return model.Readiness{
		MarketResearch:  stats.CompletionPercentage >= cfg.MarketCompletionPct && marketCovered,
		PersonaAnalysis: stats.CompletionPercentage >= cfg.PersonaCompletionPct && personaCovered,
		ProposalWriting: stats.CompletionPercentage >= cfg.ProposalCompletionPct && confidence >= cfg.ProposalMinConfidence,
	}
}

func containsCategory(categories []string, cat string) bool {
	for _, c := range categories {
		if strings.EqualFold(c, cat) {
			return true
		}
	}
	return false
}
