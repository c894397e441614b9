package pipeline

import "github.com/sells-group/rfp-insight/internal/model"

// ComputeStats derives answer coverage from the persisted rows. Mixed
// responses draw on both an AI answer and user text, so they count in both
// tallies. Completion is answered/total*100, clamped to [0,100].
func ComputeStats(questions []model.Question, responses []model.UserResponse) model.AnswerStats {
	stats := model.AnswerStats{
		TotalQuestions: len(questions),
	}

	byQuestion := make(map[string]bool, len(questions))
	for _, q := range questions {
		byQuestion[q.ID] = true
	}

	seen := make(map[string]bool, len(responses))
	for _, r := range responses {
		if !r.IsFinal || !byQuestion[r.QuestionID] || seen[r.QuestionID] {
			continue
		}
		seen[r.QuestionID] = true
		stats.AnsweredQuestions++
		switch r.Type {
		case model.ResponseAISelected:
			stats.AIAnswersUsed++
		case model.ResponseUserAuthored:
			stats.UserAnswersUsed++
		case model.ResponseMixed:
			stats.AIAnswersUsed++
			stats.UserAnswersUsed++
		}
	}

	if stats.TotalQuestions > 0 {
		stats.CompletionPercentage = float64(stats.AnsweredQuestions) / float64(stats.TotalQuestions) * 100
	}
	if stats.CompletionPercentage < 0 {
		stats.CompletionPercentage = 0
	}
	if stats.CompletionPercentage > 100 {
		stats.CompletionPercentage = 100
	}

	return stats
}
