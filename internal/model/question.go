package model

import "time"

// QuestionType enumerates the supported answer input shapes for follow-up
// questions.
type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionShortText      QuestionType = "short_text"
	QuestionLongText       QuestionType = "long_text"
	QuestionNumber         QuestionType = "number"
	QuestionRating         QuestionType = "rating"
	QuestionYesNo          QuestionType = "yes_no"
	QuestionDate           QuestionType = "date"
	QuestionChecklist      QuestionType = "checklist"
)

// ValidQuestionType reports whether t is one of the enumerated types.
func ValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionSingleChoice, QuestionMultipleChoice, QuestionShortText,
		QuestionLongText, QuestionNumber, QuestionRating, QuestionYesNo,
		QuestionDate, QuestionChecklist:
		return true
	}
	return false
}

// QuestionPriority ranks how much an answer matters for downstream stages.
type QuestionPriority string

const (
	PriorityHigh   QuestionPriority = "high"
	PriorityMedium QuestionPriority = "medium"
	PriorityLow    QuestionPriority = "low"
)

// Question is a follow-up question generated for a completed analysis.
// Questions are written once and immutable afterward; regeneration requires
// explicit deletion first. OrderIndex is 1-based and unique per analysis.
type Question struct {
	ID             string           `json:"id"`
	AnalysisID     string           `json:"analysis_id"`
	Text           string           `json:"text"`
	Type           QuestionType     `json:"type"`
	Category       string           `json:"category"`
	Priority       QuestionPriority `json:"priority"`
	Context        string           `json:"context,omitempty"`
	OrderIndex     int              `json:"order_index"`
	Options        []string         `json:"options,omitempty"`
	NextStepImpact string           `json:"next_step_impact,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// AIAnswer is an engine-suggested answer to a question. Append-only: new
// generations never overwrite prior rows.
type AIAnswer struct {
	ID          string    `json:"id"`
	QuestionID  string    `json:"question_id"`
	Text        string    `json:"text"`
	Model       string    `json:"model"`
	Confidence  float64   `json:"confidence"`
	GeneratedAt time.Time `json:"generated_at"`
}

// DefaultAIAnswerConfidence is assigned when the engine suggests an answer
// without a confidence value.
const DefaultAIAnswerConfidence = 0.7
