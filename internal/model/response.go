package model

import "time"

// ResponseType records which actor authored the final answer.
type ResponseType string

const (
	ResponseAISelected   ResponseType = "ai_selected"
	ResponseUserAuthored ResponseType = "user_authored"
	ResponseMixed        ResponseType = "mixed"
)

// ValidResponseType reports whether t is one of the enumerated types.
func ValidResponseType(t ResponseType) bool {
	return t == ResponseAISelected || t == ResponseUserAuthored || t == ResponseMixed
}

// UserResponse is the single authoritative answer a user holds for a
// question. At most one final response exists per (question, user); saves
// are upserts on that key.
type UserResponse struct {
	ID         string       `json:"id"`
	QuestionID string       `json:"question_id"`
	UserID     string       `json:"user_id"`
	Type       ResponseType `json:"response_type"`
	FinalAnswer string      `json:"final_answer"`
	AIAnswerID *string      `json:"ai_answer_id,omitempty"`
	UserText   string       `json:"user_text,omitempty"`
	IsFinal    bool         `json:"is_final"`
	AnsweredAt time.Time    `json:"answered_at"`
}
