package model

import "time"

// RunStatus reports whether a test run's gateway call completed.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusError   RunStatus = "error"
)

// TestRun is the immutable outcome of executing one challenge against one
// model at one point in time. Runs are only ever appended; the latest
// result for a (challenge, model) pair is the run with the greatest
// ExecutedAt.
type TestRun struct {
	ID               string    `json:"id"`
	ChallengeID      string    `json:"challenge_id"`
	ModelID          string    `json:"model_id"`
	ExecutedAt       time.Time `json:"executed_at"`
	Status           RunStatus `json:"status"`
	RawResponse      string    `json:"raw_response"`
	ParsedAnswer     string    `json:"parsed_answer"`
	IsCorrect        bool      `json:"is_correct"`
	ExecutionMs      int64     `json:"execution_ms"`
	PromptTokens     int       `json:"prompt_tokens,omitempty"`
	CompletionTokens int       `json:"completion_tokens,omitempty"`
	TotalTokens      int       `json:"total_tokens,omitempty"`
	Temperature      float64   `json:"temperature"`
	MaxTokens        int       `json:"max_tokens"`
	ErrorMessage     string    `json:"error_message,omitempty"`
}

// PairRef identifies one (challenge, model) combination.
type PairRef struct {
	ChallengeID string `json:"challenge_id"`
	ModelID     string `json:"model_id"`
}
