package store

import (
	"context"

	"github.com/sells-group/gauntlet/internal/model"
)

// RunFilter specifies criteria for listing test runs.
type RunFilter struct {
	Status      model.RunStatus `json:"status,omitempty"`
	ChallengeID string          `json:"challenge_id,omitempty"`
	ModelID     string          `json:"model_id,omitempty"`
	Limit       int             `json:"limit,omitempty"`
	Offset      int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the benchmark engine.
// Test runs are append-only; challenges and models are upserted by the
// battery import path and read by the orchestrator.
type Store interface {
	// Challenges and models
	ListActiveChallenges(ctx context.Context) ([]model.Challenge, error)
	ListActiveModels(ctx context.Context) ([]model.LLMModel, error)
	UpsertChallenge(ctx context.Context, c model.Challenge) error
	UpsertModel(ctx context.Context, m model.LLMModel) error

	// Test runs
	AppendRunRecord(ctx context.Context, run model.TestRun) (string, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.TestRun, error)
	LatestRuns(ctx context.Context) ([]model.TestRun, error)
	ListErroredPairs(ctx context.Context) ([]model.PairRef, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
