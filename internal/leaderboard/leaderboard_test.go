package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gauntlet/internal/model"
)

func TestComputeRates(t *testing.T) {
	challenges := []model.Challenge{
		{ID: "c1", Slug: "letter-count", Name: "Letter Count", Category: "reasoning"},
		{ID: "c2", Slug: "fake-paper", Name: "Fake Paper", Category: "fabrication"},
	}
	models := []model.LLMModel{
		{ID: "m1", Provider: "openai", Name: "GPT-4o", GatewayID: "openai/gpt-4o"},
		{ID: "m2", Provider: "meta", Name: "Llama 3", GatewayID: "meta/llama-3"},
	}
	latest := []model.TestRun{
		{ChallengeID: "c1", ModelID: "m1", Status: model.RunStatusSuccess, IsCorrect: true},
		{ChallengeID: "c1", ModelID: "m2", Status: model.RunStatusSuccess, IsCorrect: false},
		{ChallengeID: "c2", ModelID: "m1", Status: model.RunStatusSuccess, IsCorrect: false},
		{ChallengeID: "c2", ModelID: "m2", Status: model.RunStatusSuccess, IsCorrect: false},
	}

	board := Compute(challenges, models, latest)

	require.Len(t, board.Challenges, 2)
	// fake-paper killed both models, ranks first.
	assert.Equal(t, "fake-paper", board.Challenges[0].Slug)
	assert.Equal(t, 1.0, board.Challenges[0].KillRate)
	assert.Equal(t, "letter-count", board.Challenges[1].Slug)
	assert.Equal(t, 0.5, board.Challenges[1].KillRate)

	require.Len(t, board.Models, 2)
	assert.Equal(t, "openai/gpt-4o", board.Models[0].Gateway)
	assert.Equal(t, 0.5, board.Models[0].PassRate)
	assert.Equal(t, 0.0, board.Models[1].PassRate)
}

func TestComputeSkipsErroredRuns(t *testing.T) {
	challenges := []model.Challenge{{ID: "c1", Slug: "letter-count"}}
	models := []model.LLMModel{{ID: "m1", GatewayID: "openai/gpt-4o"}}
	latest := []model.TestRun{
		{ChallengeID: "c1", ModelID: "m1", Status: model.RunStatusError},
	}

	board := Compute(challenges, models, latest)

	require.Len(t, board.Challenges, 1)
	assert.Zero(t, board.Challenges[0].Attempts)
	assert.Zero(t, board.Challenges[0].KillRate)
	require.Len(t, board.Models, 1)
	assert.Zero(t, board.Models[0].Attempts)
}

func TestComputeSkipsDeactivatedPairs(t *testing.T) {
	challenges := []model.Challenge{{ID: "c1", Slug: "letter-count"}}
	models := []model.LLMModel{{ID: "m1", GatewayID: "openai/gpt-4o"}}
	latest := []model.TestRun{
		{ChallengeID: "c-gone", ModelID: "m1", Status: model.RunStatusSuccess, IsCorrect: true},
		{ChallengeID: "c1", ModelID: "m-gone", Status: model.RunStatusSuccess, IsCorrect: false},
	}

	board := Compute(challenges, models, latest)

	assert.Zero(t, board.Challenges[0].Attempts)
	assert.Zero(t, board.Models[0].Attempts)
}

func TestComputeEmpty(t *testing.T) {
	board := Compute(nil, nil, nil)
	assert.Empty(t, board.Challenges)
	assert.Empty(t, board.Models)
	assert.False(t, board.GeneratedAt.IsZero())
}
