// Package leaderboard aggregates the latest run per (challenge, model)
// pair into challenge kill rates and model pass rates. Only completed
// runs count; errored runs say nothing about a model's ability.
package leaderboard

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gauntlet/internal/model"
	"github.com/sells-group/gauntlet/internal/store"
)

// ChallengeRow ranks a challenge by how many models it defeats.
type ChallengeRow struct {
	Slug     string  `json:"slug"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Attempts int     `json:"attempts"`
	Kills    int     `json:"kills"`
	KillRate float64 `json:"kill_rate"`
}

// ModelRow ranks a model by how many challenges it survives.
type ModelRow struct {
	Provider string  `json:"provider"`
	Name     string  `json:"name"`
	Gateway  string  `json:"gateway_id"`
	Attempts int     `json:"attempts"`
	Passes   int     `json:"passes"`
	PassRate float64 `json:"pass_rate"`
}

// Board is a point-in-time snapshot of both rankings.
type Board struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Challenges  []ChallengeRow `json:"challenges"`
	Models      []ModelRow     `json:"models"`
}

// Build loads active challenges, active models, and the latest run per
// pair, then folds them into a Board. Challenges sort by kill rate
// descending, models by pass rate descending.
func Build(ctx context.Context, st store.Store) (*Board, error) {
	challenges, err := st.ListActiveChallenges(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "leaderboard: load challenges")
	}
	models, err := st.ListActiveModels(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "leaderboard: load models")
	}
	latest, err := st.LatestRuns(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "leaderboard: load latest runs")
	}
	return Compute(challenges, models, latest), nil
}

// Compute is the pure aggregation over a latest-run set.
func Compute(challenges []model.Challenge, models []model.LLMModel, latest []model.TestRun) *Board {
	challengeRows := make(map[string]*ChallengeRow, len(challenges))
	for _, c := range challenges {
		challengeRows[c.ID] = &ChallengeRow{Slug: c.Slug, Name: c.Name, Category: c.Category}
	}
	modelRows := make(map[string]*ModelRow, len(models))
	for _, m := range models {
		modelRows[m.ID] = &ModelRow{Provider: m.Provider, Name: m.Name, Gateway: m.GatewayID}
	}

	for _, run := range latest {
		if run.Status != model.RunStatusSuccess {
			continue
		}
		cr, okC := challengeRows[run.ChallengeID]
		mr, okM := modelRows[run.ModelID]
		if !okC || !okM {
			// Run against a since-deactivated challenge or model.
			continue
		}
		cr.Attempts++
		mr.Attempts++
		if run.IsCorrect {
			mr.Passes++
		} else {
			cr.Kills++
		}
	}

	board := &Board{GeneratedAt: time.Now().UTC()}
	for _, cr := range challengeRows {
		if cr.Attempts > 0 {
			cr.KillRate = float64(cr.Kills) / float64(cr.Attempts)
		}
		board.Challenges = append(board.Challenges, *cr)
	}
	for _, mr := range modelRows {
		if mr.Attempts > 0 {
			mr.PassRate = float64(mr.Passes) / float64(mr.Attempts)
		}
		board.Models = append(board.Models, *mr)
	}

	sort.Slice(board.Challenges, func(i, j int) bool {
		a, b := board.Challenges[i], board.Challenges[j]
		if a.KillRate != b.KillRate {
			return a.KillRate > b.KillRate
		}
		return a.Slug < b.Slug
	})
	sort.Slice(board.Models, func(i, j int) bool {
		a, b := board.Models[i], board.Models[j]
		if a.PassRate != b.PassRate {
			return a.PassRate > b.PassRate
		}
		return a.Gateway < b.Gateway
	})
	return board
}
