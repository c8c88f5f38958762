package orchestrator

import (
	"math"
	"time"

	"github.com/sells-group/gauntlet/internal/model"
)

// Unit is one scheduled (challenge, model) execution with its delay
// offset from the start of the batch.
type Unit struct {
	Challenge model.Challenge
	Model     model.LLMModel
	Offset    time.Duration
}

// BuildSchedule folds the cross product of models and challenges into
// execution units, outer loop over models, inner over challenges. The
// k-th unit is offset by exactly k times the spacing: one global
// throttle shared across all models, not a per-model limiter.
func BuildSchedule(models []model.LLMModel, challenges []model.Challenge, spacing time.Duration) []Unit {
	units := make([]Unit, 0, len(models)*len(challenges))
	for _, m := range models {
		for _, c := range challenges {
			units = append(units, Unit{
				Challenge: c,
				Model:     m,
				Offset:    time.Duration(len(units)) * spacing,
			})
		}
	}
	return units
}

// EstimatedMinutes returns the expected wall-clock duration of a batch
// of n units, rounded up to whole minutes.
func EstimatedMinutes(n int, spacing time.Duration) int {
	if n == 0 {
		return 0
	}
	total := time.Duration(n) * spacing
	return int(math.Ceil(total.Minutes()))
}
