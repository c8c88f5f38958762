// Package orchestrator schedules one gateway call per (challenge, model)
// pair under a global rate limit and records every outcome. A failed
// call never aborts the batch; it becomes an error run and the next unit
// proceeds.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/gauntlet/internal/model"
	"github.com/sells-group/gauntlet/internal/store"
	"github.com/sells-group/gauntlet/internal/validator"
	"github.com/sells-group/gauntlet/pkg/gateway"
)

// Config holds orchestration tuning parameters.
type Config struct {
	// Spacing is the minimum gap between the starts of consecutive
	// gateway calls. The gateway allows ~8 requests/minute; 10s spacing
	// keeps comfortable headroom.
	Spacing time.Duration
	// Temperature used for every call.
	Temperature float64
	// MaxTokensCeiling caps completion tokens; per-model declared caps
	// below the ceiling win.
	MaxTokensCeiling int
	// MaxConcurrent bounds in-flight calls. Call starts stay spaced
	// regardless; this only limits overlap of slow responses.
	MaxConcurrent int
}

// Orchestrator runs benchmark batches. A nil gateway client means no
// credential was configured, which is fatal to any entry point.
type Orchestrator struct {
	store  store.Store
	client gateway.Client
	cfg    Config
}

// New creates an Orchestrator. Pass a nil client when no gateway
// credential is configured; entry points will refuse to schedule.
func New(st store.Store, client gateway.Client, cfg Config) *Orchestrator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	return &Orchestrator{store: st, client: client, cfg: cfg}
}

// Summary tallies a completed batch.
type Summary struct {
	Executed int `json:"executed"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Errored  int `json:"errored"`
}

// Batch is a dispatched set of execution units. The caller gets it back
// as soon as scheduling is done; Wait blocks until every unit has run.
type Batch struct {
	Scheduled        int
	EstimatedMinutes int

	mu      sync.Mutex
	summary Summary
	done    chan struct{}
}

// Wait blocks until the batch completes or ctx is cancelled.
func (b *Batch) Wait(ctx context.Context) (Summary, error) {
	select {
	case <-b.done:
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.summary, nil
	case <-ctx.Done():
		return Summary{}, eris.Wrap(ctx.Err(), "orchestrator: wait")
	}
}

func (b *Batch) record(run model.TestRun) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.summary.Executed++
	switch {
	case run.Status == model.RunStatusError:
		b.summary.Errored++
	case run.IsCorrect:
		b.summary.Passed++
	default:
		b.summary.Failed++
	}
}

// RunAll schedules one execution for every active (challenge, model)
// pair and returns once scheduling is complete; execution continues in
// the background until Batch.Wait reports done.
func (o *Orchestrator) RunAll(ctx context.Context) (*Batch, error) {
	if o.client == nil {
		return nil, eris.New("orchestrator: gateway credential not configured")
	}

	challenges, err := o.store.ListActiveChallenges(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: load challenges")
	}
	models, err := o.store.ListActiveModels(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: load models")
	}

	units := BuildSchedule(models, challenges, o.cfg.Spacing)
	zap.L().Info("orchestrator: batch scheduled",
		zap.Int("challenges", len(challenges)),
		zap.Int("models", len(models)),
		zap.Int("units", len(units)),
		zap.Int("estimated_minutes", EstimatedMinutes(len(units), o.cfg.Spacing)),
	)

	return o.dispatch(ctx, units), nil
}

// RunErrored schedules executions only for still-active pairs whose
// most recent run errored. With nothing to retry it returns an empty,
// already-completed batch.
func (o *Orchestrator) RunErrored(ctx context.Context) (*Batch, error) {
	if o.client == nil {
		return nil, eris.New("orchestrator: gateway credential not configured")
	}

	pairs, err := o.store.ListErroredPairs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: load errored pairs")
	}
	challenges, err := o.store.ListActiveChallenges(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: load challenges")
	}
	models, err := o.store.ListActiveModels(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: load models")
	}

	challengeByID := make(map[string]model.Challenge, len(challenges))
	for _, c := range challenges {
		challengeByID[c.ID] = c
	}
	modelByID := make(map[string]model.LLMModel, len(models))
	for _, m := range models {
		modelByID[m.ID] = m
	}

	var units []Unit
	for _, p := range pairs {
		c, okC := challengeByID[p.ChallengeID]
		m, okM := modelByID[p.ModelID]
		if !okC || !okM {
			// Challenge or model deactivated since the error; skip.
			continue
		}
		units = append(units, Unit{
			Challenge: c,
			Model:     m,
			Offset:    time.Duration(len(units)) * o.cfg.Spacing,
		})
	}

	zap.L().Info("orchestrator: rerun scheduled",
		zap.Int("errored_pairs", len(pairs)),
		zap.Int("units", len(units)),
	)

	return o.dispatch(ctx, units), nil
}

// dispatch launches the batch. A single limiter gates unit starts at
// the configured spacing; slow responses may overlap up to
// MaxConcurrent but starts never bunch up.
func (o *Orchestrator) dispatch(ctx context.Context, units []Unit) *Batch {
	b := &Batch{
		Scheduled:        len(units),
		EstimatedMinutes: EstimatedMinutes(len(units), o.cfg.Spacing),
		done:             make(chan struct{}),
	}

	limit := rate.Every(o.cfg.Spacing)
	if o.cfg.Spacing <= 0 {
		limit = rate.Inf
	}
	limiter := rate.NewLimiter(limit, 1)

	go func() {
		defer close(b.done)

		var g errgroup.Group
		g.SetLimit(o.cfg.MaxConcurrent)

		for _, u := range units {
			if err := limiter.Wait(ctx); err != nil {
				// Abandoned batch: recorded runs stay valid, the rest
				// simply never execute.
				b.mu.Lock()
				remaining := b.Scheduled - b.summary.Executed
				b.mu.Unlock()
				zap.L().Warn("orchestrator: batch abandoned",
					zap.Int("remaining", remaining),
					zap.Error(err),
				)
				break
			}
			g.Go(func() error {
				run := o.execute(ctx, u)
				if _, err := o.store.AppendRunRecord(ctx, run); err != nil {
					zap.L().Error("orchestrator: append run record",
						zap.String("challenge", u.Challenge.Slug),
						zap.String("model", u.Model.GatewayID),
						zap.Error(err),
					)
				}
				b.record(run)
				return nil
			})
		}
		_ = g.Wait()

		b.mu.Lock()
		s := b.summary
		b.mu.Unlock()
		zap.L().Info("orchestrator: batch complete",
			zap.Int("executed", s.Executed),
			zap.Int("passed", s.Passed),
			zap.Int("failed", s.Failed),
			zap.Int("errored", s.Errored),
		)
	}()

	return b
}

// execute runs one unit: gateway call, validation, run construction.
// It never returns an error; gateway failures become error runs.
func (o *Orchestrator) execute(ctx context.Context, u Unit) model.TestRun {
	maxTokens := u.Model.EffectiveMaxTokens(o.cfg.MaxTokensCeiling)

	run := model.TestRun{
		ChallengeID: u.Challenge.ID,
		ModelID:     u.Model.ID,
		ExecutedAt:  time.Now().UTC(),
		Temperature: o.cfg.Temperature,
		MaxTokens:   maxTokens,
	}

	comp, err := o.client.Complete(ctx, gateway.CompletionRequest{
		Model:       u.Model.GatewayID,
		Prompt:      u.Challenge.Prompt,
		Temperature: o.cfg.Temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		run.Status = model.RunStatusError
		run.ErrorMessage = err.Error()
		zap.L().Warn("orchestrator: gateway call failed",
			zap.String("challenge", u.Challenge.Slug),
			zap.String("model", u.Model.GatewayID),
			zap.Error(err),
		)
		return run
	}

	res := validator.Validate(u.Challenge.Validation, u.Challenge.ExpectedAnswer, comp.Text)

	run.Status = model.RunStatusSuccess
	run.RawResponse = comp.Text
	run.ParsedAnswer = res.ParsedAnswer
	run.IsCorrect = res.IsCorrect
	run.ExecutionMs = comp.LatencyMs
	run.PromptTokens = comp.PromptTokens
	run.CompletionTokens = comp.CompletionTokens
	run.TotalTokens = comp.TotalTokens

	zap.L().Debug("orchestrator: unit complete",
		zap.String("challenge", u.Challenge.Slug),
		zap.String("model", u.Model.GatewayID),
		zap.Bool("correct", res.IsCorrect),
		zap.Int64("latency_ms", comp.LatencyMs),
	)
	return run
}
