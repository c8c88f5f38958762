// Package battery loads challenge and model definitions from YAML files
// and syncs them into the store. Files are declarative: reimporting the
// same file is a no-op, edits update in place by slug or gateway id.
package battery

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/gauntlet/internal/model"
	"github.com/sells-group/gauntlet/internal/store"
)

// File is the on-disk battery format.
type File struct {
	Challenges []ChallengeDef `yaml:"challenges"`
	Models     []ModelDef     `yaml:"models"`
}

// ChallengeDef defines one challenge. Active defaults to true so a
// definition only needs a flag to retire.
type ChallengeDef struct {
	Slug           string                   `yaml:"slug"`
	Name           string                   `yaml:"name"`
	Category       string                   `yaml:"category"`
	Prompt         string                   `yaml:"prompt"`
	ExpectedAnswer string                   `yaml:"expected_answer"`
	Validation     model.ValidationStrategy `yaml:"validation"`
	Inactive       bool                     `yaml:"inactive"`
}

// ModelDef defines one model.
type ModelDef struct {
	Provider            string `yaml:"provider"`
	Name                string `yaml:"name"`
	GatewayID           string `yaml:"gateway_id"`
	MaxCompletionTokens int    `yaml:"max_completion_tokens"`
	Inactive            bool   `yaml:"inactive"`
}

// Load reads and validates a battery file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "battery: read file")
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrap(err, "battery: parse yaml")
	}

	for i, c := range f.Challenges {
		if c.Slug == "" {
			return nil, eris.Errorf("battery: challenge %d has no slug", i)
		}
		if c.Prompt == "" {
			return nil, eris.Errorf("battery: challenge %q has no prompt", c.Slug)
		}
		switch c.Validation.Kind {
		case model.ValidationExactMatch, model.ValidationCustom:
		case "":
			return nil, eris.Errorf("battery: challenge %q has no validation kind", c.Slug)
		default:
			return nil, eris.Errorf("battery: challenge %q has unknown validation kind %q", c.Slug, c.Validation.Kind)
		}
	}
	for i, m := range f.Models {
		if m.GatewayID == "" {
			return nil, eris.Errorf("battery: model %d has no gateway_id", i)
		}
	}

	return &f, nil
}

// Sync upserts every definition in the file. It returns how many
// challenges and models were written.
func Sync(ctx context.Context, st store.Store, f *File) (int, int, error) {
	for _, c := range f.Challenges {
		err := st.UpsertChallenge(ctx, model.Challenge{
			Slug:           c.Slug,
			Name:           c.Name,
			Category:       c.Category,
			Prompt:         c.Prompt,
			ExpectedAnswer: c.ExpectedAnswer,
			Validation:     c.Validation,
			IsActive:       !c.Inactive,
		})
		if err != nil {
			return 0, 0, eris.Wrapf(err, "battery: upsert challenge %q", c.Slug)
		}
	}
	for _, m := range f.Models {
		err := st.UpsertModel(ctx, model.LLMModel{
			Provider:            m.Provider,
			Name:                m.Name,
			GatewayID:           m.GatewayID,
			MaxCompletionTokens: m.MaxCompletionTokens,
			IsActive:            !m.Inactive,
		})
		if err != nil {
			return 0, 0, eris.Wrapf(err, "battery: upsert model %q", m.GatewayID)
		}
	}

	zap.L().Info("battery synced",
		zap.Int("challenges", len(f.Challenges)),
		zap.Int("models", len(f.Models)),
	)
	return len(f.Challenges), len(f.Models), nil
}
