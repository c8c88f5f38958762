package model

import "time"

// LLMModel is a specific remote AI model addressable through the gateway.
// GatewayID is the provider/model-name string sent in API calls and
// uniquely addresses one remote model.
type LLMModel struct {
	ID                  string    `json:"id" yaml:"id"`
	Provider            string    `json:"provider" yaml:"provider"`
	Name                string    `json:"name" yaml:"name"`
	GatewayID           string    `json:"gateway_id" yaml:"gateway_id"`
	MaxCompletionTokens int       `json:"max_completion_tokens,omitempty" yaml:"max_completion_tokens,omitempty"`
	IsActive            bool      `json:"is_active" yaml:"is_active"`
	CreatedAt           time.Time `json:"created_at" yaml:"-"`
}

// EffectiveMaxTokens returns the completion-token cap used for this model:
// the model's declared cap when set and below the default ceiling,
// otherwise the ceiling itself.
func (m LLMModel) EffectiveMaxTokens(defaultCeiling int) int {
	if m.MaxCompletionTokens > 0 && m.MaxCompletionTokens < defaultCeiling {
		return m.MaxCompletionTokens
	}
	return defaultCeiling
}
