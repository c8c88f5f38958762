package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/gauntlet/internal/model"
)

func TestExactMatch(t *testing.T) {
	tests := []struct {
		name       string
		strategy   model.ValidationStrategy
		expected   string
		response   string
		wantOK     bool
		wantParsed string
	}{
		{
			name:       "equal_case_insensitive",
			strategy:   model.ValidationStrategy{Kind: model.ValidationExactMatch, AcceptableAnswers: []string{"Paris"}},
			response:   "paris",
			wantOK:     true,
			wantParsed: "Paris",
		},
		{
			name:       "contains",
			strategy:   model.ValidationStrategy{Kind: model.ValidationExactMatch, AcceptableAnswers: []string{"paris"}},
			response:   "The capital of France is Paris.",
			wantOK:     true,
			wantParsed: "paris",
		},
		{
			name:       "trims_whitespace",
			strategy:   model.ValidationStrategy{Kind: model.ValidationExactMatch, AcceptableAnswers: []string{"42"}},
			response:   "  42\n",
			wantOK:     true,
			wantParsed: "42",
		},
		{
			name:       "second_acceptable_answer",
			strategy:   model.ValidationStrategy{Kind: model.ValidationExactMatch, AcceptableAnswers: []string{"four", "4"}},
			response:   "the answer is 4",
			wantOK:     true,
			wantParsed: "4",
		},
		{
			name:     "case_sensitive_rejects",
			strategy: model.ValidationStrategy{Kind: model.ValidationExactMatch, AcceptableAnswers: []string{"Paris"}, CaseSensitive: true},
			response: "paris",
			wantOK:   false,
		},
		{
			name:       "case_sensitive_accepts",
			strategy:   model.ValidationStrategy{Kind: model.ValidationExactMatch, AcceptableAnswers: []string{"Paris"}, CaseSensitive: true},
			response:   "Paris",
			wantOK:     true,
			wantParsed: "Paris",
		},
		{
			name:       "falls_back_to_expected_answer",
			strategy:   model.ValidationStrategy{Kind: model.ValidationExactMatch},
			expected:   "blue",
			response:   "Blue, I think.",
			wantOK:     true,
			wantParsed: "blue",
		},
		{
			// Substring containment is intentionally permissive: "3"
			// matches inside "13". Load-bearing for existing challenges.
			name:       "short_answer_substring_false_positive",
			strategy:   model.ValidationStrategy{Kind: model.ValidationExactMatch, AcceptableAnswers: []string{"3"}},
			response:   "13",
			wantOK:     true,
			wantParsed: "3",
		},
		{
			name:     "no_match",
			strategy: model.ValidationStrategy{Kind: model.ValidationExactMatch, AcceptableAnswers: []string{"42"}},
			response: "  I refuse to answer.  ",
			wantOK:   false,
			// trimmed response comes back as the parsed answer
			wantParsed: "I refuse to answer.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.strategy, tt.expected, tt.response)
			assert.Equal(t, tt.wantOK, got.IsCorrect)
			if tt.wantParsed != "" {
				assert.Equal(t, tt.wantParsed, got.ParsedAnswer)
			}
		})
	}
}

func TestExactMatchTruncatesLongMiss(t *testing.T) {
	long := strings.Repeat("x", 250)
	got := Validate(model.ValidationStrategy{
		Kind:              model.ValidationExactMatch,
		AcceptableAnswers: []string{"42"},
	}, "", long)

	assert.False(t, got.IsCorrect)
	assert.Len(t, got.ParsedAnswer, 103) // 100 chars + "..."
	assert.True(t, strings.HasSuffix(got.ParsedAnswer, "..."))
}

func TestUnknownStrategyKind(t *testing.T) {
	got := Validate(model.ValidationStrategy{Kind: "regex"}, "", "anything")
	assert.False(t, got.IsCorrect)
	assert.Equal(t, "unknown_validation_type", got.ParsedAnswer)
}

func TestUnknownCustomValidator(t *testing.T) {
	got := Validate(model.ValidationStrategy{
		Kind:            model.ValidationCustom,
		CustomValidator: "haiku_detector",
	}, "", "anything")
	assert.False(t, got.IsCorrect)
	assert.Equal(t, "unknown_validator:haiku_detector", got.ParsedAnswer)
}

func TestValidatorsAreTotalOnEmptyInput(t *testing.T) {
	validators := []model.CustomValidator{
		model.ValidatorSelfReferenceCount,
		model.ValidatorNoFabrication,
		model.ValidatorMultiInstruction,
		model.ValidatorAdmissionOfIgnorance,
		model.ValidatorExactWordCount,
	}
	for _, v := range validators {
		t.Run(string(v), func(t *testing.T) {
			// Classification must succeed on degenerate input; the
			// outcome itself varies (no_fabrication passes an empty
			// response since nothing fabricated anything).
			got := Validate(model.ValidationStrategy{
				Kind:            model.ValidationCustom,
				CustomValidator: v,
			}, "", "")
			assert.NotEmpty(t, got.ParsedAnswer)
		})
	}
}
