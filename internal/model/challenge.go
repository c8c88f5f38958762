package model

import "time"

// ValidationKind selects how a challenge's expected answer is checked
// against a model response.
type ValidationKind string

const (
	ValidationExactMatch ValidationKind = "exact_match"
	ValidationCustom     ValidationKind = "custom"
)

// CustomValidator names one of the bespoke heuristic checks. The set is
// closed; strategies referencing an unknown name classify as incorrect
// rather than erroring, so a bad row in the challenges table surfaces as
// visibly-failing data instead of crashing a batch.
type CustomValidator string

const (
	ValidatorSelfReferenceCount   CustomValidator = "self_reference_count"
	ValidatorNoFabrication        CustomValidator = "no_fabrication"
	ValidatorMultiInstruction     CustomValidator = "multi_instruction"
	ValidatorAdmissionOfIgnorance CustomValidator = "admission_of_ignorance"
	ValidatorExactWordCount       CustomValidator = "exact_word_count"
)

// ValidationStrategy describes how to classify responses for a challenge.
// Exactly one of the two kinds is in play: exact_match uses
// AcceptableAnswers/CaseSensitive, custom uses CustomValidator.
type ValidationStrategy struct {
	Kind              ValidationKind  `json:"kind" yaml:"kind"`
	AcceptableAnswers []string        `json:"acceptable_answers,omitempty" yaml:"acceptable_answers,omitempty"`
	CaseSensitive     bool            `json:"case_sensitive,omitempty" yaml:"case_sensitive,omitempty"`
	CustomValidator   CustomValidator `json:"custom_validator,omitempty" yaml:"custom_validator,omitempty"`
}

// Challenge is a stored adversarial prompt with an expected answer and
// validation strategy. Slugs are stable external identifiers and must not
// change once test runs reference the challenge.
type Challenge struct {
	ID             string             `json:"id" yaml:"id"`
	Slug           string             `json:"slug" yaml:"slug"`
	Name           string             `json:"name" yaml:"name"`
	Category       string             `json:"category" yaml:"category"`
	Prompt         string             `json:"prompt" yaml:"prompt"`
	ExpectedAnswer string             `json:"expected_answer" yaml:"expected_answer"`
	Validation     ValidationStrategy `json:"validation" yaml:"validation"`
	IsActive       bool               `json:"is_active" yaml:"is_active"`
	CreatedAt      time.Time          `json:"created_at" yaml:"-"`
}
