// Package validator classifies raw model responses as correct or
// incorrect for a challenge. Every path is total: misconfigured
// strategies and unknown validator names produce deterministic incorrect
// results instead of errors, so bad challenge rows show up as failing
// data rather than crashed batches.
package validator

import (
	"strings"

	"github.com/sells-group/gauntlet/internal/model"
)

// maxParsedAnswerLen caps the parsed answer stored for display when the
// response didn't match anything.
const maxParsedAnswerLen = 100

// Result is the outcome of validating one response.
type Result struct {
	IsCorrect    bool   `json:"is_correct"`
	ParsedAnswer string `json:"parsed_answer"`
}

// Validate classifies a raw response against a challenge's strategy.
func Validate(strategy model.ValidationStrategy, expectedAnswer, rawResponse string) Result {
	switch strategy.Kind {
	case model.ValidationExactMatch:
		return exactMatch(strategy, expectedAnswer, rawResponse)
	case model.ValidationCustom:
		return custom(strategy.CustomValidator, expectedAnswer, rawResponse)
	default:
		return Result{IsCorrect: false, ParsedAnswer: "unknown_validation_type"}
	}
}

// exactMatch accepts a response that equals or contains any acceptable
// answer. Matching is case-insensitive unless the strategy says
// otherwise. The containment rule deliberately matches substrings (a "3"
// answer matches inside "13"); existing challenge definitions depend on
// this, so it stays even though it can false-positive on short answers.
func exactMatch(strategy model.ValidationStrategy, expectedAnswer, rawResponse string) Result {
	trimmed := strings.TrimSpace(rawResponse)

	answers := strategy.AcceptableAnswers
	if len(answers) == 0 {
		answers = []string{expectedAnswer}
	}

	haystack := trimmed
	if !strategy.CaseSensitive {
		haystack = strings.ToLower(trimmed)
	}

	for _, a := range answers {
		needle := a
		if !strategy.CaseSensitive {
			needle = strings.ToLower(a)
		}
		if needle == "" {
			continue
		}
		if haystack == needle || strings.Contains(haystack, needle) {
			return Result{IsCorrect: true, ParsedAnswer: a}
		}
	}

	return Result{IsCorrect: false, ParsedAnswer: truncate(trimmed)}
}

func custom(name model.CustomValidator, expectedAnswer, rawResponse string) Result {
	switch name {
	case model.ValidatorSelfReferenceCount:
		return selfReferenceCount(rawResponse)
	case model.ValidatorNoFabrication:
		return noFabrication(rawResponse)
	case model.ValidatorMultiInstruction:
		return multiInstruction(rawResponse)
	case model.ValidatorAdmissionOfIgnorance:
		return admissionOfIgnorance(rawResponse)
	case model.ValidatorExactWordCount:
		return exactWordCount(expectedAnswer, rawResponse)
	default:
		return Result{IsCorrect: false, ParsedAnswer: "unknown_validator:" + string(name)}
	}
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxParsedAnswerLen {
		return s
	}
	return string(runes[:maxParsedAnswerLen]) + "..."
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
