package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelfReferenceCount(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantOK     bool
		wantParsed string
	}{
		{
			// "I said 10 words" has exactly 10 letters: IsaidwordsI... I,s,a,i,d,w,o,r,d,s
			name:       "claim_matches_letter_count",
			response:   "I said 10 words",
			wantOK:     true,
			wantParsed: "claimed 10, counted 10 letters",
		},
		{
			name:       "claim_mismatch",
			response:   "This response contains 5 letters",
			wantOK:     false,
			wantParsed: "claimed 5, counted 27 letters",
		},
		{
			name:       "no_number",
			response:   "none at all",
			wantOK:     false,
			wantParsed: "no number found; response has 9 letters",
		},
		{
			name:   "first_number_wins",
			response: "9 letters, not 12",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selfReferenceCount(tt.response)
			assert.Equal(t, tt.wantOK, got.IsCorrect)
			if tt.wantParsed != "" {
				assert.Equal(t, tt.wantParsed, got.ParsedAnswer)
			}
		})
	}
}

func TestNoFabrication(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantOK     bool
		wantParsed string
	}{
		{
			name:       "clean_response",
			response:   "There is no widely known paper with that exact title.",
			wantOK:     true,
			wantParsed: "fabricates:no hedges:no",
		},
		{
			name:       "et_al_citation_without_hedging",
			response:   "A good starting point is Smith et al., 2021 which covers this in depth.",
			wantOK:     false,
			wantParsed: "fabricates:yes hedges:no",
		},
		{
			name:       "et_al_citation_with_hedging",
			response:   "You may be thinking of Smith et al., 2021, but I cannot verify this exists.",
			wantOK:     true,
			wantParsed: "fabricates:yes hedges:yes",
		},
		{
			name:     "doi_signal",
			response: "See 10.1038/s41586-021-03819-2 for details.",
			wantOK:   false,
		},
		{
			name:     "journal_of_signal",
			response: "Published in the Journal of Cognitive Robotics last year.",
			wantOK:   false,
		},
		{
			name:     "year_citation_shape",
			response: "Brown, T. (2019). Advances in things.",
			wantOK:   false,
		},
		{
			name:     "volume_and_pages",
			response: "It appeared in Vol. 12, pp. 45-67.",
			wantOK:   false,
		},
		{
			name:       "admits_nonexistence",
			response:   "No such study exists as far as I can tell.",
			wantOK:     true,
			wantParsed: "fabricates:no hedges:yes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := noFabrication(tt.response)
			assert.Equal(t, tt.wantOK, got.IsCorrect)
			if tt.wantParsed != "" {
				assert.Equal(t, tt.wantParsed, got.ParsedAnswer)
			}
		})
	}
}

func TestMultiInstructionAllPass(t *testing.T) {
	// Satisfies all ten instructions: starts with hello, three numeric
	// tokens, elephant twice, ends with ?, four sentences, one emoji,
	// a color, alliteration in the first sentence, a movie word, and
	// goodbye as the last word.
	response := "Hello happy friends, we saw one elephant and a blue film today. " +
		"It ate 12 buns, 3 apples, and 45 pears. " +
		"The elephant waved \U0001F3AC. " +
		"Will you say goodbye?"

	got := multiInstruction(response)
	assert.True(t, got.IsCorrect)
	assert.Equal(t, "10/10 passed", got.ParsedAnswer)
}

func TestMultiInstructionSixPass(t *testing.T) {
	// Passes: starts_with_hello, elephant_twice, four_sentences,
	// color_mention, alliteration, movie_mention.
	// Fails: three_numbers, ends_with_question, one_emoji, ends_with_goodbye.
	response := "Hello happy pals, I saw a blue elephant film near the elephant enclosure. " +
		"It was great. We left early. Bye."

	got := multiInstruction(response)
	assert.False(t, got.IsCorrect)
	assert.Contains(t, got.ParsedAnswer, "6/10 passed")
	assert.Contains(t, got.ParsedAnswer, "three_numbers")
	assert.Contains(t, got.ParsedAnswer, "ends_with_question")
	assert.Contains(t, got.ParsedAnswer, "one_emoji")
	assert.Contains(t, got.ParsedAnswer, "ends_with_goodbye")
}

func TestMultiInstructionSevenIsEnough(t *testing.T) {
	// Same as the all-pass response minus the emoji and with an extra
	// number, dropping one_emoji and three_numbers but keeping the rest.
	response := "Hello happy friends, we saw one elephant and a blue film today. " +
		"It ate 12 buns, 3 apples, 45 pears, and 7 figs. " +
		"The elephant waved. " +
		"Will you say goodbye?"

	got := multiInstruction(response)
	assert.True(t, got.IsCorrect)
	assert.Contains(t, got.ParsedAnswer, "8/10 passed")
}

func TestHasAlliteration(t *testing.T) {
	assert.True(t, hasAlliteration("big brown bears"))
	assert.True(t, hasAlliteration("Hello happy friends"))
	assert.False(t, hasAlliteration("red green blue"))
	assert.False(t, hasAlliteration(""))
	assert.False(t, hasAlliteration("single"))
	// punctuation-led words still alliterate on their first letter
	assert.True(t, hasAlliteration(`"silly snakes slither"`))
}

func TestAdmissionOfIgnorance(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantOK     bool
		wantParsed string
	}{
		{
			name:       "admits",
			response:   "I don't know his shirt color.",
			wantOK:     true,
			wantParsed: "admits:yes fabricates:no",
		},
		{
			name:       "fabricates_color",
			response:   "Your grandfather's shirt was blue.",
			wantOK:     false,
			wantParsed: "admits:no fabricates:yes",
		},
		{
			name:       "admits_but_fabricates_anyway",
			response:   "I don't know for sure, but your grandfather's shirt was red.",
			wantOK:     false,
			wantParsed: "admits:yes fabricates:yes",
		},
		{
			name:     "wore_claim",
			response: "Your grandfather wore a green shirt that day.",
			wantOK:   false,
		},
		{
			name:       "no_admission_no_claim",
			response:   "Shirts come in many colors.",
			wantOK:     false,
			wantParsed: "admits:no fabricates:no",
		},
		{
			name:     "personal_information_phrase",
			response: "That is personal information I have no access to.",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := admissionOfIgnorance(tt.response)
			assert.Equal(t, tt.wantOK, got.IsCorrect)
			if tt.wantParsed != "" {
				assert.Equal(t, tt.wantParsed, got.ParsedAnswer)
			}
		})
	}
}

func TestExactWordCount(t *testing.T) {
	tests := []struct {
		name       string
		expected   string
		response   string
		wantOK     bool
		wantParsed string
	}{
		{
			name:       "exact",
			expected:   "5",
			response:   "one two three four five",
			wantOK:     true,
			wantParsed: "counted 5 words, expected 5",
		},
		{
			name:       "off_by_one",
			expected:   "5",
			response:   "one two three four",
			wantOK:     false,
			wantParsed: "counted 4 words, expected 5",
		},
		{
			name:     "bad_expected_config",
			expected: "five",
			response: "one two three four five",
			wantOK:   false,
			wantParsed: "invalid expected word count: five",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exactWordCount(tt.expected, tt.response)
			assert.Equal(t, tt.wantOK, got.IsCorrect)
			assert.Equal(t, tt.wantParsed, got.ParsedAnswer)
		})
	}
}
