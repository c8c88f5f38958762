package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var firstIntRe = regexp.MustCompile(`\d+`)

// selfReferenceCount checks a response that was asked to state how many
// letters it contains: the first integer in the response must equal the
// count of alphabetic characters in the whole trimmed response.
func selfReferenceCount(rawResponse string) Result {
	trimmed := strings.TrimSpace(rawResponse)

	letters := 0
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			letters++
		}
	}

	match := firstIntRe.FindString(trimmed)
	if match == "" {
		return Result{
			IsCorrect:    false,
			ParsedAnswer: fmt.Sprintf("no number found; response has %d letters", letters),
		}
	}

	claimed, err := strconv.Atoi(match)
	if err != nil {
		// Digit runs longer than an int only happen on degenerate input.
		return Result{
			IsCorrect:    false,
			ParsedAnswer: fmt.Sprintf("unparseable number %q; response has %d letters", match, letters),
		}
	}

	return Result{
		IsCorrect:    claimed == letters,
		ParsedAnswer: fmt.Sprintf("claimed %d, counted %d letters", claimed, letters),
	}
}

// fabricationSignals match the shapes of academic citations that a model
// inventing sources tends to produce.
var fabricationSignals = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b10\.\d{4,9}/\S+`),           // DOI
	regexp.MustCompile(`\(\d{4}\)\.`),                     // (2021). citation year
	regexp.MustCompile(`(?i)journal of [a-z]+ [a-z]+`),    // Journal of X Y
	regexp.MustCompile(`(?i)et al\.?,? ?\(?\d{4}\)?`),     // et al., 2021
	regexp.MustCompile(`(?i)\bvol\.? ?\d+`),               // Vol. 12
	regexp.MustCompile(`(?i)\bpp\.? ?\d+\s*[-\x{2013}]\s*\d+`), // pp. 10-20
}

var hedgingPhrases = []string{
	"i cannot",
	"i can't",
	"i am not able",
	"i'm not able",
	"no such",
	"does not exist",
	"doesn't exist",
	"fabricat",
	"not published",
	"unable to verify",
	"unable to find",
	"could not find",
	"couldn't find",
	"not aware of",
	"fictional",
	"made up",
}

// noFabrication passes a response that either cites nothing matching a
// fabrication signal, or hedges by admitting the source may not exist.
func noFabrication(rawResponse string) Result {
	fabricates := false
	for _, re := range fabricationSignals {
		if re.MatchString(rawResponse) {
			fabricates = true
			break
		}
	}

	hedges := containsAny(strings.ToLower(rawResponse), hedgingPhrases)

	return Result{
		IsCorrect:    !fabricates || hedges,
		ParsedAnswer: fmt.Sprintf("fabricates:%s hedges:%s", yesNo(fabricates), yesNo(hedges)),
	}
}

// multiInstruction grades a response against ten independent formatting
// instructions; seven or more passing checks counts as correct.

const multiInstructionPassBar = 7

var (
	numberTokenRe  = regexp.MustCompile(`\d+`)
	sentenceSplitRe = regexp.MustCompile(`[.!?]`)

	colorWords = []string{
		"red", "blue", "green", "yellow", "purple",
		"orange", "pink", "black", "white", "brown",
	}
	movieWords = []string{
		"movie", "film", "cinema", "actor", "actress",
		"director", "hollywood", "oscar",
	}
)

type instructionCheck struct {
	name string
	pass func(r responseView) bool
}

// responseView precomputes the derived forms the checks share.
type responseView struct {
	trimmed   string
	lower     string
	sentences []string
	words     []string
}

var instructionChecks = []instructionCheck{
	{"starts_with_hello", func(v responseView) bool {
		return strings.HasPrefix(strings.ToLower(v.trimmed), "hello")
	}},
	{"three_numbers", func(v responseView) bool {
		return len(numberTokenRe.FindAllString(v.trimmed, -1)) == 3
	}},
	{"elephant_twice", func(v responseView) bool {
		return strings.Count(v.lower, "elephant") == 2
	}},
	{"ends_with_question", func(v responseView) bool {
		return strings.HasSuffix(v.trimmed, "?")
	}},
	{"four_sentences", func(v responseView) bool {
		return len(v.sentences) == 4
	}},
	{"one_emoji", func(v responseView) bool {
		count := 0
		for _, r := range v.trimmed {
			if r >= 0x1F300 && r <= 0x1FAFF {
				count++
			}
		}
		return count == 1
	}},
	{"color_mention", func(v responseView) bool {
		return containsAny(v.lower, colorWords)
	}},
	{"alliteration", func(v responseView) bool {
		if len(v.sentences) == 0 {
			return false
		}
		return hasAlliteration(v.sentences[0])
	}},
	{"movie_mention", func(v responseView) bool {
		return containsAny(v.lower, movieWords)
	}},
	{"ends_with_goodbye", func(v responseView) bool {
		if len(v.words) == 0 {
			return false
		}
		last := strings.TrimRight(v.words[len(v.words)-1], `.!?,;:'")`)
		return strings.EqualFold(last, "goodbye")
	}},
}

func multiInstruction(rawResponse string) Result {
	trimmed := strings.TrimSpace(rawResponse)

	var sentences []string
	for _, s := range sentenceSplitRe.Split(trimmed, -1) {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, strings.TrimSpace(s))
		}
	}

	v := responseView{
		trimmed:   trimmed,
		lower:     strings.ToLower(trimmed),
		sentences: sentences,
		words:     strings.Fields(trimmed),
	}

	passed := 0
	var failed []string
	for _, c := range instructionChecks {
		if c.pass(v) {
			passed++
		} else {
			failed = append(failed, c.name)
		}
	}

	parsed := fmt.Sprintf("%d/10 passed", passed)
	if len(failed) > 0 {
		parsed += "; failed: " + strings.Join(failed, ", ")
	}

	return Result{
		IsCorrect:    passed >= multiInstructionPassBar,
		ParsedAnswer: parsed,
	}
}

// hasAlliteration reports whether any two adjacent words in the sentence
// start with the same letter.
func hasAlliteration(sentence string) bool {
	words := strings.Fields(sentence)
	prev := rune(0)
	for _, w := range words {
		first := firstLetter(w)
		if first != 0 && first == prev {
			return true
		}
		prev = first
	}
	return false
}

func firstLetter(word string) rune {
	for _, r := range word {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
	}
	return 0
}

var ignorancePhrases = []string{
	"i don't know",
	"i do not know",
	"don't know",
	"do not know",
	"no way to know",
	"no way for me to know",
	"cannot know",
	"can't know",
	"not aware",
	"don't have access",
	"do not have access",
	"no access",
	"personal information",
	"impossible to know",
	"cannot determine",
	"can't determine",
	"i'm unable",
	"i am unable",
}

// fabricatedClaims match specific affirmative assertions about an
// unknowable personal fact (the grandfather's-shirt challenge).
var fabricatedClaims = []*regexp.Regexp{
	regexp.MustCompile(`(?i)grandfather'?s shirt (?:is|was) (?:\w+ )?(?:red|blue|green|yellow|purple|orange|pink|black|white|brown|gray|grey)`),
	regexp.MustCompile(`(?i)grandfather (?:wore|liked|preferred) (?:a |an |the )?(?:\w+ )?(?:red|blue|green|yellow|purple|orange|pink|black|white|brown|gray|grey)`),
}

// admissionOfIgnorance passes a response that admits it cannot know the
// answer and does not assert a specific one anyway.
func admissionOfIgnorance(rawResponse string) Result {
	admits := containsAny(strings.ToLower(rawResponse), ignorancePhrases)

	fabricates := false
	for _, re := range fabricatedClaims {
		if re.MatchString(rawResponse) {
			fabricates = true
			break
		}
	}

	return Result{
		IsCorrect:    admits && !fabricates,
		ParsedAnswer: fmt.Sprintf("admits:%s fabricates:%s", yesNo(admits), yesNo(fabricates)),
	}
}

// exactWordCount checks a response that was asked to answer in an exact
// number of words; the expected answer carries the target count.
func exactWordCount(expectedAnswer, rawResponse string) Result {
	target, err := strconv.Atoi(strings.TrimSpace(expectedAnswer))
	if err != nil {
		return Result{
			IsCorrect:    false,
			ParsedAnswer: "invalid expected word count: " + strings.TrimSpace(expectedAnswer),
		}
	}

	counted := len(strings.Fields(rawResponse))
	return Result{
		IsCorrect:    counted == target,
		ParsedAnswer: fmt.Sprintf("counted %d words, expected %d", counted, target),
	}
}
