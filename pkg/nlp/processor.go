package nlp

import (
	"math"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type NLPProcessor struct {
	normalizer   *Normalizer
	extractor    *FieldExtractor
	detector     *LanguageDetector
	commands     map[string]Command
	affirmations map[string]bool
	negations    map[string]bool
}

func NewProcessor() INLPProcessor {
	nlp := &NLPProcessor{
		normalizer: NewNormalizer(),
		detector:   NewLanguageDetector(),
		commands: map[string]Command{
			"skip": CommandSkip, "skip this": CommandSkip, "skip this one": CommandSkip,
			"skip this question": CommandSkip, "skip it": CommandSkip,
			"next": CommandSkip, "next question": CommandSkip,
			"pass": CommandSkip, "move on": CommandSkip,

			"repeat": CommandRepeat, "repeat that": CommandRepeat,
			"repeat the question": CommandRepeat, "say again": CommandRepeat,
			"say that again": CommandRepeat, "come again": CommandRepeat,
			"pardon": CommandRepeat, "what was that": CommandRepeat,
			"whats that": CommandRepeat, "what did you say": CommandRepeat,

			"back": CommandBack, "go back": CommandBack, "previous": CommandBack,
			"previous question": CommandBack, "undo": CommandBack,
			"undo that": CommandBack, "change my answer": CommandBack,

			"stop": CommandStop, "cancel": CommandStop, "quit": CommandStop,
			"exit": CommandStop, "end": CommandStop, "stop the form": CommandStop,
			"im done": CommandStop, "i am done": CommandStop, "finish later": CommandStop,
		},
		affirmations: map[string]bool{
			"yes": true, "yeah": true, "yep": true, "yup": true, "y": true,
			"correct": true, "right": true, "thats right": true,
			"thats correct": true, "sure": true, "ok": true, "okay": true,
			"confirm": true, "confirmed": true, "exactly": true,
		},
		negations: map[string]bool{
			"no": true, "nope": true, "nah": true, "n": true,
			"wrong": true, "incorrect": true, "thats wrong": true,
			"not right": true, "not correct": true, "no thats wrong": true,
			"thats not right": true, "thats not correct": true,
		},
	}
	nlp.extractor = NewFieldExtractor(nlp.normalizer, nlp.Similarity)
	return nlp
}

// Process runs the deterministic pipeline over one transcript: commands
// first, then multi-field recognition against the remaining set, then the
// single target field.
func (nlp *NLPProcessor) Process(text string, target FieldSpec, remaining []FieldSpec) (*ExtractionResult, error) {
	startTime := time.Now()

	language := nlp.detector.Detect(text)
	if strings.HasPrefix(language.Tag, "en-") && language.Tag != "en-US" {
		text = nlp.detector.ApplyDialectTransforms(text, language.Tag)
	}

	if command, ok := nlp.MatchCommand(text); ok {
		return &ExtractionResult{
			Kind:           ResultCommand,
			Command:        command,
			Language:       language,
			ProcessingTime: time.Since(startTime).String(),
		}, nil
	}

	if len(remaining) > 1 {
		if batch := nlp.ExtractBatch(text, remaining); len(batch) >= 2 {
			return &ExtractionResult{
				Kind:           ResultBatch,
				Batch:          batch,
				Language:       language,
				ProcessingTime: time.Since(startTime).String(),
			}, nil
		}
	}

	return &ExtractionResult{
		Kind:           ResultSingle,
		Single:         nlp.ExtractField(text, target),
		Language:       language,
		ProcessingTime: time.Since(startTime).String(),
	}, nil
}

func (nlp *NLPProcessor) Normalize(text string, fieldType string) string {
	return nlp.normalizer.Normalize(text, fieldType)
}

func (nlp *NLPProcessor) MatchCommand(text string) (Command, bool) {
	cleaned := nlp.cleanText(stripApostrophes(text))

	words := strings.Fields(cleaned)
	var kept []string
	for _, word := range words {
		if nlp.extractor.hesitations[word] || word == "please" {
			continue
		}
		kept = append(kept, word)
	}
	cleaned = strings.Join(kept, " ")

	command, ok := nlp.commands[cleaned]
	return command, ok
}

func (nlp *NLPProcessor) IsAffirmation(text string) bool {
	cleaned := nlp.cleanText(stripApostrophes(text))
	if nlp.affirmations[cleaned] {
		return true
	}
	words := strings.Fields(cleaned)
	return len(words) > 0 && nlp.affirmations[words[0]] && len(words) <= 4
}

func (nlp *NLPProcessor) IsNegation(text string) bool {
	cleaned := nlp.cleanText(stripApostrophes(text))
	if nlp.negations[cleaned] {
		return true
	}
	words := strings.Fields(cleaned)
	return len(words) > 0 && nlp.negations[words[0]] && len(words) <= 4
}

func (nlp *NLPProcessor) ExtractField(text string, field FieldSpec) *FieldCandidate {
	return nlp.extractor.ExtractField(text, field)
}

func (nlp *NLPProcessor) ExtractBatch(text string, fields []FieldSpec) []FieldCandidate {
	return nlp.extractor.ExtractBatch(text, fields)
}

func (nlp *NLPProcessor) Validate(value string, field FieldSpec) []string {
	return nlp.extractor.Validate(value, field)
}

func (nlp *NLPProcessor) DetectLanguage(text string) DetectedLanguage {
	return nlp.detector.Detect(text)
}

func (nlp *NLPProcessor) SuggestCorrections(raw string, field FieldSpec) []string {
	return nlp.extractor.SuggestCorrections(raw, field)
}

func (nlp *NLPProcessor) Similarity(text1, text2 string) float64 {
	norm1 := nlp.cleanText(text1)
	norm2 := nlp.cleanText(text2)

	if norm1 == norm2 {
		return 1.0
	}

	if strings.Contains(norm1, norm2) || strings.Contains(norm2, norm1) {
		shorter := norm1
		longer := norm2
		if len(norm1) > len(norm2) {
			shorter = norm2
			longer = norm1
		}
		if len(longer) == 0 {
			return 0.0
		}
		return float64(len(shorter)) / float64(len(longer))
	}

	distance := nlp.levenshteinDistance(norm1, norm2)
	maxLen := math.Max(float64(len(norm1)), float64(len(norm2)))

	if maxLen == 0 {
		return 0.0
	}

	return math.Max(0, 1.0-(float64(distance)/maxLen))
}

func (nlp *NLPProcessor) levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
		matrix[i][0] = i
	}

	for j := 0; j <= len(s2); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len(s1)][len(s2)]
}

func min(a, b, c int) int {
	if a < b && a < c {
		return a
	} else if b < c {
		return b
	}
	return c
}

func (nlp *NLPProcessor) cleanText(text string) string {
	text = strings.ToLower(text)

	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, _ := transform.String(t, text)

	result = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, result)

	words := strings.Fields(result)
	return strings.Join(words, " ")
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// stripApostrophes runs before cleanText for vocabulary matching so
// "that's right" lands on the "thats right" key instead of "that s right".
func stripApostrophes(text string) string {
	return strings.NewReplacer("'", "", "’", "").Replace(text)
}
