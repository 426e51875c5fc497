package nlp

import (
	"regexp"
	"strings"
)

type LanguageDetector struct {
	devanagari *regexp.Regexp
	greetings  map[string]string
	indicators map[string][]*regexp.Regexp
	dialects   map[string][]*regexp.Regexp
	transforms map[string][]replacement
}

func NewLanguageDetector() *LanguageDetector {
	return &LanguageDetector{
		devanagari: regexp.MustCompile(`\p{Devanagari}`),
		greetings: map[string]string{
			"hola": "es", "buenos dias": "es", "buenas tardes": "es",
			"bonjour": "fr", "salut": "fr", "bonsoir": "fr",
			"namaste": "hi", "namaskar": "hi",
		},
		indicators: map[string][]*regexp.Regexp{
			"es": {
				regexp.MustCompile(`\b(?:el|la|los|las|mi|es|soy)\b`),
				regexp.MustCompile(`\b(?:correo|nombre|telefono|numero)\b`),
				regexp.MustCompile(`\b(?:por favor|gracias|si)\b`),
			},
			"fr": {
				regexp.MustCompile(`\b(?:le|la|les|mon|ma|je|suis)\b`),
				regexp.MustCompile(`\b(?:courriel|nom|telephone|numero)\b`),
				regexp.MustCompile(`\b(?:merci|oui|s'il vous plait)\b`),
			},
		},
		dialects: map[string][]*regexp.Regexp{
			"en-IN": {
				regexp.MustCompile(`\b(?:lakh|lakhs|crore|crores)\b`),
				regexp.MustCompile(`\b(?:prepone|do the needful|kindly)\b`),
			},
			"en-GB": {
				regexp.MustCompile(`\b(?:postcode|post code)\b`),
				regexp.MustCompile(`\b(?:nought|fortnight|whilst)\b`),
			},
		},
		transforms: map[string][]replacement{
			"en-GB": {
				{regexp.MustCompile(`\bpost\s?code\b`), "zip code"},
				{regexp.MustCompile(`\bnought\b`), "zero"},
			},
			"en-IN": {
				{regexp.MustCompile(`\bkindly\b`), "please"},
			},
		},
	}
}

// Detect tags the transcript with its apparent language. Tagging only; the
// engine never translates.
func (ld *LanguageDetector) Detect(text string) DetectedLanguage {
	if ld.devanagari.MatchString(text) {
		return DetectedLanguage{Tag: "hi", Confidence: 0.95}
	}

	lower := strings.ToLower(text)

	for greeting, tag := range ld.greetings {
		if containsWord(lower, greeting) {
			return DetectedLanguage{Tag: tag, Confidence: 0.9}
		}
	}

	bestTag := ""
	bestHits := 0
	for _, tag := range []string{"es", "fr"} {
		hits := 0
		for _, pattern := range ld.indicators[tag] {
			hits += len(pattern.FindAllString(lower, -1))
		}
		if hits > bestHits {
			bestHits = hits
			bestTag = tag
		}
	}
	if bestHits >= 2 {
		confidence := 0.5 + float64(bestHits)*0.1
		if confidence > 0.9 {
			confidence = 0.9
		}
		return DetectedLanguage{Tag: bestTag, Confidence: confidence}
	}

	for _, tag := range []string{"en-IN", "en-GB"} {
		for _, pattern := range ld.dialects[tag] {
			if pattern.MatchString(lower) {
				return DetectedLanguage{Tag: tag, Confidence: 0.7}
			}
		}
	}

	return DetectedLanguage{Tag: "en-US", Confidence: 0.5}
}

// ApplyDialectTransforms rewrites dialect-specific vocabulary into the
// engine's reference forms ("postcode" -> "zip code") so downstream
// extraction only deals with one spelling.
func (ld *LanguageDetector) ApplyDialectTransforms(text string, tag string) string {
	rules, ok := ld.transforms[tag]
	if !ok {
		return text
	}

	lower := strings.ToLower(text)
	for _, rule := range rules {
		lower = rule.pattern.ReplaceAllString(lower, rule.with)
	}
	return lower
}
