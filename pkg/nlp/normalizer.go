package nlp

import (
	"regexp"
	"strconv"
	"strings"
)

const maxInputLength = 10000

type replacement struct {
	pattern *regexp.Regexp
	with    string
}

type Normalizer struct {
	punctuationWords []replacement
	emailWords       []replacement
	domainFixes      []replacement
	letterHomophones map[string]string
	digitWords       map[string]string
	looseDigitWords  map[string]string
	repeatPattern    *regexp.Regexp
	tagPattern       *regexp.Regexp
	controlPattern   *regexp.Regexp
	ordinalPattern   *regexp.Regexp
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		// Punctuation spoken out loud, safe for every field type
		punctuationWords: []replacement{
			{regexp.MustCompile(`\bat the rate of\b`), "@"},
			{regexp.MustCompile(`\bat the rate\b`), "@"},
			{regexp.MustCompile(`\bat sign\b`), "@"},
			{regexp.MustCompile(`\bunderscore\b`), "_"},
			{regexp.MustCompile(`\b(?:hyphen|dash)\b`), "-"},
			{regexp.MustCompile(`\bplus sign\b`), "+"},
			{regexp.MustCompile(`\bfull stop\b`), "."},
		},
		// Applied only when the target field is an email address
		emailWords: []replacement{
			{regexp.MustCompile(`\bdot com\b`), ".com"},
			{regexp.MustCompile(`\bdot net\b`), ".net"},
			{regexp.MustCompile(`\bdot org\b`), ".org"},
			{regexp.MustCompile(`\bdot co dot in\b`), ".co.in"},
			{regexp.MustCompile(`\bdot co\b`), ".co"},
			{regexp.MustCompile(`\bdot in\b`), ".in"},
			{regexp.MustCompile(`\bdot io\b`), ".io"},
			{regexp.MustCompile(`\bdot edu\b`), ".edu"},
			{regexp.MustCompile(`\bdot gov\b`), ".gov"},
			{regexp.MustCompile(`\bdot\b`), "."},
			{regexp.MustCompile(`\bat\b`), "@"},
		},
		// Recognizer mangles of common mail providers
		domainFixes: []replacement{
			{regexp.MustCompile(`g\s*male|gmial|gamil|gmaill|jemail`), "gmail"},
			{regexp.MustCompile(`hot\s*male|hotmial`), "hotmail"},
			{regexp.MustCompile(`yahu|yaho\b`), "yahoo"},
			{regexp.MustCompile(`outlok|out look`), "outlook"},
		},
		letterHomophones: map[string]string{
			"ay": "a", "bee": "b", "be": "b", "sea": "c", "see": "c",
			"dee": "d", "ee": "e", "ef": "f", "gee": "g", "aitch": "h",
			"eye": "i", "jay": "j", "kay": "k", "el": "l", "em": "m",
			"en": "n", "oh": "o", "pea": "p", "cue": "q", "are": "r",
			"ess": "s", "tea": "t", "tee": "t", "you": "u", "vee": "v",
			"ex": "x", "why": "y", "zee": "z", "zed": "z",
		},
		digitWords: map[string]string{
			"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
			"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
		},
		// Homophones that only read as digits in number or phone context
		looseDigitWords: map[string]string{
			"oh": "0", "won": "1", "to": "2", "too": "2",
			"for": "4", "fore": "4", "ate": "8",
		},
		repeatPattern:  regexp.MustCompile(`\b(double|triple)\s+(zero|oh|one|two|three|four|five|six|seven|eight|nine|\d)\b`),
		tagPattern:     regexp.MustCompile(`<[^>]*>`),
		controlPattern: regexp.MustCompile(`[\x00-\x1f\x7f]`),
		ordinalPattern: regexp.MustCompile(`\b(\d+)(?:st|nd|rd|th)\b`),
	}
}

// Sanitize caps the input length and strips markup and control sequences
// before any interpretation happens.
func (n *Normalizer) Sanitize(text string) string {
	if len(text) > maxInputLength {
		text = text[:maxInputLength]
	}
	text = n.tagPattern.ReplaceAllString(text, "")
	text = n.controlPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func (n *Normalizer) Normalize(text string, fieldType string) string {
	text = strings.ToLower(n.Sanitize(text))

	for _, r := range n.punctuationWords {
		text = r.pattern.ReplaceAllString(text, r.with)
	}

	switch fieldType {
	case "email":
		return n.NormalizeEmail(text)
	case "phone", "tel":
		return n.NormalizePhone(text)
	case "number":
		return n.normalizeDigits(text)
	case "date":
		return n.ordinalPattern.ReplaceAllString(text, "$1")
	default:
		if n.LooksSpelledOut(text) {
			return n.CollapseSpelled(text)
		}
		return strings.Join(strings.Fields(text), " ")
	}
}

func (n *Normalizer) NormalizeEmail(text string) string {
	text = strings.ToLower(text)

	for _, r := range n.punctuationWords {
		text = r.pattern.ReplaceAllString(text, r.with)
	}

	if n.LooksSpelledOut(text) {
		text = n.CollapseSpelled(text)
	}

	for _, r := range n.emailWords {
		text = r.pattern.ReplaceAllString(text, r.with)
	}
	for _, r := range n.domainFixes {
		text = r.pattern.ReplaceAllString(text, r.with)
	}

	// Recognizers pad the separators with spaces: "john @ gmail . com".
	// Surrounding words are kept so a lead-in never glues into the address.
	text = regexp.MustCompile(`\s*@\s*`).ReplaceAllString(text, "@")
	text = regexp.MustCompile(`\s*\.\s*`).ReplaceAllString(text, ".")
	text = regexp.MustCompile(`\s*([_+-])\s*`).ReplaceAllString(text, "$1")

	return strings.TrimSpace(text)
}

func (n *Normalizer) NormalizePhone(text string) string {
	text = strings.ToLower(text)
	text = n.expandRepeats(text)
	text = n.normalizeDigits(text)

	hasPlus := strings.HasPrefix(strings.TrimSpace(text), "+")
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case len(d) == 10:
		return d[:3] + "-" + d[3:6] + "-" + d[6:]
	case len(d) == 11 && d[0] == '1':
		return "+1-" + d[1:4] + "-" + d[4:7] + "-" + d[7:]
	case hasPlus && len(d) > 0:
		return "+" + d
	default:
		return d
	}
}

// normalizeDigits rewrites spoken digit words in place, gluing adjacent
// digits together: "five five five" becomes "555".
func (n *Normalizer) normalizeDigits(text string) string {
	words := strings.Fields(text)
	var out []string

	for _, word := range words {
		digit, ok := n.digitWords[word]
		if !ok {
			digit, ok = n.looseDigitWords[word]
		}
		if !ok {
			out = append(out, word)
			continue
		}
		if len(out) > 0 && isDigits(out[len(out)-1]) {
			out[len(out)-1] += digit
		} else {
			out = append(out, digit)
		}
	}

	return strings.Join(out, " ")
}

// expandRepeats turns "double five" into "five five" and "triple nine"
// into "nine nine nine" before digit conversion runs.
func (n *Normalizer) expandRepeats(text string) string {
	return n.repeatPattern.ReplaceAllStringFunc(text, func(match string) string {
		parts := n.repeatPattern.FindStringSubmatch(match)
		count := 2
		if parts[1] == "triple" {
			count = 3
		}
		repeated := make([]string, count)
		for i := range repeated {
			repeated[i] = parts[2]
		}
		return strings.Join(repeated, " ")
	})
}

// LooksSpelledOut reports whether the transcript reads like the caller
// dictated individual letters: more than three tokens with over 40% of
// them single characters or letter homophones.
func (n *Normalizer) LooksSpelledOut(text string) bool {
	words := strings.Fields(strings.ToLower(text))
	if len(words) <= 3 {
		return false
	}

	single := 0
	for _, word := range words {
		if len(word) == 1 {
			single++
			continue
		}
		if _, ok := n.letterHomophones[word]; ok {
			single++
		}
	}

	return float64(single)/float64(len(words)) > 0.4
}

func (n *Normalizer) CollapseSpelled(text string) string {
	words := strings.Fields(strings.ToLower(text))
	var out strings.Builder

	for _, word := range words {
		switch {
		case word == "at":
			out.WriteString("@")
		case word == "dot":
			out.WriteString(".")
		case word == "underscore":
			out.WriteString("_")
		case word == "dash" || word == "hyphen":
			out.WriteString("-")
		case len(word) == 1:
			out.WriteString(word)
		default:
			if letter, ok := n.letterHomophones[word]; ok {
				out.WriteString(letter)
			} else if digit, ok := n.digitWords[word]; ok {
				out.WriteString(digit)
			} else {
				out.WriteString(word)
			}
		}
	}

	return out.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}
