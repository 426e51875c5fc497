package nlp

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var commonMailDomains = []string{"gmail.com", "yahoo.com", "outlook.com", "hotmail.com", "icloud.com"}

type FieldExtractor struct {
	normalizer  *Normalizer
	similarity  func(text1, text2 string) float64
	numberWords map[string]float64

	emailSearch  *regexp.Regexp
	emailExact   *regexp.Regexp
	e164Exact    *regexp.Regexp
	phoneShape   *regexp.Regexp
	isoDate      *regexp.Regexp
	slashDate    *regexp.Regexp
	monthDate    *regexp.Regexp
	leadIns      []*regexp.Regexp
	nameLeadIn   *regexp.Regexp
	hesitations  map[string]bool
	uncertainty  []string
	segmentSplit *regexp.Regexp
}

func NewFieldExtractor(normalizer *Normalizer, similarity func(string, string) float64) *FieldExtractor {
	return &FieldExtractor{
		normalizer: normalizer,
		similarity: similarity,
		numberWords: map[string]float64{
			// Units
			"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
			"six": 6, "seven": 7, "eight": 8, "nine": 9,
			"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
			"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
			"eighteen": 18, "nineteen": 19,

			// Tens
			"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
			"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,

			// Multipliers
			"hundred": 100, "thousand": 1000, "lakh": 100000, "lakhs": 100000,
			"million": 1000000, "crore": 10000000, "crores": 10000000,
			"billion": 1000000000,
		},
		emailSearch: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		emailExact:  regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`),
		e164Exact:   regexp.MustCompile(`^\+?[1-9]\d{6,14}$`),
		phoneShape:  regexp.MustCompile(`^(?:\+1-)?\d{3}-\d{3}-\d{4}$`),
		isoDate:     regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
		slashDate:   regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`),
		monthDate:   regexp.MustCompile(`\b(?:(\d{1,2})\s+)?(january|february|march|april|may|june|july|august|september|october|november|december)\s*(\d{1,2})?(?:,?\s*(\d{4}))?\b`),
		leadIns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^(?:um|uh|er|hmm)[,.]?\s+`),
			regexp.MustCompile(`(?i)^my\s+[a-z' ]{0,24}?\b(?:is|was|would be)\s+`),
			regexp.MustCompile(`(?i)^(?:i\s*am|i'm|im)\s+`),
			regexp.MustCompile(`(?i)^(?:it\s*is|it's|its|that\s*is|that's|this\s+is)\s+`),
			regexp.MustCompile(`(?i)^(?:call\s+me|you\s+can\s+call\s+me)\s+`),
			regexp.MustCompile(`(?i)^(?:the\s+answer\s+is|answer\s+is|put|write|use)\s+`),
		},
		nameLeadIn: regexp.MustCompile(`(?i)^(?:i'?m|i\s+am|my\s+name'?s?|this\s+is|call\s+me)\b`),
		hesitations: map[string]bool{
			"um": true, "umm": true, "uh": true, "uhh": true,
			"er": true, "err": true, "hmm": true, "hm": true,
		},
		uncertainty:  []string{"i think", "maybe", "i guess", "not sure", "probably", "might be"},
		segmentSplit: regexp.MustCompile(`\s*(?:,\s|;|\.\s|\band\s+my\b|\band\b)\s*`),
	}
}

func (fe *FieldExtractor) ExtractField(text string, field FieldSpec) *FieldCandidate {
	raw := fe.normalizer.Sanitize(text)
	candidate := &FieldCandidate{FieldName: field.Name, RawText: raw}

	switch field.Type {
	case "email":
		fe.extractEmail(raw, candidate)
	case "phone", "tel":
		fe.extractPhone(raw, candidate)
	case "number":
		fe.extractNumber(raw, candidate)
	case "date":
		fe.extractDate(raw, candidate)
	case "select", "radio":
		fe.extractOption(raw, field, candidate)
	default:
		fe.extractText(raw, candidate)
	}

	candidate.Confidence -= fe.ambiguityPenalty(raw)
	if candidate.Confidence < 0 {
		candidate.Confidence = 0
	}
	if candidate.Confidence > 1 {
		candidate.Confidence = 1
	}
	candidate.Issues = fe.Validate(candidate.Value, field)

	return candidate
}

func (fe *FieldExtractor) extractEmail(raw string, candidate *FieldCandidate) {
	normalized := fe.normalizer.NormalizeEmail(fe.stripLeadIns(raw))

	if match := fe.emailSearch.FindString(normalized); match != "" {
		// "john smith at gmail dot com": prefer the whole collapsed string
		// when the address closes the utterance, so the first token survives.
		if idx := strings.Index(normalized, match); idx > 0 && idx+len(match) == len(normalized) {
			if collapsed := strings.ReplaceAll(normalized, " ", ""); fe.emailExact.MatchString(collapsed) {
				match = collapsed
			}
		}
		candidate.Value = match
		candidate.Confidence = 0.95
		candidate.Source = "format"
		return
	}

	if strings.Contains(normalized, "@") {
		candidate.Value = strings.ReplaceAll(normalized, " ", "")
		candidate.Confidence = 0.6
		candidate.Source = "partial"
		return
	}

	candidate.Value = normalized
	candidate.Confidence = 0.3
	candidate.Source = "raw"
}

func (fe *FieldExtractor) extractPhone(raw string, candidate *FieldCandidate) {
	normalized := fe.normalizer.NormalizePhone(raw)

	if fe.phoneShape.MatchString(normalized) {
		candidate.Value = normalized
		candidate.Confidence = 0.95
		candidate.Source = "format"
		return
	}

	digits := strings.TrimPrefix(normalized, "+")
	if len(digits) >= 7 && len(digits) <= 15 && isDigits(digits) {
		candidate.Value = normalized
		candidate.Confidence = 0.65
		candidate.Source = "partial"
		return
	}

	candidate.Value = normalized
	candidate.Confidence = 0.2
	candidate.Source = "raw"
}

func (fe *FieldExtractor) extractNumber(raw string, candidate *FieldCandidate) {
	text := strings.ToLower(raw)

	numPattern := regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`)
	unitPattern := regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(thousand|grand|k|lakhs?|million|crores?|billion)\b`)

	// Pattern 1: numeral plus a spoken multiplier (5 thousand, 2 lakh, 1.5 million).
	// Checked before plain numerals so "5 thousand" does not read as 5.
	if matches := unitPattern.FindStringSubmatch(text); len(matches) > 0 {
		num, _ := strconv.ParseFloat(matches[1], 64)
		multiplier := 1.0
		switch strings.TrimSuffix(matches[2], "s") {
		case "thousand", "grand", "k":
			multiplier = 1000
		case "lakh":
			multiplier = 100000
		case "million":
			multiplier = 1000000
		case "crore":
			multiplier = 10000000
		case "billion":
			multiplier = 1000000000
		}
		candidate.Value = formatNumber(num * multiplier)
		candidate.Confidence = 0.85
		candidate.Source = "unit"
		return
	}

	// Pattern 2: plain numerals, possibly with thousand separators (1,500 / 42 / 3.14)
	if match := numPattern.FindString(text); match != "" {
		cleaned := strings.ReplaceAll(match, ",", "")
		if amount, err := strconv.ParseFloat(cleaned, 64); err == nil {
			candidate.Value = formatNumber(amount)
			candidate.Confidence = 0.9
			candidate.Source = "numeric"
			return
		}
	}

	// Pattern 3: fully spelled out ("twenty five thousand")
	normalized := fe.normalizer.Normalize(text, "number")
	if amount := fe.parseNumberWords(normalized); amount > 0 {
		candidate.Value = formatNumber(amount)
		candidate.Confidence = 0.7
		candidate.Source = "words"
		return
	}

	candidate.Value = strings.TrimSpace(normalized)
	candidate.Confidence = 0.2
	candidate.Source = "raw"
}

// parseNumberWords folds spoken magnitudes left to right: units accumulate,
// "hundred" scales the running group, larger multipliers flush it into the
// total ("two lakh fifty thousand" -> 250000).
func (fe *FieldExtractor) parseNumberWords(text string) float64 {
	words := strings.Fields(text)
	total := 0.0
	current := 0.0

	for _, word := range words {
		if isDigits(word) {
			v, _ := strconv.ParseFloat(word, 64)
			current += v
			continue
		}

		val, exists := fe.numberWords[word]
		if !exists {
			continue
		}

		if val >= 1000 {
			if current == 0 {
				current = 1
			}
			total += current * val
			current = 0
		} else if val == 100 {
			if current == 0 {
				current = 1
			}
			current *= val
		} else {
			current += val
		}
	}

	return total + current
}

func (fe *FieldExtractor) extractDate(raw string, candidate *FieldCandidate) {
	normalized := fe.normalizer.Normalize(raw, "date")

	if match := fe.isoDate.FindString(normalized); match != "" {
		candidate.Value = match
		candidate.Confidence = 0.95
		candidate.Source = "format"
		return
	}

	if parts := fe.slashDate.FindStringSubmatch(normalized); len(parts) > 0 {
		candidate.Value = parts[0]
		candidate.Confidence = 0.9
		candidate.Source = "format"
		return
	}

	switch {
	case strings.Contains(normalized, "today"):
		candidate.Value = time.Now().Format("2006-01-02")
		candidate.Confidence = 0.85
		candidate.Source = "relative"
		return
	case strings.Contains(normalized, "tomorrow"):
		candidate.Value = time.Now().AddDate(0, 0, 1).Format("2006-01-02")
		candidate.Confidence = 0.85
		candidate.Source = "relative"
		return
	case strings.Contains(normalized, "yesterday"):
		candidate.Value = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
		candidate.Confidence = 0.85
		candidate.Source = "relative"
		return
	}

	if match := fe.monthDate.FindString(normalized); match != "" {
		candidate.Value = match
		candidate.Confidence = 0.8
		candidate.Source = "words"
		return
	}

	candidate.Value = strings.TrimSpace(normalized)
	candidate.Confidence = 0.3
	candidate.Source = "raw"
}

func (fe *FieldExtractor) extractOption(raw string, field FieldSpec, candidate *FieldCandidate) {
	cleaned := strings.TrimSpace(strings.ToLower(fe.stripLeadIns(raw)))

	for _, option := range field.Options {
		if strings.EqualFold(cleaned, option) {
			candidate.Value = option
			candidate.Confidence = 0.95
			candidate.Source = "format"
			return
		}
	}

	for _, option := range field.Options {
		if containsWord(cleaned, strings.ToLower(option)) {
			candidate.Value = option
			candidate.Confidence = 0.85
			candidate.Source = "keyword"
			return
		}
	}

	bestScore := 0.0
	bestOption := ""
	for _, option := range field.Options {
		if score := fe.similarity(cleaned, option); score > bestScore {
			bestScore = score
			bestOption = option
		}
	}
	if bestScore >= 0.6 {
		candidate.Value = bestOption
		candidate.Confidence = 0.5 + bestScore*0.3
		candidate.Source = "fuzzy"
		return
	}

	candidate.Value = cleaned
	candidate.Confidence = 0.25
	candidate.Source = "raw"
}

func (fe *FieldExtractor) extractText(raw string, candidate *FieldCandidate) {
	stripped, hadLeadIn := fe.stripLeadInsTracked(raw)
	value := strings.TrimSpace(strings.Trim(stripped, " .,!?"))

	if fe.normalizer.LooksSpelledOut(value) {
		value = fe.normalizer.CollapseSpelled(value)
	}

	candidate.Value = value
	switch {
	case value == "":
		candidate.Confidence = 0.1
		candidate.Source = "raw"
	case hadLeadIn:
		candidate.Confidence = 0.85
		candidate.Source = "keyword"
	case len(strings.Fields(value)) <= 6:
		candidate.Confidence = 0.7
		candidate.Source = "position"
	default:
		candidate.Confidence = 0.5
		candidate.Source = "position"
	}
}

func (fe *FieldExtractor) stripLeadIns(raw string) string {
	stripped, _ := fe.stripLeadInsTracked(raw)
	return stripped
}

func (fe *FieldExtractor) stripLeadInsTracked(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	matched := false
	for changed := true; changed; {
		changed = false
		for _, leadIn := range fe.leadIns {
			if loc := leadIn.FindStringIndex(text); loc != nil && loc[0] == 0 {
				text = text[loc[1]:]
				matched = true
				changed = true
			}
		}
	}
	return text, matched
}

// ambiguityPenalty discounts candidates extracted from hedged or branching
// transcripts ("um, maybe john or jane").
func (fe *FieldExtractor) ambiguityPenalty(raw string) float64 {
	lower := strings.ToLower(raw)
	penalty := 0.0

	hits := 0
	for _, word := range strings.Fields(lower) {
		if fe.hesitations[strings.Trim(word, ".,!?")] {
			hits++
		}
	}
	penalty += float64(hits) * 0.05
	if penalty > 0.15 {
		penalty = 0.15
	}

	for _, phrase := range fe.uncertainty {
		if strings.Contains(lower, phrase) {
			penalty += 0.1
			break
		}
	}

	if strings.Contains(lower, " or ") {
		penalty += 0.1
	}

	return penalty
}

func (fe *FieldExtractor) ExtractBatch(text string, fields []FieldSpec) []FieldCandidate {
	raw := fe.normalizer.Sanitize(text)
	segments := fe.segmentSplit.Split(raw, -1)

	used := make(map[string]bool)
	var out []FieldCandidate

	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		field, rest, ok := fe.classifySegment(segment, fields, used)
		if !ok {
			continue
		}

		candidate := fe.ExtractField(rest, field)
		if candidate.Value == "" || candidate.Confidence < 0.5 {
			continue
		}
		candidate.RawText = segment
		used[field.Name] = true
		out = append(out, *candidate)
	}

	return out
}

// classifySegment assigns one clause of a multi-field utterance to the
// remaining field it most plausibly answers: explicit keyword first
// ("my email is ..."), then an unmistakable format signal.
func (fe *FieldExtractor) classifySegment(segment string, fields []FieldSpec, used map[string]bool) (FieldSpec, string, bool) {
	lower := strings.ToLower(segment)

	bestLen := 0
	var bestField FieldSpec
	var bestKeyword string
	for _, field := range fields {
		if used[field.Name] {
			continue
		}
		for _, keyword := range fieldKeywords(field) {
			if len(keyword) > bestLen && containsWord(lower, keyword) {
				bestLen = len(keyword)
				bestField = field
				bestKeyword = keyword
			}
		}
	}
	if bestLen > 0 {
		return bestField, fe.stripFieldKeyword(segment, bestKeyword), true
	}

	if fe.emailSearch.MatchString(segment) || strings.Contains(lower, "@") || strings.Contains(lower, "at the rate") {
		if field, ok := firstUnusedOfType(fields, used, "email"); ok {
			return field, segment, true
		}
	}

	phoneDigits := strings.TrimPrefix(fe.normalizer.NormalizePhone(segment), "+")
	phoneDigits = strings.ReplaceAll(phoneDigits, "-", "")
	if len(phoneDigits) >= 10 && isDigits(phoneDigits) {
		if field, ok := firstUnusedOfType(fields, used, "phone", "tel"); ok {
			return field, segment, true
		}
	}

	if fe.nameLeadIn.MatchString(segment) {
		for _, field := range fields {
			if !used[field.Name] && containsWord(strings.ToLower(field.Name+" "+field.Label), "name") {
				return field, segment, true
			}
		}
	}

	return FieldSpec{}, "", false
}

func (fe *FieldExtractor) stripFieldKeyword(segment, keyword string) string {
	pattern := regexp.MustCompile(`(?i)^.*?\b` + regexp.QuoteMeta(keyword) + `\b(?:'s)?\s*(?:is|was|:)?\s*`)
	if rest := pattern.ReplaceAllString(segment, ""); strings.TrimSpace(rest) != "" {
		return rest
	}
	return segment
}

func (fe *FieldExtractor) Validate(value string, field FieldSpec) []string {
	var issues []string
	trimmed := strings.TrimSpace(value)

	if trimmed == "" {
		if field.Required {
			issues = append(issues, "no value could be heard for this required field")
		}
		return issues
	}

	switch field.Type {
	case "email":
		if !fe.emailExact.MatchString(trimmed) {
			issues = append(issues, "value does not look like a valid email address")
		}
	case "phone", "tel":
		digits := strings.NewReplacer("-", "", " ", "", "(", "", ")", "").Replace(trimmed)
		if !fe.e164Exact.MatchString(digits) {
			issues = append(issues, "phone number is not a plausible length")
		}
	case "number":
		if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
			issues = append(issues, "value is not numeric")
		}
	case "date":
		if !fe.dateParses(trimmed) {
			issues = append(issues, "value could not be read as a date")
		}
	case "select", "radio":
		found := false
		for _, option := range field.Options {
			if strings.EqualFold(trimmed, option) {
				found = true
				break
			}
		}
		if !found {
			issues = append(issues, "value is not one of the allowed options")
		}
	}

	if field.ValidationPattern != "" {
		if re, err := regexp.Compile(field.ValidationPattern); err == nil && !re.MatchString(trimmed) {
			issues = append(issues, "value does not match the expected format")
		}
	}

	return issues
}

func (fe *FieldExtractor) dateParses(value string) bool {
	// Month-name matching in time.Parse is case-insensitive on the value side,
	// so lowercased transcripts parse against the canonical layouts.
	layouts := []string{"2006-01-02", "1/2/2006", "01/02/2006", "2 January 2006", "January 2 2006", "January 2, 2006", "2 January", "January 2"}
	for _, layout := range layouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

func (fe *FieldExtractor) SuggestCorrections(raw string, field FieldSpec) []string {
	var out []string

	switch field.Type {
	case "email":
		normalized := strings.ReplaceAll(fe.normalizer.NormalizeEmail(fe.stripLeadIns(raw)), " ", "")
		if at := strings.Index(normalized, "@"); at > 0 {
			local, domain := normalized[:at], normalized[at+1:]
			if fe.emailExact.MatchString(normalized) {
				out = append(out, normalized)
			}
			for _, known := range commonMailDomains {
				if domain != known && fe.similarity(domain, known) >= 0.5 {
					out = append(out, local+"@"+known)
				}
			}
		} else if base := strings.ReplaceAll(normalized, " ", ""); base != "" {
			for _, known := range commonMailDomains[:3] {
				out = append(out, base+"@"+known)
			}
		}
	case "phone", "tel":
		if normalized := fe.normalizer.NormalizePhone(raw); fe.phoneShape.MatchString(normalized) {
			out = append(out, normalized)
		}
	case "select", "radio":
		type scored struct {
			option string
			score  float64
		}
		var ranked []scored
		cleaned := strings.ToLower(fe.stripLeadIns(raw))
		for _, option := range field.Options {
			if score := fe.similarity(cleaned, option); score >= 0.35 {
				ranked = append(ranked, scored{option, score})
			}
		}
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
		for _, r := range ranked {
			out = append(out, r.option)
		}
	case "date":
		candidate := &FieldCandidate{}
		fe.extractDate(raw, candidate)
		if candidate.Source != "raw" {
			out = append(out, candidate.Value)
		}
	default:
		if value := strings.TrimSpace(fe.stripLeadIns(raw)); value != "" {
			if fe.normalizer.LooksSpelledOut(value) {
				value = fe.normalizer.CollapseSpelled(value)
			}
			out = append(out, value)
		}
	}

	return out
}

func fieldKeywords(field FieldSpec) []string {
	seen := make(map[string]bool)
	var keywords []string

	add := func(keyword string) {
		keyword = strings.TrimSpace(strings.ToLower(keyword))
		if len(keyword) < 3 || seen[keyword] || isGenericWord(keyword) {
			return
		}
		seen[keyword] = true
		keywords = append(keywords, keyword)
	}

	if label := strings.ToLower(field.Label); label != "" {
		add(label)
		for _, word := range strings.Fields(label) {
			add(word)
		}
	}
	for _, word := range strings.FieldsFunc(strings.ToLower(field.Name), func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	}) {
		add(word)
	}

	switch field.Type {
	case "email":
		add("email")
		add("mail")
	case "phone", "tel":
		add("phone")
		add("mobile")
		add("cell")
		add("telephone")
	case "date":
		if strings.Contains(strings.ToLower(field.Name), "birth") || strings.Contains(strings.ToLower(field.Name), "dob") {
			add("birthday")
			add("born")
		}
	}

	return keywords
}

func isGenericWord(word string) bool {
	switch word {
	case "your", "the", "please", "enter", "field", "input", "form", "number":
		return true
	}
	return false
}

func firstUnusedOfType(fields []FieldSpec, used map[string]bool, types ...string) (FieldSpec, bool) {
	for _, field := range fields {
		if used[field.Name] {
			continue
		}
		for _, t := range types {
			if field.Type == t {
				return field, true
			}
		}
	}
	return FieldSpec{}, false
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		startOK := start == 0 || !isWordChar(rune(text[start-1]))
		endOK := end == len(text) || !isWordChar(rune(text[end]))
		if startOK && endOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
