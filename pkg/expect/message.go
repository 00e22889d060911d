package expect

import (
	"regexp"
	"strings"
)

var (
	spaceRun     = regexp.MustCompile(`\s+`)
	typedThatHas = regexp.MustCompile(`\b(array|object|number|string|boolean|function)\s+that\s+has\b`)
	thatHas      = regexp.MustCompile(`\bthat\s+has\b`)
	thatDoes     = regexp.MustCompile(`\bthat\s+does\b`)
	hasWord      = regexp.MustCompile(`\bhas\b`)
	isWord       = regexp.MustCompile(`\bis\b`)
	fillerWords  = regexp.MustCompile(`\b(which|does|but)\b`)
)

// cleanModifiers turns the raw chain words into readable English: "has"
// becomes "have", "is" becomes "be", filler words are dropped, and
// consecutive duplicate words collapse.
func cleanModifiers(mods string) string {
	clean := strings.TrimSpace(spaceRun.ReplaceAllString(mods, " "))

	if !typedThatHas.MatchString(clean) {
		clean = thatHas.ReplaceAllString(clean, "have")
		clean = thatDoes.ReplaceAllString(clean, "")
		clean = hasWord.ReplaceAllString(clean, "have")
	} else {
		// "be an array that has lengthOf" reads fine as is
		clean = thatDoes.ReplaceAllString(clean, "")
	}

	clean = isWord.ReplaceAllString(clean, "be")
	clean = fillerWords.ReplaceAllString(clean, "")
	clean = strings.TrimSpace(spaceRun.ReplaceAllString(clean, " "))
	clean = dedupeWords(clean)

	switch {
	case clean == "":
		return "to"
	case !strings.HasPrefix(clean, "to"):
		return "to " + clean
	}
	return clean
}

func dedupeWords(s string) string {
	words := strings.Fields(s)
	out := make([]string, 0, len(words))
	for i, w := range words {
		if i > 0 && w == words[i-1] {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

// BuildMessage renders "Expected <subject> <modifiers> <assertion> <args>".
// When the modifiers already end with the first word of assertion that
// word is not repeated. Property assertions separate their arguments with a
// comma, others with a space.
func BuildMessage(subject, mods, assertion string, args ...string) string {
	clean := cleanModifiers(mods)

	var sb strings.Builder
	sb.WriteString("Expected ")
	sb.WriteString(subject)
	sb.WriteString(" ")
	sb.WriteString(clean)

	modWords := strings.Fields(clean)
	lastMod := modWords[len(modWords)-1]
	assertWords := strings.Fields(assertion)

	if len(assertWords) > 0 && assertWords[0] == lastMod {
		if rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(assertion), assertWords[0])); rest != "" {
			sb.WriteString(" ")
			sb.WriteString(rest)
		}
	} else if assertion != "" {
		sb.WriteString(" ")
		sb.WriteString(assertion)
	}

	if len(args) > 0 {
		if strings.Contains(assertion, "property") {
			sb.WriteString(", ")
		} else {
			sb.WriteString(" ")
		}
		sb.WriteString(strings.Join(args, ", "))
	}
	return sb.String()
}
