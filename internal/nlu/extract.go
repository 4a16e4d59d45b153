package nlu

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	appVerbPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bopen\s+(?:the\s+|my\s+)?(\w+)`),
		regexp.MustCompile(`\blaunch\s+(?:the\s+|my\s+)?(\w+)`),
		regexp.MustCompile(`\bstart\s+(?:the\s+|my\s+)?(\w+)`),
		regexp.MustCompile(`\brun\s+(?:the\s+|my\s+)?(\w+)`),
		regexp.MustCompile(`\bclose\s+(?:the\s+|my\s+)?(\w+)`),
		regexp.MustCompile(`\bquit\s+(?:the\s+|my\s+)?(\w+)`),
		regexp.MustCompile(`\bexit\s+(?:the\s+|my\s+)?(\w+)`),
	}

	recipientTriggerRe = regexp.MustCompile(`\b(?:to|message|whatsapp|email)\b`)
	recipientWordsRe   = regexp.MustCompile(`^\s+(?:to\s+)?([\w@.'+-]+)(?:\s+([\w'-]+))?`)

	messagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bsaying\s+(.+)`),
		regexp.MustCompile(`\btell\s+them\s+(.+)`),
		regexp.MustCompile(`\bthat\s+(.+)`),
		regexp.MustCompile(`\btext\s+(.+)`),
		regexp.MustCompile(`\bmessage\s+(.+)`),
	}

	queryLeadInRe = regexp.MustCompile(`\b(?:search|look\s+up|find(?:\s+me)?|google|wikipedia|wiki|tell\s+me\s+about)\b(?:\s+(?:for|about|on)\b)?`)
	queryTailRe   = regexp.MustCompile(`\s+(?:on|in|from|using)$`)

	levelPercentRe = regexp.MustCompile(`(\d+)\s*(?:percent|%)`)
	levelBuckets   = []struct {
		re    *regexp.Regexp
		level int
	}{
		{regexp.MustCompile(`\b(?:max|maximum|full|hundred)\b`), 100},
		{regexp.MustCompile(`\b(?:min|minimum|zero)\b`), 0},
		{regexp.MustCompile(`\b(?:half|fifty)\b`), 50},
	}

	actionBuckets = []struct {
		re     *regexp.Regexp
		action string
	}{
		{regexp.MustCompile(`\b(?:up|increase|raise|higher|louder|brighter)\b`), ActionIncrease},
		{regexp.MustCompile(`\b(?:down|decrease|lower|dimmer|quieter)\b`), ActionDecrease},
		{regexp.MustCompile(`\b(?:mute|silent)\b`), ActionMute},
		{regexp.MustCompile(`\bunmute\b`), ActionUnmute},
	}

	taskIDRe = regexp.MustCompile(`\b(?:task|number)\s*#?\s*(\d+)`)

	typedTextPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\btype\s+(.+)`),
		regexp.MustCompile(`(?i)\bwrite\s+(.+)`),
		regexp.MustCompile(`(?i)\benter(?:\s+text)?\s+(.+)`),
		regexp.MustCompile(`(?i)\binput\s+(.+)`),
	}

	keyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:press|hit)\s+(?:the\s+)?(?:key\s+)?(\w+)`),
		regexp.MustCompile(`\bkey\s+(\w+)`),
	}
)

// Words that end a recipient phrase or cannot start one.
var recipientStops = map[string]bool{
	"saying":   true,
	"say":      true,
	"message":  true,
	"text":     true,
	"that":     true,
	"tell":     true,
	"about":    true,
	"on":       true,
	"via":      true,
	"with":     true,
	"and":      true,
	"to":       true,
	"whatsapp": true,
	"email":    true,
}

// ExtractAppName resolves the application named in text. Aliases are
// checked first, in order, as plain substrings; then the word following an
// open/launch/start/close verb; otherwise UnknownApp.
func ExtractAppName(text string, aliases []Alias) string {
	text = normalize(text)
	for _, a := range aliases {
		if a.Name != "" && strings.Contains(text, a.Name) {
			return a.Canonical
		}
	}
	for _, re := range appVerbPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return UnknownApp
}

// ExtractRecipient returns the one- or two-word phrase naming who a message
// is for, or "" when there is none.
func ExtractRecipient(text string) string {
	text = normalize(text)
	for _, loc := range recipientTriggerRe.FindAllStringIndex(text, -1) {
		m := recipientWordsRe.FindStringSubmatch(text[loc[1]:])
		if m == nil {
			continue
		}
		first := strings.TrimRight(m[1], ".")
		if first == "" || recipientStops[first] {
			continue
		}
		if m[2] != "" && !recipientStops[m[2]] {
			return first + " " + m[2]
		}
		return first
	}
	return ""
}

// ExtractMessage returns the message body, or "" when no delimiter word is
// present.
func ExtractMessage(text string) string {
	text = normalize(text)
	for _, re := range messagePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// ExtractQuery strips search lead-ins and returns what is left.
func ExtractQuery(text string) string {
	q := queryLeadInRe.ReplaceAllString(normalize(text), " ")
	q = collapseSpaces(q)
	q = queryTailRe.ReplaceAllString(q, "")
	return strings.TrimSpace(q)
}

// ExtractLevel returns a 0-100 style level. ok is false when the utterance
// names none and the caller has to ask.
func ExtractLevel(text string) (level int, ok bool) {
	text = normalize(text)
	if m := levelPercentRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	for _, b := range levelBuckets {
		if b.re.MatchString(text) {
			return b.level, true
		}
	}
	return 0, false
}

// ExtractAction buckets volume/brightness verbs; ActionSet is the default.
func ExtractAction(text string) string {
	text = normalize(text)
	for _, b := range actionBuckets {
		if b.re.MatchString(text) {
			return b.action
		}
	}
	return ActionSet
}

// ExtractTaskID returns the task number following "task" or "number".
func ExtractTaskID(text string) (id int, ok bool) {
	m := taskIDRe.FindStringSubmatch(normalize(text))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ExtractTypedText returns the text to type with its original casing.
func ExtractTypedText(text string) string {
	text = strings.TrimSpace(text)
	for _, re := range typedTextPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// ExtractKey returns the key name to press.
func ExtractKey(text string) string {
	text = normalize(text)
	for _, re := range keyPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// trimRecipientEcho drops a leading "to <recipient>" that the broad
// "message"/"text" delimiters pick up.
func trimRecipientEcho(message, recipient string) string {
	if recipient == "" {
		return message
	}
	m := strings.TrimPrefix(message, "to ")
	rest, ok := strings.CutPrefix(m, recipient)
	if !ok || (rest != "" && rest[0] != ' ') {
		return message
	}
	return strings.TrimSpace(rest)
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
