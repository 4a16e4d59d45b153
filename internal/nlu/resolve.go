package nlu

import (
	"regexp"
	"strings"
)

// Context is the slice of the previous turn needed for pronoun
// resolution. Empty fields are treated as unknown.
type Context struct {
	LastApp       string `json:"last_app,omitempty"`
	LastRecipient string `json:"last_recipient,omitempty"`
}

var (
	appPronounRe    = regexp.MustCompile(`(?i)\b(?:it|that)\b`)
	personPronounRe = regexp.MustCompile(`(?i)\b(?:him|her|them)\b`)

	// after one of these, "that" introduces message text
	messageLeadRe = regexp.MustCompile(`(?i)\b(?:whatsapp|message|email|mail|text|tell|saying|say)\b`)
)

// ResolveReferences replaces whole-word pronouns with the remembered app or
// recipient. Pronouns without a matching context entry are left alone, so
// text without pronouns comes back unchanged. A "that" following a
// messaging word is a conjunction and is kept.
func ResolveReferences(text string, ctx Context) string {
	if ctx.LastApp != "" {
		text = replaceAppPronouns(text, ctx.LastApp)
	}
	if ctx.LastRecipient != "" {
		text = personPronounRe.ReplaceAllLiteralString(text, ctx.LastRecipient)
	}
	return text
}

func replaceAppPronouns(text, app string) string {
	var b strings.Builder
	last := 0
	for _, loc := range appPronounRe.FindAllStringIndex(text, -1) {
		b.WriteString(text[last:loc[0]])
		if strings.EqualFold(text[loc[0]:loc[1]], "that") && messageLeadRe.MatchString(text[:loc[0]]) {
			b.WriteString(text[loc[0]:loc[1]])
		} else {
			b.WriteString(app)
		}
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}
