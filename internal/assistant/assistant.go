// Package assistant runs one utterance through the whole pipeline:
// clean-up, reference resolution, classification, routing and history.
package assistant

import (
	"context"
	"fmt"
	log "log/slog"
	"regexp"
	"strings"

	"strom/internal/convo"
	"strom/internal/nlu"
	"strom/internal/router"
)

const (
	NotHeard   = "I didn't catch that."
	StandingBy = "Okay, I'm standing by."
)

// Reply is what the assistant says back, with the analysis behind it.
type Reply struct {
	Text     string
	Intent   nlu.Intent
	Entities nlu.Entities
	Resolved string
	FollowUp bool
}

type Options struct {
	WakeWord string
	StopWord string
}

type Assistant struct {
	engine *nlu.Engine
	convo  *convo.Manager
	router *router.Router

	wakeRe   *regexp.Regexp
	stopWord string
	wakeWord string
}

func New(engine *nlu.Engine, conv *convo.Manager, r *router.Router, opts Options) *Assistant {
	a := &Assistant{
		engine:   engine,
		convo:    conv,
		router:   r,
		wakeWord: strings.ToLower(strings.TrimSpace(opts.WakeWord)),
		stopWord: strings.ToLower(strings.TrimSpace(opts.StopWord)),
	}
	if a.wakeWord != "" {
		a.wakeRe = regexp.MustCompile(`(?i)^(?:(?:hey|hi|ok|okay)\s+)?` + regexp.QuoteMeta(a.wakeWord) + `\b[\s,.!]*`)
	}
	return a
}

// Sanitize drops shell metacharacters and surrounding blanks.
func Sanitize(text string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case ';', '|', '&', '`', '$':
			return -1
		}
		return r
	}, text))
}

func (a *Assistant) stripWakeWord(text string) string {
	if a.wakeRe == nil {
		return text
	}
	return strings.TrimSpace(a.wakeRe.ReplaceAllString(text, ""))
}

func (a *Assistant) isStop(text string) bool {
	if a.stopWord == "" {
		return false
	}
	t := strings.Trim(strings.ToLower(text), " .!,")
	return t == a.stopWord || (a.wakeWord != "" && t == a.stopWord+" "+a.wakeWord)
}

// Handle answers one utterance. The returned Reply always carries something
// to say; a non-nil error means the exchange could not be recorded.
func (a *Assistant) Handle(ctx context.Context, text string) (Reply, error) {
	clean := a.stripWakeWord(Sanitize(text))
	if clean == "" {
		return Reply{Text: NotHeard, Intent: nlu.Unknown, Entities: nlu.Entities{}}, nil
	}
	if a.isStop(clean) {
		return Reply{Text: StandingBy, Intent: nlu.Unknown, Entities: nlu.Entities{}}, nil
	}

	followUp := a.convo.IsFollowUp(clean)
	res := a.engine.Analyze(clean, a.convo.Context())

	log.Info("Understood", "text", clean, "resolved", res.Resolved, "intent", res.Intent, "follow_up", followUp)

	reply := Reply{
		Text:     a.router.Dispatch(ctx, res),
		Intent:   res.Intent,
		Entities: res.Entities,
		Resolved: res.Resolved,
		FollowUp: followUp,
	}

	if _, err := a.convo.AddExchange(ctx, clean, res, reply.Text); err != nil {
		return reply, fmt.Errorf("record exchange: %w", err)
	}
	return reply, nil
}
