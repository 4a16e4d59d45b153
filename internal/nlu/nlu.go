// Package nlu turns one transcribed utterance into an intent and its
// entities using an ordered keyword table and regular expressions. It holds
// no mutable state: an Engine may be shared between goroutines.
package nlu

import (
	log "log/slog"
	"strings"
)

// Result is the outcome of analyzing one utterance.
type Result struct {
	Intent   Intent   `json:"intent"`
	Entities Entities `json:"entities"`
	Text     string   `json:"text"`
	Resolved string   `json:"resolved"`
}

type Engine struct {
	patterns []Pattern
	aliases  []Alias
}

type Option func(*Engine)

// WithAliases puts extra application aliases ahead of the defaults.
func WithAliases(aliases []Alias) Option {
	return func(e *Engine) {
		extra := make([]Alias, 0, len(aliases))
		for _, a := range aliases {
			name := normalize(a.Name)
			if name == "" {
				continue
			}
			extra = append(extra, Alias{Name: name, Canonical: normalize(a.Canonical)})
		}
		e.aliases = append(extra, e.aliases...)
	}
}

// WithPatterns replaces the intent table. Order is kept as given.
func WithPatterns(patterns []Pattern) Option {
	return func(e *Engine) {
		e.patterns = clonePatterns(patterns)
		for i := range e.patterns {
			for j, kw := range e.patterns[i].Keywords {
				e.patterns[i].Keywords[j] = normalize(kw)
			}
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		patterns: DefaultPatterns(),
		aliases:  DefaultAliases(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Patterns returns a copy of the engine's intent table.
func (e *Engine) Patterns() []Pattern {
	return clonePatterns(e.patterns)
}

// Classify returns the intent of text: Unknown for blank input, the first
// table entry with a keyword contained in text, or GeneralQuery.
func (e *Engine) Classify(text string) Intent {
	intent, _ := e.classify(normalize(text))
	return intent
}

func (e *Engine) classify(norm string) (Intent, string) {
	if norm == "" {
		return Unknown, ""
	}
	for _, p := range e.patterns {
		for _, kw := range p.Keywords {
			if kw != "" && strings.Contains(norm, kw) {
				return p.Intent, kw
			}
		}
	}
	return GeneralQuery, ""
}

type category func(e *Engine, norm, raw string) Entities

var intentCategories = map[Intent][]category{
	OpenApp:      {appEntities},
	CloseApp:     {appEntities},
	SendWhatsApp: {messagingEntities},
	SendEmail:    {messagingEntities},
	SetAlarm:     {alarmTimeEntities},
	SetReminder:  {timeEntities, taskEntities},
	SetTimer:     {timeEntities},
	CreateTodo:   {taskEntities},
	Search:       {queryEntities},
	Wikipedia:    {queryEntities},
	Volume:       {levelEntities},
	Brightness:   {levelEntities},
	CompleteTodo: {taskIDEntities},
	DeleteTodo:   {taskIDEntities},
	TypeText:     {typedTextEntities},
	PressKey:     {keyEntities},
}

// Extract runs the extractors relevant to intent. Intents without
// parameters get an empty map.
func (e *Engine) Extract(text string, intent Intent) Entities {
	norm := normalize(text)
	out := Entities{}
	for _, c := range intentCategories[intent] {
		out.merge(c(e, norm, text))
	}
	return out
}

// Process classifies text and extracts the entities for the intent found.
func (e *Engine) Process(text string) (Intent, Entities) {
	norm := normalize(text)
	if norm == "" {
		return Unknown, Entities{}
	}

	intent, kw := e.classify(norm)
	entities := e.Extract(text, intent)

	log.Debug("Classified", "intent", intent, "keyword", kw, "entities", len(entities))
	return intent, entities
}

// Analyze resolves pronouns against ctx and processes the result.
func (e *Engine) Analyze(text string, ctx Context) Result {
	resolved := ResolveReferences(text, ctx)
	intent, entities := e.Process(resolved)
	return Result{
		Intent:   intent,
		Entities: entities,
		Text:     text,
		Resolved: resolved,
	}
}

func appEntities(e *Engine, norm, _ string) Entities {
	return Entities{KeyAppName: ExtractAppName(norm, e.aliases)}
}

func messagingEntities(_ *Engine, norm, _ string) Entities {
	recipient := ExtractRecipient(norm)
	return Entities{
		KeyRecipient: recipient,
		KeyMessage:   trimRecipientEcho(ExtractMessage(norm), recipient),
	}
}

func timeEntities(_ *Engine, norm, _ string) Entities {
	return ExtractTime(norm)
}

func alarmTimeEntities(_ *Engine, norm, _ string) Entities {
	return ExtractAlarmTime(norm)
}

func taskEntities(_ *Engine, norm, _ string) Entities {
	return Entities{KeyTask: ExtractTask(norm)}
}

func queryEntities(_ *Engine, norm, _ string) Entities {
	return Entities{KeyQuery: ExtractQuery(norm)}
}

func levelEntities(_ *Engine, norm, _ string) Entities {
	out := Entities{KeyLevel: nil, KeyAction: ExtractAction(norm)}
	if level, ok := ExtractLevel(norm); ok {
		out[KeyLevel] = level
	}
	return out
}

func taskIDEntities(_ *Engine, norm, _ string) Entities {
	out := Entities{KeyTaskID: nil}
	if id, ok := ExtractTaskID(norm); ok {
		out[KeyTaskID] = id
	}
	return out
}

func typedTextEntities(_ *Engine, _, raw string) Entities {
	return Entities{KeyText: ExtractTypedText(raw)}
}

func keyEntities(_ *Engine, norm, _ string) Entities {
	return Entities{KeyKey: ExtractKey(norm)}
}
