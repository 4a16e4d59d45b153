// Package convo keeps the conversation history and the short-term context
// used to resolve pronouns in follow-up commands.
package convo

import (
	"context"
	"fmt"
	log "log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"strom/internal/nlu"
)

const DefaultMaxHistory = 50

// State is what the last exchanges left behind.
type State struct {
	LastApp       string
	LastRecipient string
	LastMessage   string
	LastQuery     string
	LastHour      *int
	LastIntent    nlu.Intent
}

var followUpRe = regexp.MustCompile(`\b(?:what about|how about|and|also|too|as well|more|another|again)\b`)

type Manager struct {
	store      Store
	maxHistory int
	now        func() time.Time

	mu    sync.RWMutex
	state State
}

type Option func(*Manager)

func WithMaxHistory(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxHistory = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager restores the context by replaying the stored history.
func NewManager(ctx context.Context, store Store, opts ...Option) (*Manager, error) {
	m := &Manager{
		store:      store,
		maxHistory: DefaultMaxHistory,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	history, err := store.Recent(ctx, m.maxHistory)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for _, ex := range history {
		m.state.apply(ex.Intent, ex.Entities)
	}
	log.Debug("Conversation restored", "exchanges", len(history))

	return m, nil
}

// AddExchange records one turn and updates the context from its entities.
func (m *Manager) AddExchange(ctx context.Context, input string, res nlu.Result, response string) (Exchange, error) {
	ex := Exchange{
		ID:       uuid.New(),
		Time:     m.now(),
		Input:    input,
		Intent:   res.Intent,
		Entities: res.Entities,
		Response: response,
	}

	if err := m.store.Append(ctx, ex); err != nil {
		return Exchange{}, err
	}

	m.mu.Lock()
	m.state.apply(ex.Intent, ex.Entities)
	m.mu.Unlock()

	if err := m.store.Trim(ctx, m.maxHistory); err != nil {
		return ex, err
	}

	log.Debug("Exchange recorded", "id", ex.ID, "intent", ex.Intent)
	return ex, nil
}

func (s *State) apply(intent nlu.Intent, e nlu.Entities) {
	s.LastIntent = intent

	switch intent {
	case nlu.OpenApp, nlu.CloseApp:
		if app := e.String(nlu.KeyAppName); app != "" && app != nlu.UnknownApp {
			s.LastApp = app
		}
	case nlu.SendWhatsApp, nlu.SendEmail:
		if r := e.String(nlu.KeyRecipient); r != "" {
			s.LastRecipient = r
		}
		if msg := e.String(nlu.KeyMessage); msg != "" {
			s.LastMessage = msg
		}
	case nlu.Search, nlu.Wikipedia:
		if q := e.String(nlu.KeyQuery); q != "" {
			s.LastQuery = q
		}
	case nlu.SetAlarm, nlu.SetReminder:
		if h, ok := e.Int(nlu.KeyHour); ok {
			s.LastHour = &h
		}
	}
}

// State returns a copy of the current context.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := m.state
	if st.LastHour != nil {
		h := *st.LastHour
		st.LastHour = &h
	}
	return st
}

func (m *Manager) Context() nlu.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return nlu.Context{LastApp: m.state.LastApp, LastRecipient: m.state.LastRecipient}
}

// Resolve substitutes pronouns with the remembered app and recipient.
func (m *Manager) Resolve(text string) string {
	return nlu.ResolveReferences(text, m.Context())
}

// IsFollowUp reports whether text reads like a continuation of the last turn.
func (m *Manager) IsFollowUp(text string) bool {
	return followUpRe.MatchString(strings.ToLower(text))
}

func (m *Manager) Recent(ctx context.Context, n int) ([]Exchange, error) {
	return m.store.Recent(ctx, n)
}

func (m *Manager) ClearContext() {
	m.mu.Lock()
	m.state = State{}
	m.mu.Unlock()
}

func (m *Manager) ClearHistory(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	m.ClearContext()
	return nil
}

// Summary describes the stored history: the exchange count and the five
// most common intents.
func (m *Manager) Summary(ctx context.Context) (string, error) {
	total, counts, err := m.store.IntentCounts(ctx)
	if err != nil {
		return "", err
	}
	if total == 0 {
		return "No conversation history yet.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total exchanges: %d\n", total)
	b.WriteString("Most common intents:\n")
	for i, c := range counts {
		if i == 5 {
			break
		}
		fmt.Fprintf(&b, "  - %s: %d\n", c.Intent, c.Count)
	}
	return b.String(), nil
}
