// Package tasks keeps the todo list and fires alarms, reminders and timers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"strom/internal/nlu"
	"strom/internal/router"
)

const (
	// MaxTimer caps a single timer.
	MaxTimer = 24 * time.Hour
	// MaxReminder caps how far ahead a duration reminder may be set.
	MaxReminder = 366 * 24 * time.Hour
	// DefaultReminderDelay applies when a reminder names no time.
	DefaultReminderDelay = time.Hour
)

// Notifier delivers a reminder that came due.
type Notifier func(ctx context.Context, r Reminder)

type Manager struct {
	store  *Store
	notify Notifier
	now    func() time.Time
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func New(store *Store, notify Notifier, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		notify: notify,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Routes() map[nlu.Intent]router.Handler {
	return map[nlu.Intent]router.Handler{
		nlu.CreateTodo:   m.CreateTodo,
		nlu.ListTodos:    m.ListTodos,
		nlu.CompleteTodo: m.CompleteTodo,
		nlu.DeleteTodo:   m.DeleteTodo,
		nlu.SetAlarm:     m.SetAlarm,
		nlu.SetReminder:  m.SetReminder,
		nlu.SetTimer:     m.SetTimer,
	}
}

func (m *Manager) CreateTodo(ctx context.Context, req nlu.Result) (string, error) {
	task := strings.TrimSpace(req.Entities.String(nlu.KeyTask))
	if task == "" {
		return "What task should I add?", nil
	}

	todo, err := m.store.AddTodo(ctx, task, m.now())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Added task %d: %s", todo.ID, todo.Description), nil
}

// ListTodos reads out pending todos under their stable numbers, which are
// the numbers complete and delete take.
func (m *Manager) ListTodos(ctx context.Context, _ nlu.Result) (string, error) {
	all, err := m.store.Todos(ctx, false)
	if err != nil {
		return "", err
	}
	if len(all) == 0 {
		return "No tasks yet.", nil
	}

	now := m.now()

	var b strings.Builder
	pending := 0
	for _, t := range all {
		if t.Completed {
			continue
		}
		pending++
		fmt.Fprintf(&b, "\n%d. %s (added %s)", t.ID, t.Description, humanize.RelTime(t.CreatedAt, now, "ago", "from now"))
	}

	switch pending {
	case 0:
		return "No pending tasks!", nil
	case 1:
		return "You have 1 task:" + b.String(), nil
	default:
		return fmt.Sprintf("You have %d tasks:", pending) + b.String(), nil
	}
}

func (m *Manager) CompleteTodo(ctx context.Context, req nlu.Result) (string, error) {
	id, ok := req.Entities.Int(nlu.KeyTaskID)
	if !ok {
		return "Which task number should I mark complete?", nil
	}

	todo, err := m.store.Todo(ctx, int64(id))
	if errors.Is(err, ErrNotFound) {
		return "Invalid task number.", nil
	}
	if err != nil {
		return "", err
	}
	if todo.Completed {
		return "Task already completed.", nil
	}

	if err := m.store.CompleteTodo(ctx, todo.ID); err != nil {
		return "", err
	}
	return "Marked task complete: " + todo.Description, nil
}

func (m *Manager) DeleteTodo(ctx context.Context, req nlu.Result) (string, error) {
	id, ok := req.Entities.Int(nlu.KeyTaskID)
	if !ok {
		return "Which task number should I delete?", nil
	}

	todo, err := m.store.Todo(ctx, int64(id))
	if errors.Is(err, ErrNotFound) {
		return "Invalid task number.", nil
	}
	if err != nil {
		return "", err
	}

	if err := m.store.DeleteTodo(ctx, todo.ID); err != nil {
		return "", err
	}
	return "Deleted task: " + todo.Description, nil
}

// nextOccurrence returns the next time the clock shows hour:minute, today
// or tomorrow.
func nextOccurrence(now time.Time, hour, minute int) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func clockTime(t time.Time) string {
	return t.Format("03:04 PM")
}

func (m *Manager) SetAlarm(ctx context.Context, req nlu.Result) (string, error) {
	hour, ok := req.Entities.Int(nlu.KeyHour)
	if !ok {
		return "What time for the alarm?", nil
	}
	minute, _ := req.Entities.Int(nlu.KeyMinute)

	due := nextOccurrence(m.now(), hour, minute)
	if _, err := m.store.AddReminder(ctx, Reminder{Kind: KindAlarm, DueAt: due, Message: "Alarm!"}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Alarm set for %s.", clockTime(due)), nil
}

func (m *Manager) SetReminder(ctx context.Context, req nlu.Result) (string, error) {
	task := strings.TrimSpace(req.Entities.String(nlu.KeyTask))
	task = strings.TrimSpace(strings.TrimPrefix(task, "to "))
	if task == "" || task == "to" {
		return "What should I remind you about?", nil
	}

	now := m.now()
	var due time.Time
	if hour, ok := req.Entities.Int(nlu.KeyHour); ok {
		minute, _ := req.Entities.Int(nlu.KeyMinute)
		due = nextOccurrence(now, hour, minute)
	} else if secs, ok := req.Entities.Int(nlu.KeyDuration); ok && secs > 0 {
		if secs > int(MaxReminder/time.Second) {
			return "Reminders can be set at most a year ahead.", nil
		}
		due = now.Add(time.Duration(secs) * time.Second)
	} else {
		due = now.Add(DefaultReminderDelay)
	}

	if _, err := m.store.AddReminder(ctx, Reminder{Kind: KindReminder, DueAt: due, Message: task}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Reminder set: %s at %s.", task, clockTime(due)), nil
}

func (m *Manager) SetTimer(ctx context.Context, req nlu.Result) (string, error) {
	secs, ok := req.Entities.Int(nlu.KeyDuration)
	if !ok || secs <= 0 {
		return "How long for the timer?", nil
	}

	if secs > int(MaxTimer/time.Second) {
		return "Timers can run for at most 24 hours.", nil
	}
	d := time.Duration(secs) * time.Second

	label := timerLabel(secs)
	if _, err := m.store.AddReminder(ctx, Reminder{
		Kind:    KindTimer,
		DueAt:   m.now().Add(d),
		Message: fmt.Sprintf("Your %s timer is done.", label),
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Timer set for %s.", label), nil
}

func timerLabel(secs int) string {
	switch {
	case secs >= 3600 && secs%3600 == 0:
		return plural(secs/3600, "hour")
	case secs >= 60:
		return plural(secs/60, "minute")
	default:
		return plural(secs, "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Run fires due reminders every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := m.Fire(ctx); err != nil {
			log.Error("Reminder check failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Fire delivers every reminder that is due now and marks it triggered.
func (m *Manager) Fire(ctx context.Context) error {
	due, err := m.store.DueReminders(ctx, m.now())
	if err != nil {
		return err
	}

	for _, r := range due {
		if err := m.store.MarkTriggered(ctx, r.ID); err != nil {
			return err
		}
		log.Info("Reminder due", "kind", r.Kind, "message", r.Message)
		if m.notify != nil {
			m.notify(ctx, r)
		}
	}
	return nil
}
