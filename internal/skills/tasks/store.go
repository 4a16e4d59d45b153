package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("not found")

type Todo struct {
	ID          int64
	Description string
	CreatedAt   time.Time
	Completed   bool
}

const (
	KindAlarm    = "alarm"
	KindReminder = "reminder"
	KindTimer    = "timer"
)

type Reminder struct {
	ID        int64
	Kind      string
	DueAt     time.Time
	Message   string
	Triggered bool
}

// Store keeps todos and reminders in the todos and reminders tables.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// timeLayout is fixed width so stored times compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func (s *Store) AddTodo(ctx context.Context, description string, at time.Time) (Todo, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO todos(description, created_at) VALUES (?, ?)`, description, formatTime(at))
	if err != nil {
		return Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return Todo{ID: id, Description: description, CreatedAt: at}, nil
}

// Todos returns todos in creation order; pendingOnly skips completed ones.
func (s *Store) Todos(ctx context.Context, pendingOnly bool) ([]Todo, error) {
	q := `SELECT id, description, created_at, completed FROM todos`
	if pendingOnly {
		q += ` WHERE completed = 0`
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	var out []Todo
	for rows.Next() {
		var (
			t       Todo
			created string
		)
		if err := rows.Scan(&t.ID, &t.Description, &created, &t.Completed); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		if t.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("todo %d: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) Todo(ctx context.Context, id int64) (Todo, error) {
	var (
		t       Todo
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, description, created_at, completed FROM todos WHERE id = ?`, id,
	).Scan(&t.ID, &t.Description, &created, &t.Completed)
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Todo{}, fmt.Errorf("get todo: %w", err)
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return Todo{}, fmt.Errorf("todo %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) CompleteTodo(ctx context.Context, id int64) error {
	return s.execOne(ctx, `UPDATE todos SET completed = 1 WHERE id = ?`, id)
}

func (s *Store) DeleteTodo(ctx context.Context, id int64) error {
	return s.execOne(ctx, `DELETE FROM todos WHERE id = ?`, id)
}

func (s *Store) execOne(ctx context.Context, q string, id int64) error {
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("todo %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("todo %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) AddReminder(ctx context.Context, r Reminder) (Reminder, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(kind, due_at, message) VALUES (?, ?, ?)`,
		r.Kind, formatTime(r.DueAt), r.Message)
	if err != nil {
		return Reminder{}, fmt.Errorf("insert reminder: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return Reminder{}, fmt.Errorf("insert reminder: %w", err)
	}
	r.Triggered = false
	return r, nil
}

// DueReminders returns untriggered reminders due at or before now, oldest
// first.
func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, due_at, message FROM reminders
		 WHERE triggered = 0 AND due_at <= ? ORDER BY due_at, id`, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var (
			r   Reminder
			due string
		)
		if err := rows.Scan(&r.ID, &r.Kind, &due, &r.Message); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		if r.DueAt, err = parseTime(due); err != nil {
			return nil, fmt.Errorf("reminder %d: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) MarkTriggered(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE reminders SET triggered = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("reminder %d: %w", id, err)
	}
	return nil
}
