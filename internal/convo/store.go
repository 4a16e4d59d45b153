package convo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"strom/internal/nlu"
)

// Exchange is one recorded turn of the conversation.
type Exchange struct {
	ID       uuid.UUID
	Time     time.Time
	Input    string
	Intent   nlu.Intent
	Entities nlu.Entities
	Response string
}

type IntentCount struct {
	Intent nlu.Intent
	Count  int
}

// Store persists exchanges in insertion order.
type Store interface {
	Append(ctx context.Context, ex Exchange) error
	// Recent returns up to n exchanges, oldest first. n <= 0 returns all.
	Recent(ctx context.Context, n int) ([]Exchange, error)
	// Trim drops all but the newest keep exchanges.
	Trim(ctx context.Context, keep int) error
	Clear(ctx context.Context) error
	// IntentCounts returns the total and per-intent counts, most frequent first.
	IntentCounts(ctx context.Context) (int, []IntentCount, error)
}

// SQLiteStore keeps exchanges in the exchanges table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Append(ctx context.Context, ex Exchange) error {
	entities := ex.Entities
	if entities == nil {
		entities = nlu.Entities{}
	}
	raw, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("encode entities: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exchanges(id, created_at, input, intent, entities, response) VALUES (?, ?, ?, ?, ?, ?)`,
		ex.ID.String(), ex.Time.UTC().Format(time.RFC3339Nano), ex.Input, string(ex.Intent), string(raw), ex.Response,
	)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Exchange, error) {
	limit := n
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, input, intent, entities, response FROM (
			SELECT seq, id, created_at, input, intent, entities, response
			FROM exchanges ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var (
			ex                Exchange
			id, created, intt string
			raw               string
		)
		if err := rows.Scan(&id, &created, &ex.Input, &intt, &raw, &ex.Response); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		if ex.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("exchange id %q: %w", id, err)
		}
		if ex.Time, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("exchange time %q: %w", created, err)
		}
		ex.Intent = nlu.Intent(intt)
		ex.Entities = nlu.Entities{}
		if err := json.Unmarshal([]byte(raw), &ex.Entities); err != nil {
			return nil, fmt.Errorf("decode entities: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Trim(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM exchanges WHERE seq NOT IN (
			SELECT seq FROM exchanges ORDER BY seq DESC LIMIT ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("trim exchanges: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM exchanges`); err != nil {
		return fmt.Errorf("clear exchanges: %w", err)
	}
	return nil
}

func (s *SQLiteStore) IntentCounts(ctx context.Context) (int, []IntentCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT intent, COUNT(*) AS n FROM exchanges GROUP BY intent ORDER BY n DESC, intent ASC`)
	if err != nil {
		return 0, nil, fmt.Errorf("count intents: %w", err)
	}
	defer rows.Close()

	var (
		total  int
		counts []IntentCount
	)
	for rows.Next() {
		var ic IntentCount
		var intent string
		if err := rows.Scan(&intent, &ic.Count); err != nil {
			return 0, nil, fmt.Errorf("scan intent count: %w", err)
		}
		ic.Intent = nlu.Intent(intent)
		total += ic.Count
		counts = append(counts, ic)
	}
	return total, counts, rows.Err()
}
