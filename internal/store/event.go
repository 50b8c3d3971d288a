package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Event is one journaled delivery.
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Payload    string    `json:"payload"`
	Attempts   int       `json:"attempts"`
	Success    bool      `json:"success"`
	Status     int       `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Stats summarises the journal.
type Stats struct {
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	ByKind    map[string]int `json:"by_kind"`
}

// EventRepository reads and writes journal events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts e, assigning an id and timestamp when they are empty.
func (r *EventRepository) Create(e *Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO events (id, kind, payload, attempts, success, status, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.Payload, e.Attempts, e.Success, e.Status, e.Error, e.DurationMs, e.CreatedAt.UTC(),
	)
	return err
}

// GetByID retrieves one event.
func (r *EventRepository) GetByID(id string) (*Event, error) {
	row := r.db.QueryRow(
		`SELECT id, kind, payload, attempts, success, status, error, duration_ms, created_at
		 FROM events WHERE id = ?`,
		id,
	)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// Recent returns up to limit events, newest first.
func (r *EventRepository) Recent(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, kind, payload, attempts, success, status, error, duration_ms, created_at
		 FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Stats counts events in total, by outcome and by kind.
func (r *EventRepository) Stats() (*Stats, error) {
	rows, err := r.db.Query(`SELECT kind, success, COUNT(*) FROM events GROUP BY kind, success`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	st := &Stats{ByKind: map[string]int{}}
	for rows.Next() {
		var (
			kind    string
			success bool
			n       int
		)
		if err := rows.Scan(&kind, &success, &n); err != nil {
			return nil, err
		}
		st.Total += n
		st.ByKind[kind] += n
		if success {
			st.Succeeded += n
		} else {
			st.Failed += n
		}
	}
	return st, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*Event, error) {
	e := &Event{}
	err := s.Scan(&e.ID, &e.Kind, &e.Payload, &e.Attempts, &e.Success, &e.Status, &e.Error, &e.DurationMs, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}
