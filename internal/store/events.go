package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/helix/internal/tension"
)

func appendEvent(ctx context.Context, tx *sql.Tx, tensionID int64, typ tension.EventType, actor tension.Actor, payload map[string]any, at time.Time) error {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("store: encode event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tension_events (tension_id, type, actor, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, tensionID, string(typ), string(actor), string(data), at.UTC())
	if err != nil {
		return fmt.Errorf("store: insert event: %w", err)
	}
	return nil
}

// Events returns the log of one tension in insertion order.
func (db *DB) Events(ctx context.Context, tensionID int64) ([]tension.Event, error) {
	if _, err := db.GetTension(ctx, tensionID); err != nil {
		return nil, err
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, tension_id, type, actor, payload, created_at
		FROM tension_events
		WHERE tension_id = ?
		ORDER BY id
	`, tensionID)
	if err != nil {
		return nil, fmt.Errorf("store: events: %w", err)
	}
	defer rows.Close()

	out := []tension.Event{}
	for rows.Next() {
		var (
			ev         tension.Event
			typ, actor string
			payload    string
		)
		if err := rows.Scan(&ev.ID, &ev.TensionID, &typ, &actor, &payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Type = tension.EventType(typ)
		ev.Actor = tension.Actor(actor)
		ev.CreatedAt = ev.CreatedAt.UTC()
		if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
			return nil, fmt.Errorf("store: decode event %d payload: %w", ev.ID, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ReturnPicker chooses the tension to resurface from the active set, given
// the id returned last (0 if none). A nil tension records nothing.
type ReturnPicker func(active []tension.Tension, lastReturnedID int64) (*tension.Tension, string)

// Return reads the active tensions and the last returned id, calls pick, and
// appends the returned event in one transaction. Transactions begin
// IMMEDIATE, so processes sharing the database file take turns here.
func (db *DB) Return(ctx context.Context, pick ReturnPicker, now time.Time) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	active, err := listActive(ctx, tx, 0)
	if err != nil {
		return err
	}
	lastID, err := lastReturnedID(ctx, tx)
	if err != nil {
		return err
	}

	t, reason := pick(active, lastID)
	if t == nil {
		return nil
	}
	payload := map[string]any{
		"reason": reason,
		"vector": t.Vector,
		"charge": t.Charge,
		"status": t.Status,
	}
	if err := appendEvent(ctx, tx, t.ID, tension.EventReturned, tension.ActorHelix, payload, now); err != nil {
		return err
	}
	return tx.Commit()
}

// lastReturnedID returns the tension id of the most recent automatic return,
// or 0 if nothing was returned yet.
func lastReturnedID(ctx context.Context, q querier) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		SELECT tension_id
		FROM tension_events
		WHERE type = ? AND actor = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, string(tension.EventReturned), string(tension.ActorHelix)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: last returned: %w", err)
	}
	return id, nil
}
