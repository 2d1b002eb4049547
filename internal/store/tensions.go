package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/helix/internal/apperr"
	"github.com/starford/helix/internal/tension"
)

const tensionColumns = `id, title, note, status, charge, vector, return_at, created_at, updated_at`

// Patch holds the fields of a tension that may change. Nil fields are left
// untouched; ClearReturn removes a scheduled return.
type Patch struct {
	Charge      *int
	Vector      *tension.Vector
	Status      *tension.Status
	ReturnAt    *time.Time
	ClearReturn bool
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTension(s rowScanner) (tension.Tension, error) {
	var (
		t        tension.Tension
		status   string
		vector   string
		returnAt sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.Title, &t.Note, &status, &t.Charge, &vector, &returnAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return tension.Tension{}, err
	}
	t.Status = tension.Status(status)
	t.Vector = tension.Vector(vector)
	if returnAt.Valid {
		at := returnAt.Time.UTC()
		t.ReturnAt = &at
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func collectTensions(rows *sql.Rows) ([]tension.Tension, error) {
	defer rows.Close()
	out := []tension.Tension{}
	for rows.Next() {
		t, err := scanTension(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// CreateTension inserts t and its captured event within a transaction.
// CreatedAt must be set; UpdatedAt defaults to it.
func (db *DB) CreateTension(ctx context.Context, t tension.Tension, actor tension.Actor) (tension.Tension, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return tension.Tension{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	t.CreatedAt = t.CreatedAt.UTC()
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO tensions (title, note, status, charge, vector, return_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Title, t.Note, string(t.Status), t.Charge, string(t.Vector), nullTime(t.ReturnAt), t.CreatedAt, t.UpdatedAt.UTC())
	if err != nil {
		return tension.Tension{}, fmt.Errorf("store: insert tension: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return tension.Tension{}, fmt.Errorf("store: tension id: %w", err)
	}

	payload := map[string]any{
		"title":  t.Title,
		"note":   t.Note,
		"charge": t.Charge,
		"vector": t.Vector,
		"status": t.Status,
	}
	if err := appendEvent(ctx, tx, t.ID, tension.EventCaptured, actor, payload, t.CreatedAt); err != nil {
		return tension.Tension{}, err
	}
	if err := tx.Commit(); err != nil {
		return tension.Tension{}, fmt.Errorf("store: commit: %w", err)
	}
	return t, nil
}

// GetTension returns one tension or apperr.ErrNotFound.
func (db *DB) GetTension(ctx context.Context, id int64) (tension.Tension, error) {
	return getTension(ctx, db.conn, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowsQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func getTension(ctx context.Context, q querier, id int64) (tension.Tension, error) {
	t, err := scanTension(q.QueryRowContext(ctx, `SELECT `+tensionColumns+` FROM tensions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return tension.Tension{}, fmt.Errorf("tension %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return tension.Tension{}, fmt.Errorf("store: get tension: %w", err)
	}
	return t, nil
}

// ListActive returns held and forming tensions, newest first. A limit of 0
// returns all of them.
func (db *DB) ListActive(ctx context.Context, limit int) ([]tension.Tension, error) {
	return listActive(ctx, db.conn, limit)
}

func listActive(ctx context.Context, q rowsQuerier, limit int) ([]tension.Tension, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := q.QueryContext(ctx, `
		SELECT `+tensionColumns+`
		FROM tensions
		WHERE status IN (?, ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, string(tension.StatusHeld), string(tension.StatusForming), limit)
	if err != nil {
		return nil, fmt.Errorf("store: list active: %w", err)
	}
	return collectTensions(rows)
}

// UpdateTension applies p and appends one change event per modified field.
// Fields equal to their current value produce no event.
func (db *DB) UpdateTension(ctx context.Context, id int64, p Patch, actor tension.Actor, now time.Time) (tension.Tension, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return tension.Tension{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	t, err := getTension(ctx, tx, id)
	if err != nil {
		return tension.Tension{}, err
	}
	now = now.UTC()

	type change struct {
		typ      tension.EventType
		from, to any
	}
	var changes []change

	if p.Charge != nil && *p.Charge != t.Charge {
		changes = append(changes, change{tension.EventChargeChanged, t.Charge, *p.Charge})
		t.Charge = *p.Charge
	}
	if p.Vector != nil && *p.Vector != t.Vector {
		changes = append(changes, change{tension.EventVectorChanged, t.Vector, *p.Vector})
		t.Vector = *p.Vector
	}
	if p.Status != nil && *p.Status != t.Status {
		changes = append(changes, change{tension.EventStageChanged, t.Status, *p.Status})
		t.Status = *p.Status
	}
	switch {
	case p.ClearReturn && t.ReturnAt != nil:
		changes = append(changes, change{tension.EventReturnScheduled, formatTime(t.ReturnAt), nil})
		t.ReturnAt = nil
	case p.ReturnAt != nil && (t.ReturnAt == nil || !t.ReturnAt.Equal(*p.ReturnAt)):
		at := p.ReturnAt.UTC()
		changes = append(changes, change{tension.EventReturnScheduled, formatTime(t.ReturnAt), formatTime(&at)})
		t.ReturnAt = &at
	}

	if len(changes) == 0 {
		return t, nil
	}

	t.UpdatedAt = now
	if err := saveTension(ctx, tx, t); err != nil {
		return tension.Tension{}, err
	}
	for _, c := range changes {
		if err := appendEvent(ctx, tx, t.ID, c.typ, actor, map[string]any{"from": c.from, "to": c.to}, now); err != nil {
			return tension.Tension{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return tension.Tension{}, fmt.Errorf("store: commit: %w", err)
	}
	return t, nil
}

// Postpone moves the tension's return time to until and records a postponed
// event.
func (db *DB) Postpone(ctx context.Context, id int64, until time.Time, actor tension.Actor, now time.Time) (tension.Tension, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return tension.Tension{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	t, err := getTension(ctx, tx, id)
	if err != nil {
		return tension.Tension{}, err
	}
	now = now.UTC()
	until = until.UTC()

	payload := map[string]any{
		"from": formatTime(t.ReturnAt),
		"to":   formatTime(&until),
	}
	t.ReturnAt = &until
	t.UpdatedAt = now
	if err := saveTension(ctx, tx, t); err != nil {
		return tension.Tension{}, err
	}
	if err := appendEvent(ctx, tx, t.ID, tension.EventPostponed, actor, payload, now); err != nil {
		return tension.Tension{}, err
	}
	if err := tx.Commit(); err != nil {
		return tension.Tension{}, fmt.Errorf("store: commit: %w", err)
	}
	return t, nil
}

func saveTension(ctx context.Context, tx *sql.Tx, t tension.Tension) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE tensions
		SET status = ?, charge = ?, vector = ?, return_at = ?, updated_at = ?
		WHERE id = ?
	`, string(t.Status), t.Charge, string(t.Vector), nullTime(t.ReturnAt), t.UpdatedAt.UTC(), t.ID)
	if err != nil {
		return fmt.Errorf("store: update tension: %w", err)
	}
	return nil
}

// formatTime renders an optional time for event payloads; nil stays nil.
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
