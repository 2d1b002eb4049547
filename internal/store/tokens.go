package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/helix/internal/apperr"
)

// Token is the single persisted Google OAuth token.
type Token struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	Expiry       time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GoogleToken returns the stored token or apperr.ErrNotConnected.
func (db *DB) GoogleToken(ctx context.Context) (Token, error) {
	var (
		tok    Token
		expiry sql.NullTime
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, token_type, scope, expiry, created_at, updated_at
		FROM google_tokens WHERE id = 1
	`).Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &tok.Scope, &expiry, &tok.CreatedAt, &tok.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Token{}, apperr.ErrNotConnected
	}
	if err != nil {
		return Token{}, fmt.Errorf("store: get google token: %w", err)
	}
	if expiry.Valid {
		tok.Expiry = expiry.Time.UTC()
	}
	return tok, nil
}

// SaveGoogleToken upserts the single token row. An empty refresh token keeps
// the stored one, since Google only issues it on the first consent.
func (db *DB) SaveGoogleToken(ctx context.Context, tok Token, now time.Time) error {
	var expiry sql.NullTime
	if !tok.Expiry.IsZero() {
		expiry = sql.NullTime{Time: tok.Expiry.UTC(), Valid: true}
	}
	now = now.UTC()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO google_tokens (id, access_token, refresh_token, token_type, scope, expiry, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token  = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN google_tokens.refresh_token ELSE excluded.refresh_token END,
			token_type    = excluded.token_type,
			scope         = CASE WHEN excluded.scope = '' THEN google_tokens.scope ELSE excluded.scope END,
			expiry        = excluded.expiry,
			updated_at    = excluded.updated_at
	`, tok.AccessToken, tok.RefreshToken, tok.TokenType, tok.Scope, expiry, now, now)
	if err != nil {
		return fmt.Errorf("store: save google token: %w", err)
	}
	return nil
}
