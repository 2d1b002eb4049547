// Package google reads and writes the user's primary Google Calendar.
//
// Authorization uses the OAuth 2.0 code flow with offline access; the single
// resulting token is persisted and transparently refreshed.
package google

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/starford/helix/internal/apperr"
	"github.com/starford/helix/internal/store"
)

// Scope grants read/write access to calendar events.
const Scope = "https://www.googleapis.com/auth/calendar.events"

// DefaultBaseURL is the Calendar API v3 root.
const DefaultBaseURL = "https://www.googleapis.com/calendar/v3"

const stateTTL = 10 * time.Minute

// TokenStore persists the OAuth token.
type TokenStore interface {
	GoogleToken(ctx context.Context) (store.Token, error)
	SaveGoogleToken(ctx context.Context, tok store.Token, now time.Time) error
}

// Client is a calendar source backed by Google Calendar.
type Client struct {
	cfg     *oauth2.Config
	tokens  TokenStore
	baseURL string
	hc      *http.Client
	now     func() time.Time
	logger  *slog.Logger

	mu     sync.Mutex
	states map[string]time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the OAuth endpoint.
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(c *Client) { c.cfg.Endpoint = e }
}

// WithBaseURL overrides the Calendar API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets the client used for token and API requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the given OAuth application.
func New(clientID, clientSecret, redirectURL string, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{Scope},
			Endpoint:     endpoints.Google,
		},
		tokens:  tokens,
		baseURL: DefaultBaseURL,
		hc:      http.DefaultClient,
		now:     time.Now,
		logger:  slog.Default(),
		states:  make(map[string]time.Time),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name implements calendar.Source.
func (c *Client) Name() string { return "google" }

// AuthURL starts the consent flow and returns the URL to redirect the user
// to. The embedded state is valid for a single callback.
func (c *Client) AuthURL() string {
	state := ulid.MustNew(ulid.Timestamp(c.now()), ulid.Monotonic(rand.Reader, 0)).String()

	c.mu.Lock()
	now := c.now()
	for s, exp := range c.states {
		if now.After(exp) {
			delete(c.states, s)
		}
	}
	c.states[state] = now.Add(stateTTL)
	c.mu.Unlock()

	return c.cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

func (c *Client) consumeState(state string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp, ok := c.states[state]
	if !ok {
		return false
	}
	delete(c.states, state)
	return !c.now().After(exp)
}

// Exchange completes the consent flow: it checks state, trades code for a
// token and persists it.
func (c *Client) Exchange(ctx context.Context, code, state string) error {
	if code == "" {
		return fmt.Errorf("%w: code: cannot be blank", apperr.ErrInvalidInput)
	}
	if !c.consumeState(state) {
		return fmt.Errorf("%w: state: unknown or expired", apperr.ErrInvalidInput)
	}
	tok, err := c.cfg.Exchange(c.clientContext(ctx), code)
	if err != nil {
		return fmt.Errorf("google: exchange code: %w: %w", apperr.ErrUpstream, err)
	}
	if err := c.tokens.SaveGoogleToken(ctx, fromOAuth(tok), c.now()); err != nil {
		return err
	}
	c.logger.Info("google: calendar connected")
	return nil
}

// Connected reports whether a token is stored.
func (c *Client) Connected(ctx context.Context) bool {
	_, err := c.tokens.GoogleToken(ctx)
	return err == nil
}

func (c *Client) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.hc)
}

// httpClient returns a client that authorizes requests with the stored token,
// refreshing and persisting it when it expires.
func (c *Client) httpClient(ctx context.Context) (*http.Client, error) {
	stored, err := c.tokens.GoogleToken(ctx)
	if err != nil {
		return nil, err
	}
	current := toOAuth(stored)
	if !current.Valid() && current.RefreshToken == "" {
		return nil, fmt.Errorf("token expired and no refresh token, reconnect: %w", apperr.ErrNotConnected)
	}
	cctx := c.clientContext(ctx)
	ts := &persistingSource{
		ctx:    ctx,
		base:   c.cfg.TokenSource(cctx, current),
		last:   current.AccessToken,
		client: c,
	}
	return oauth2.NewClient(cctx, ts), nil
}

// persistingSource saves every newly issued access token.
type persistingSource struct {
	ctx    context.Context
	base   oauth2.TokenSource
	client *Client

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := p.client.tokens.SaveGoogleToken(p.ctx, fromOAuth(tok), p.client.now()); err != nil {
			p.client.logger.Warn("google: persist refreshed token failed", slog.String("error", err.Error()))
		} else {
			p.client.logger.Debug("google: access token refreshed")
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}

func toOAuth(t store.Token) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

func fromOAuth(t *oauth2.Token) store.Token {
	scope, _ := t.Extra("scope").(string)
	return store.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Scope:        scope,
		Expiry:       t.Expiry,
	}
}
