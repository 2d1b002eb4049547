package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/helix/internal/freeslots"
	"github.com/starford/helix/internal/scheduler"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	User      UserConfig        `yaml:"user"`
	Calendar  CalendarConfig    `yaml:"calendar"`
	Google    GoogleConfig      `yaml:"google"`
	Scheduler SchedulerConfig   `yaml:"scheduler"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.User.Validate(); err != nil {
		return fmt.Errorf("user: %w", err)
	}
	if err := c.Calendar.Validate(); err != nil {
		return fmt.Errorf("calendar: %w", err)
	}
	if err := c.Google.Validate(); err != nil {
		return fmt.Errorf("google: %w", err)
	}
	return c.Scheduler.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// UserConfig describes the single user of the instance.
type UserConfig struct {
	Timezone string `yaml:"timezone"`
}

// Validate validates the user configuration.
func (c *UserConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timezone, validation.Required, validation.By(func(any) error {
			if _, err := time.LoadLocation(c.Timezone); err != nil {
				return errors.New("must be an IANA time zone name")
			}
			return nil
		})),
	)
}

// Location returns the user's time zone. Call after Validate.
func (c *UserConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CalendarConfig holds the local ICS directory and the free-slot defaults.
// An empty ICSDir disables local calendars.
type CalendarConfig struct {
	ICSDir      string `yaml:"ics_dir"`
	WorkStart   string `yaml:"work_start"`
	WorkEnd     string `yaml:"work_end"`
	DurationMin int    `yaml:"duration_min"`
	BufferMin   int    `yaml:"buffer_min"`
	MaxSlots    int    `yaml:"max_slots"`
}

// Validate validates the calendar configuration by running the defaults
// through the same checks as a request.
func (c *CalendarConfig) Validate() error {
	p := freeslots.Params{
		WorkStart:   c.WorkStart,
		WorkEnd:     c.WorkEnd,
		DurationMin: &c.DurationMin,
		BufferMin:   &c.BufferMin,
		MaxSlots:    &c.MaxSlots,
	}
	_, err := p.Request(time.UTC, time.Now(), freeslots.Defaults{})
	return err
}

// Defaults converts the configuration into finder defaults.
func (c *CalendarConfig) Defaults() freeslots.Defaults {
	return freeslots.Defaults{
		DurationMin: c.DurationMin,
		WorkStart:   c.WorkStart,
		WorkEnd:     c.WorkEnd,
		BufferMin:   c.BufferMin,
		MaxSlots:    c.MaxSlots,
	}
}

// GoogleConfig holds the OAuth application used for Google Calendar.
// An empty ClientID disables the integration.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether Google Calendar is configured.
func (c *GoogleConfig) Enabled() bool {
	return c.ClientID != ""
}

// Validate validates the Google configuration.
func (c *GoogleConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.ClientSecret, validation.Required),
		validation.Field(&c.RedirectURL, validation.Required, is.RequestURL),
	)
}

// SchedulerConfig holds the automatic return schedule. An empty ReturnCron
// disables it.
type SchedulerConfig struct {
	ReturnCron string `yaml:"return_cron"`
}

// Validate validates the scheduler configuration.
func (c *SchedulerConfig) Validate() error {
	if c.ReturnCron == "" {
		return nil
	}
	if err := scheduler.Validate(c.ReturnCron); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./helix.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		User: UserConfig{
			Timezone: "UTC",
		},
		Calendar: CalendarConfig{
			ICSDir:      "./calendars",
			WorkStart:   freeslots.DefaultWorkStart,
			WorkEnd:     freeslots.DefaultWorkEnd,
			DurationMin: freeslots.DefaultDurationMin,
			BufferMin:   freeslots.DefaultBufferMin,
			MaxSlots:    freeslots.DefaultMaxSlots,
		},
		Google: GoogleConfig{
			RedirectURL: "http://localhost:8080/api/oauth/google/callback",
		},
	}
}
