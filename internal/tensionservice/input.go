package tensionservice

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/helix/internal/tension"
)

// Limits on user-supplied values.
const (
	MaxTitleLen      = 500
	MaxNoteLen       = 5000
	MaxPostponeMin   = 30 * 24 * 60
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// CaptureInput is a new tension as submitted by a client.
type CaptureInput struct {
	Title    string         `json:"title"`
	Note     string         `json:"note,omitempty"`
	Charge   *int           `json:"charge,omitempty"`
	Vector   tension.Vector `json:"vector,omitempty"`
	Status   tension.Status `json:"status,omitempty"`
	ReturnAt *time.Time     `json:"return_at,omitempty"`
}

func (in *CaptureInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Note = strings.TrimSpace(in.Note)
	in.Vector = tension.Vector(strings.ToLower(strings.TrimSpace(string(in.Vector))))
	in.Status = tension.Status(strings.ToLower(strings.TrimSpace(string(in.Status))))
}

// Validate implements validation.Validatable.
func (in CaptureInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.RuneLength(1, MaxTitleLen)),
		validation.Field(&in.Note, validation.RuneLength(0, MaxNoteLen)),
		validation.Field(&in.Charge, validation.Min(tension.MinCharge), validation.Max(tension.MaxCharge)),
		validation.Field(&in.Vector, tension.VectorRule),
		validation.Field(&in.Status, tension.StatusRule),
	)
}

// UpdateInput changes one or more tension fields. ClearReturn removes a
// scheduled return and cannot be combined with ReturnAt.
type UpdateInput struct {
	Charge      *int            `json:"charge,omitempty"`
	Vector      *tension.Vector `json:"vector,omitempty"`
	Status      *tension.Status `json:"status,omitempty"`
	ReturnAt    *time.Time      `json:"return_at,omitempty"`
	ClearReturn bool            `json:"clear_return,omitempty"`
}

func (in UpdateInput) empty() bool {
	return in.Charge == nil && in.Vector == nil && in.Status == nil && in.ReturnAt == nil && !in.ClearReturn
}

// Validate implements validation.Validatable.
func (in UpdateInput) Validate() error {
	if in.empty() {
		return errors.New("at least one of charge, vector, status, return_at, clear_return is required")
	}
	if in.ReturnAt != nil && in.ClearReturn {
		return validation.Errors{"clear_return": errors.New("cannot be combined with return_at")}
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Charge, validation.Min(tension.MinCharge), validation.Max(tension.MaxCharge)),
		validation.Field(&in.Vector, validation.NilOrNotEmpty, tension.VectorRule),
		validation.Field(&in.Status, validation.NilOrNotEmpty, tension.StatusRule),
	)
}

func validateMinutes(minutes int) error {
	return validation.Errors{
		"minutes": validation.Validate(minutes, validation.Required.Error("must be positive"), validation.Min(1), validation.Max(MaxPostponeMin)),
	}.Filter()
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}
