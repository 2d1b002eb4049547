// Package tension defines tensions (open loops with a charge and an intended
// form of resolution) and the append-only events recorded against them.
package tension

import "time"

// Status is the life stage of a tension.
type Status string

const (
	StatusHeld     Status = "held"
	StatusForming  Status = "forming"
	StatusReleased Status = "released"
	StatusParked   Status = "parked"
	StatusDropped  Status = "dropped"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusHeld, StatusForming, StatusReleased, StatusParked, StatusDropped}

// Active reports whether tensions in this status take part in return selection.
func (s Status) Active() bool {
	return s == StatusHeld || s == StatusForming
}

// Vector is the intended form of resolution.
type Vector string

const (
	VectorUnknown    Vector = "unknown"
	VectorAction     Vector = "action"
	VectorMessage    Vector = "message"
	VectorMeeting    Vector = "meeting"
	VectorFocusBlock Vector = "focus_block"
	VectorDecision   Vector = "decision"
	VectorResearch   Vector = "research"
	VectorDelegate   Vector = "delegate"
	VectorDrop       Vector = "drop"
)

// Vectors lists every valid vector.
var Vectors = []Vector{
	VectorUnknown, VectorAction, VectorMessage, VectorMeeting, VectorFocusBlock,
	VectorDecision, VectorResearch, VectorDelegate, VectorDrop,
}

// Charge bounds.
const (
	MinCharge     = 0
	MaxCharge     = 5
	DefaultCharge = 3
)

// Tension is an unresolved commitment.
type Tension struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Note      string     `json:"note,omitempty"`
	Status    Status     `json:"status"`
	Charge    int        `json:"charge"`
	Vector    Vector     `json:"vector"`
	ReturnAt  *time.Time `json:"return_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Active reports whether the tension is held or forming.
func (t Tension) Active() bool {
	return t.Status.Active()
}

// Due reports whether the tension has a return time at or before now.
func (t Tension) Due(now time.Time) bool {
	return t.ReturnAt != nil && !t.ReturnAt.After(now)
}
