// Package selection picks which pending tension to resurface next.
//
// Due tensions (return time reached) win over the rest; otherwise the most
// charged one is chosen. The tension returned last time is skipped when
// another candidate exists. PickNext is pure: it reads a snapshot and never
// mutates it.
package selection

import (
	"slices"
	"time"

	"github.com/starford/helix/internal/tension"
)

// Reason explains why a tension was picked.
type Reason string

const (
	ReasonDue              Reason = "due"
	ReasonDueNoRepeat      Reason = "due_no_repeat"
	ReasonTopScore         Reason = "top_score"
	ReasonTopScoreNoRepeat Reason = "top_score_no_repeat"
	ReasonEmpty            Reason = "empty"
)

// Result is the outcome of PickNext. Tension is nil only when Reason is
// ReasonEmpty.
type Result struct {
	Tension *tension.Tension
	Reason  Reason
}

// Empty reports whether nothing was picked.
func (r Result) Empty() bool {
	return r.Tension == nil
}

// PickNext selects the next tension to return. lastReturnedID is the id of
// the most recently returned tension, or 0 if none was returned yet.
func PickNext(tensions []tension.Tension, lastReturnedID int64, now time.Time) Result {
	var due, active []tension.Tension
	for _, t := range tensions {
		if !t.Active() {
			continue
		}
		active = append(active, t)
		if t.Due(now) {
			due = append(due, t)
		}
	}

	if len(due) > 0 {
		slices.SortFunc(due, byReturnAt)
		return pick(due, lastReturnedID, ReasonDue, ReasonDueNoRepeat)
	}
	if len(active) > 0 {
		slices.SortFunc(active, byCharge)
		return pick(active, lastReturnedID, ReasonTopScore, ReasonTopScoreNoRepeat)
	}
	return Result{Reason: ReasonEmpty}
}

func pick(ranked []tension.Tension, lastReturnedID int64, reason, skipped Reason) Result {
	if lastReturnedID != 0 && ranked[0].ID == lastReturnedID && len(ranked) > 1 {
		t := ranked[1]
		return Result{Tension: &t, Reason: skipped}
	}
	t := ranked[0]
	return Result{Tension: &t, Reason: reason}
}

func byReturnAt(a, b tension.Tension) int {
	if c := a.ReturnAt.Compare(*b.ReturnAt); c != 0 {
		return c
	}
	return byAge(a, b)
}

func byCharge(a, b tension.Tension) int {
	if a.Charge != b.Charge {
		return b.Charge - a.Charge
	}
	return byAge(a, b)
}

func byAge(a, b tension.Tension) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
