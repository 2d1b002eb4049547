package tension

import "time"

// EventType classifies an entry of the tension event log.
type EventType string

const (
	EventCaptured        EventType = "captured"
	EventEdited          EventType = "edited"
	EventChargeChanged   EventType = "charge_changed"
	EventVectorChanged   EventType = "vector_changed"
	EventStageChanged    EventType = "stage_changed"
	EventReturnScheduled EventType = "return_scheduled"
	EventReturned        EventType = "returned"
	EventPostponed       EventType = "postponed"
	EventAccepted        EventType = "accepted"
	EventRejected        EventType = "rejected"
	EventFormProposed    EventType = "form_proposed"
	EventFormChosen      EventType = "form_chosen"
	EventFormApplied     EventType = "form_applied"
	EventReleased        EventType = "released"
	EventDropped         EventType = "dropped"
)

// Actor records who caused an event.
type Actor string

const (
	ActorUser   Actor = "user"
	ActorHelix  Actor = "helix"
	ActorSystem Actor = "system"
)

// Event is an immutable entry of the append-only tension log.
type Event struct {
	ID        int64          `json:"id"`
	TensionID int64          `json:"tension_id"`
	Type      EventType      `json:"type"`
	Actor     Actor          `json:"actor"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}
