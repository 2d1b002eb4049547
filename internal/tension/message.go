package tension

import (
	"fmt"
	"strings"
)

// SuggestForm returns the suggested next step for a vector.
func SuggestForm(v Vector) string {
	switch Vector(strings.ToLower(strings.TrimSpace(string(v)))) {
	case VectorMessage:
		return "Draft a message?"
	case VectorAction:
		return "Do a 5-minute action now?"
	case VectorDecision:
		return "Decide now or schedule 15 minutes of focus?"
	default:
		return "15 minutes of focus today?"
	}
}

// FormatReturn renders the text shown to the user when a tension is
// resurfaced.
func FormatReturn(t Tension, reason string) string {
	var b strings.Builder
	b.WriteString("Returning a tension\n\n")
	fmt.Fprintf(&b, "#%d | %s\n", t.ID, t.Title)
	fmt.Fprintf(&b, "status=%s | charge=%d | vector=%s\n", t.Status, t.Charge, t.Vector)
	fmt.Fprintf(&b, "reason=%s\n\n", reason)
	fmt.Fprintf(&b, "Form: %s\n\n", SuggestForm(t.Vector))
	b.WriteString("Reply:\n")
	b.WriteString("'accept' - take it on\n")
	b.WriteString("'postpone 2h' - postpone for 2 hours\n")
	b.WriteString("'drop' - let it go")
	return b.String()
}

// FormatList renders active tensions as one line each, split into chunks of
// at most maxLen bytes so they fit chat message limits.
func FormatList(ts []Tension, maxLen int) []string {
	if len(ts) == 0 {
		return []string{"No active tensions."}
	}
	lines := make([]string, 0, len(ts)+1)
	lines = append(lines, "Active tensions:")
	for _, t := range ts {
		lines = append(lines, fmt.Sprintf("#%d | %s | status=%s | charge=%d | vector=%s",
			t.ID, t.Title, t.Status, t.Charge, t.Vector))
	}

	var chunks []string
	current := ""
	for _, line := range lines {
		candidate := line
		if current != "" {
			candidate = current + "\n" + line
		}
		if maxLen > 0 && len(candidate) > maxLen && current != "" {
			chunks = append(chunks, current)
			current = line
			continue
		}
		current = candidate
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// EmptyReturnMessage is shown when there is nothing to resurface.
const EmptyReturnMessage = "No active tensions yet. Capture one to get started."
