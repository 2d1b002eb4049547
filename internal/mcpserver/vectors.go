package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/helix/internal/tension"
)

const vectorsURI = "helix://vectors"

var vectorNotes = map[tension.Vector]string{
	tension.VectorUnknown:    "not yet clear what kind of move resolves it",
	tension.VectorAction:     "a small concrete step",
	tension.VectorMessage:    "someone needs to hear from you",
	tension.VectorMeeting:    "needs time with other people",
	tension.VectorFocusBlock: "needs uninterrupted focus time",
	tension.VectorDecision:   "a choice is pending",
	tension.VectorResearch:   "information is missing",
	tension.VectorDelegate:   "someone else should carry it",
	tension.VectorDrop:       "candidate for letting go",
}

// vectorGuide renders the vector reference served as a resource.
func vectorGuide() string {
	var b strings.Builder
	b.WriteString("# Helix tension vectors\n\n")
	b.WriteString("A vector is the kind of move that would release a tension. ")
	b.WriteString("It drives the form suggested when the tension returns.\n\n")
	b.WriteString("| vector | meaning | suggested form |\n")
	b.WriteString("|--------|---------|----------------|\n")
	for _, v := range tension.Vectors {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", v, vectorNotes[v], tension.SuggestForm(v))
	}
	fmt.Fprintf(&b, "\nCharge ranges from %d to %d (default %d). ", tension.MinCharge, tension.MaxCharge, tension.DefaultCharge)
	b.WriteString("Only held and forming tensions are active and can return.\n")
	return b.String()
}
