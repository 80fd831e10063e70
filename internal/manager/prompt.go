package manager

import (
	"strings"

	"frequency/pkg/types"
)

// renderPrompt lays out prior turns as alternating User:/Assistant: lines and
// ends with an open Assistant: line for the model to complete.
func renderPrompt(history []types.ChatTurn, query string) string {
	var b strings.Builder
	for _, turn := range history {
		b.WriteString("User: ")
		b.WriteString(turn.Query)
		b.WriteString("\nAssistant: ")
		b.WriteString(turn.Response)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(query)
	b.WriteString("\nAssistant:")
	return b.String()
}
