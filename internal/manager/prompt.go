package manager

import (
	"strings"

	"mlxd/pkg/types"
)

// renderPrompt linearizes a message history into the single prompt the
// model consumes: each message as "<Role>: <content>\n" in order, with a
// trailing assistant marker the model continues from. Messages with an
// unknown role are skipped.
func renderPrompt(msgs []types.ChatMessage) string {
	var b strings.Builder
	for _, msg := range msgs {
		switch msg.Role {
		case "system":
			b.WriteString("System: ")
		case "user":
			b.WriteString("User: ")
		case "assistant":
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(msg.Content)
		b.WriteByte('\n')
	}
	b.WriteString("Assistant: ")
	return b.String()
}

// firstStop returns the byte offset of the earliest stop-sequence match in
// text, or ok=false when none matches.
func firstStop(text string, stops []string) (int, bool) {
	best := -1
	for _, stop := range stops {
		if stop == "" {
			continue
		}
		if idx := strings.Index(text, stop); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	return best, best >= 0
}
