package dialogue

import (
	"fmt"
	"strings"
)

// NoPriorRecord stands in for an empty history inside prompts.
const NoPriorRecord = "(no prior record)"

func FormatStanceHistory(history []StanceVersion) string {
	if len(history) == 0 {
		return NoPriorRecord
	}
	var sb strings.Builder
	for i, v := range history {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "v%d: %s", v.Version, v.Position)
		if v.Reason != "" {
			fmt.Fprintf(&sb, " (reason: %s)", v.Reason)
		}
	}
	return sb.String()
}

func FormatPrincipleHistory(history []PrincipleVersion) string {
	if len(history) == 0 {
		return NoPriorRecord
	}
	var sb strings.Builder
	for i, v := range history {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "v%d: %s", v.Version, v.Statement)
		if v.Classification != "" {
			fmt.Fprintf(&sb, " [%s]", v.Classification)
		}
	}
	return sb.String()
}

// FormatTranscript renders the conversation as "Student:"/"Tutor:" lines.
func FormatTranscript(history []Entry) string {
	if len(history) == 0 {
		return NoPriorRecord
	}
	var sb strings.Builder
	for i, e := range history {
		if i > 0 {
			sb.WriteString("\n")
		}
		speaker := "Student"
		if e.Role == RoleModel {
			speaker = "Tutor"
		}
		fmt.Fprintf(&sb, "%s: %s", speaker, e.Text)
	}
	return sb.String()
}
