package council

import (
	"fmt"
	"strings"
)

// BuildContext renders the advisors' results into the single text block the
// chairman reads. Successful answers appear verbatim; failures appear only
// inside a "[Member failed to respond: ...]" marker.
func BuildContext(prompt string, results []AdvisorResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The user asked: '%s'\n\n", prompt)
	sb.WriteString("Here are the initial opinions from the council:\n\n")

	for _, res := range results {
		fmt.Fprintf(&sb, "--- Opinion of %s (%s) ---\n", res.Name, res.Model)
		if res.OK() {
			sb.WriteString(res.Content)
		} else {
			sb.WriteString(FailureMarker(res.Content))
		}
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// FailureMarker returns the text BuildContext uses for a failed result.
func FailureMarker(content string) string {
	return fmt.Sprintf("[Member failed to respond: %s]", content)
}
