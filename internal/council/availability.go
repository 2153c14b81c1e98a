package council

import "strings"

// MissingModels returns the configured ids that are not a substring of any
// available id ("llama3" matches "ollama:llama3:latest"). Order follows
// configured.
func MissingModels(configured, available []string) []string {
	var missing []string
	for _, want := range configured {
		found := false
		for _, have := range available {
			if strings.Contains(have, want) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	return missing
}
