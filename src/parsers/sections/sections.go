// Package sections holds line-oriented helpers shared by the statement
// parsers.
package sections

import "strings"

// ExtractLines returns the trimmed, non-empty lines between startMarker and
// the earliest of endMarkers. An absent start marker yields nil.
func ExtractLines(text, startMarker string, endMarkers []string) []string {
	startIdx := strings.Index(text, startMarker)
	if startIdx < 0 {
		return nil
	}
	sub := text[startIdx+len(startMarker):]
	endIdx := len(sub)
	for _, marker := range endMarkers {
		if idx := strings.Index(sub, marker); idx >= 0 && idx < endIdx {
			endIdx = idx
		}
	}
	var lines []string
	for _, line := range strings.Split(sub[:endIdx], "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
