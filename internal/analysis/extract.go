package analysis

import (
	"fmt"
	"strings"
)

// stripMarkdownFences removes ```json ... ``` or ``` ... ``` wrapping from
// text. Returns the content between the fences, or the original text if no
// fences are found.
func stripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	startIdx := 1 // skip the opening ``` line
	endIdx := -1

	for i := len(lines) - 1; i > startIdx; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	if endIdx == -1 {
		// No closing fence after the opening line (truncated output).
		return text
	}

	return strings.Join(lines[startIdx:endIdx], "\n")
}

// extractJSON finds and returns the JSON content (object or array) from text
// that may contain surrounding prose. It finds the first { or [ and matches
// it with the last corresponding } or ]. The model is instructed to answer
// with pure JSON but is not guaranteed to comply.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	objIdx := strings.Index(text, "{")
	arrIdx := strings.Index(text, "[")

	if objIdx == -1 && arrIdx == -1 {
		return "", fmt.Errorf("no JSON content found in response")
	}

	var startIdx int
	var endChar string

	if arrIdx == -1 || (objIdx != -1 && objIdx <= arrIdx) {
		startIdx = objIdx
		endChar = "}"
	} else {
		startIdx = arrIdx
		endChar = "]"
	}

	text = text[startIdx:]
	endIdx := strings.LastIndex(text, endChar)
	if endIdx == -1 {
		return "", fmt.Errorf("no closing %s found in response", endChar)
	}

	return text[:endIdx+1], nil
}
