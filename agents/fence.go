// ABOUTME: Helpers for cleaning model output: code fence stripping.

package agents

import "strings"

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, and trims whitespace. Text without a fence passes through.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop the language tag line (hcl, terraform, json, yaml, ...).
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 12 && !strings.ContainsAny(first, " {}=\"") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
