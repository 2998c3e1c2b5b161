package rules

import (
	"bytes"
	"regexp"
	"strings"

	"shellpure/internal/diag"
)

// # shellpure disable=SEC006,DET001
var suppressRe = regexp.MustCompile(`#\s*shellpure\s+disable=([A-Za-z0-9_, ]+)`)

// Suppressions maps a 1-based line to the codes disabled on it by a
// `# shellpure disable=CODE[,CODE]` comment.
type Suppressions map[int]map[diag.Code]bool

// ParseSuppressions scans content for disable comments.
func ParseSuppressions(content []byte) Suppressions {
	if !bytes.Contains(content, []byte("shellpure")) {
		return nil
	}
	out := make(Suppressions)
	for i, line := range bytes.Split(content, []byte("\n")) {
		m := suppressRe.FindSubmatch(line)
		if m == nil {
			continue
		}
		set := make(map[diag.Code]bool)
		for _, code := range strings.Split(string(m[1]), ",") {
			if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
				set[diag.Code(code)] = true
			}
		}
		out[i+1] = set
	}
	return out
}

// Suppressed reports whether code is disabled on line by a comment on the
// same line or on the line above.
func (s Suppressions) Suppressed(code diag.Code, line int) bool {
	if len(s) == 0 || line <= 0 {
		return false
	}
	for _, l := range [2]int{line, line - 1} {
		if set := s[l]; set[code] || set["ALL"] {
			return true
		}
	}
	return false
}
