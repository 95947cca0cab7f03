package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// NormalizeSeatCodes trims and upper-cases seat identifiers. Blank, repeated
// or longer-than-maxLen identifiers are rejected.
func NormalizeSeatCodes(raw []string, maxLen int) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, p := range raw {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			return nil, fmt.Errorf("seat identifier is blank")
		}
		if maxLen > 0 && utf8.RuneCountInString(p) > maxLen {
			return nil, fmt.Errorf("seat identifier longer than %d characters", maxLen)
		}
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("seat %s listed twice", p)
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// UniqueTrimmed drops blanks and repeats while keeping first-seen order.
func UniqueTrimmed(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// SafeFilenamePart replaces characters that are unsafe in file names.
func SafeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	return TruncateUTF8(replacer.Replace(s), 40)
}

// TruncateUTF8 cuts s to at most n bytes without splitting a character.
func TruncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
