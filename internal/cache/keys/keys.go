// Package keys builds cache keys for solve results and jobs.
package keys

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const prefix = "rect:v1"

// Key identifies a solve result by containment strategy and input
// content. Inputs that differ only in blank lines or surrounding
// whitespace share a key.
func Key(containment string, raw []byte) string {
	norm, n := normalizeInput(raw)
	sum := xxhash.Sum64(norm)
	return fmt.Sprintf("%s:%s:n=%d:f=%016x", prefix, sanitizeForKey(strings.ToLower(strings.TrimSpace(containment))), n, sum)
}

// JobKey is where a Kafka job's result is stored.
func JobKey(id string) string {
	id = sanitizeForKey(strings.TrimSpace(id))
	const maxIDLen = 128
	if len(id) > maxIDLen {
		id = fmt.Sprintf("%s-%016x", id[:maxIDLen], xxhash.Sum64String(id))
	}
	return fmt.Sprintf("%s:job:%s", prefix, id)
}

// strips all whitespace from every line and drops empty lines, returning
// the number of lines kept
func normalizeInput(raw []byte) ([]byte, int) {
	out := make([]byte, 0, len(raw))
	n := 0
	for line := range bytes.Lines(raw) {
		line = bytes.Map(func(r rune) rune {
			if isASCIISpace(r) {
				return -1
			}
			return r
		}, line)
		if len(line) == 0 {
			continue
		}
		out = append(append(out, line...), '\n')
		n++
	}
	return out, n
}

func isASCIISpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case isASCIISpace(r):
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// Any other rune (including ':' and non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
