// Package util provides small string helpers for command parsing.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// SplitCommand splits a command line into its name and arguments. Double
// quotes group words into one argument and are dropped.
func SplitCommand(line string) (string, []string) {
	var fields []string
	var cur strings.Builder
	inQuotes, started := false, false

	flush := func() {
		if started {
			fields = append(fields, cur.String())
			cur.Reset()
			started = false
		}
	}

	for _, r := range strings.TrimSpace(line) {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			started = true
		case (r == ' ' || r == '\t') && !inQuotes:
			flush()
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	flush()

	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// ParseUint16 parses a vessel id style argument.
func ParseUint16(s, name string) (uint16, error) {
	v, err := strconv.ParseUint(TrimQuotes(strings.TrimSpace(s)), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return uint16(v), nil
}

// ParsePositiveInt parses an argument that must be greater than zero.
func ParsePositiveInt(s, name string) (int, error) {
	v, err := strconv.Atoi(TrimQuotes(strings.TrimSpace(s)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, s)
	}
	return v, nil
}
