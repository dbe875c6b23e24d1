// Package gcode reads pen-plotter G-code into millimetre paths.
package gcode

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is one parsed G-code line
type Command struct {
	Type       byte             // 'G', 'M', 'T'; 0 for a comment-only line
	Number     int              // command number (0 for G0, 21 for G21)
	Parameters map[byte]float64 // X, Y, Z, F, S, ...
	Comment    string
}

// HasParameter reports whether the command carries param
func (c *Command) HasParameter(param byte) bool {
	_, ok := c.Parameters[param]
	return ok
}

// GetParameter returns a parameter value, or defaultValue if absent
func (c *Command) GetParameter(param byte, defaultValue float64) float64 {
	if v, ok := c.Parameters[param]; ok {
		return v
	}
	return defaultValue
}

// ParseLine parses a single line. Blank lines return (nil, nil).
func ParseLine(line string) (*Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}

	cmd := &Command{Parameters: make(map[byte]float64)}
	if i := strings.IndexAny(line, ";("); i >= 0 {
		cmd.Comment = line[i:]
		line = strings.TrimSpace(line[:i])
	}
	if line == "" {
		return cmd, nil
	}

	// Line numbers ("N10 G1 ...") are dropped
	words := splitWords(line)
	if len(words) > 0 && toUpper(words[0][0]) == 'N' {
		words = words[1:]
	}

	for i, w := range words {
		letter := toUpper(w[0])
		if !isLetter(letter) {
			return nil, fmt.Errorf("gcode: unexpected %q in %q", w, line)
		}
		if i == 0 && (letter == 'G' || letter == 'M' || letter == 'T') {
			n, err := strconv.Atoi(w[1:])
			if err != nil {
				// G0.1 style subcodes carry no meaning for a plotter
				f, ferr := strconv.ParseFloat(w[1:], 64)
				if ferr != nil {
					return nil, fmt.Errorf("gcode: bad command number %q: %w", w, err)
				}
				n = int(f)
			}
			cmd.Type = letter
			cmd.Number = n
			continue
		}
		v, err := strconv.ParseFloat(w[1:], 64)
		if err != nil {
			return nil, fmt.Errorf("gcode: bad value for %c in %q: %w", letter, line, err)
		}
		cmd.Parameters[letter] = v
	}
	return cmd, nil
}

// splitWords splits "G1X10 Y-2.5" into letter-prefixed words
func splitWords(line string) []string {
	var words []string
	start := -1
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			if start >= 0 {
				words = append(words, line[start:i])
				start = -1
			}
		case isExponent(line, start, i):
			// part of the number, as in X1.5e2
		case isLetter(c):
			if start >= 0 {
				words = append(words, line[start:i])
			}
			start = i
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		words = append(words, line[start:])
	}
	return words
}

// isExponent reports whether the e/E at line[i] continues the number of the
// word starting at start
func isExponent(line string, start, i int) bool {
	c := line[i]
	if (c != 'e' && c != 'E') || start < 0 || i-start < 2 || i+1 >= len(line) {
		return false
	}
	if prev := line[i-1]; !isDigit(prev) && prev != '.' {
		return false
	}
	next := line[i+1]
	return isDigit(next) || ((next == '-' || next == '+') && i+2 < len(line) && isDigit(line[i+2]))
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
