// Package input expands CLI argument lists that use - (stdin) or @file
// syntax, so member ids can be piped or read from a file.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrStdinReused is returned when - appears more than once.
var ErrStdinReused = errors.New("stdin can only be read once")

// ExpandArgs replaces "-" with the lines of stdin and "@path" with the lines
// of that file. Blank lines are dropped. Other values pass through unchanged.
func ExpandArgs(values []string, stdin io.Reader) ([]string, error) {
	var (
		result    []string
		stdinUsed bool
	)
	for _, v := range values {
		switch {
		case v == "-":
			if stdinUsed {
				return nil, ErrStdinReused
			}
			stdinUsed = true
			lines, err := ReadLines(stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			result = append(result, lines...)
		case strings.HasPrefix(v, "@") && len(v) > 1:
			path := strings.TrimPrefix(v, "@")
			file, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			lines, err := ReadLines(file)
			file.Close()
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			result = append(result, lines...)
		default:
			result = append(result, v)
		}
	}
	return result, nil
}

// ReadLines reads non-empty lines from a reader. Commas also separate
// values, so a pasted "12, 14, 15" expands to three entries.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		for _, part := range strings.Split(scanner.Text(), ",") {
			if part = strings.TrimSpace(part); part != "" {
				lines = append(lines, part)
			}
		}
	}
	return lines, scanner.Err()
}
