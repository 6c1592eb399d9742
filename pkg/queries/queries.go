// Package queries reads search queries from newline-delimited text files.
package queries

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadFile reads queries from a UTF-8 text file, one per line.
// Lines are trimmed and blank lines are skipped.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open query file: %w", err)
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		q := strings.TrimSpace(scanner.Text())
		if q != "" {
			queries = append(queries, q)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}

	return queries, nil
}
