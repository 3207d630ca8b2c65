package deploy

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/squadron/internal/reactor"
)

// ReadChangedPaths reads one path per line. Blank lines and # comments are ignored;
// paths are normalised and de-duplicated in first-seen order.
func ReadChangedPaths(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("deploy: read changed paths: %w", err)
	}
	return MergeChangedPaths(lines), nil
}

// MergeChangedPaths normalises and de-duplicates path lists, keeping first-seen order.
func MergeChangedPaths(lists ...[]string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, p := range reactor.NormalizePaths(list) {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
