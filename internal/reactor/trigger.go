package reactor

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Trigger is the firing condition of a reaction. The set of variants is closed.
type Trigger interface {
	trigger()
	String() string
}

// Always fires unconditionally.
type Always struct{}

// CommandProbe fires when Command exits with ExitCode.
type CommandProbe struct {
	Command  string
	ExitCode int
}

// FileMatch fires when any pattern matches any changed path.
type FileMatch struct {
	Patterns []string
}

func (Always) trigger()       {}
func (CommandProbe) trigger() {}
func (FileMatch) trigger()    {}

func (Always) String() string { return "always" }

func (p CommandProbe) String() string {
	return fmt.Sprintf("command %q exits %d", p.Command, p.ExitCode)
}

func (f FileMatch) String() string {
	return "files " + strings.Join(f.Patterns, ",")
}

func newTrigger(service string, index int, w *whenDoc) (Trigger, error) {
	if w == nil {
		return Always{}, nil
	}
	reason := func(msg string) error {
		return &SchemaError{Service: service, Kind: KindReact, Reason: fmt.Sprintf("reaction %d: %s", index, msg)}
	}

	switch {
	case w.Command != nil && w.Files != nil:
		return nil, reason("when must specify exactly one of command or files")
	case w.Command != nil:
		if w.ExitCode == nil {
			return nil, reason("when.command requires when.exitcode")
		}
		return CommandProbe{Command: *w.Command, ExitCode: *w.ExitCode}, nil
	case w.Files != nil:
		patterns := make([]string, 0, len(*w.Files))
		for _, p := range *w.Files {
			p = normalizePattern(p)
			if !doublestar.ValidatePattern(p) {
				return nil, reason(fmt.Sprintf("invalid file pattern %q", p))
			}
			patterns = append(patterns, p)
		}
		return FileMatch{Patterns: patterns}, nil
	default:
		return nil, reason("when must specify command or files")
	}
}

func normalizePattern(p string) string {
	p = strings.TrimPrefix(p, "./")
	return strings.TrimLeft(p, "/")
}

// NormalizePath rewrites a changed path to a clean, slash separated path relative to the deployment root.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	if p == "" {
		return ""
	}
	p = strings.TrimLeft(path.Clean(p), "/")
	if p == "." {
		return ""
	}
	return p
}

// NormalizePaths normalises every path and drops empty entries.
func NormalizePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if n := NormalizePath(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// MatchAny reports whether any pattern matches any of the already normalised paths.
func MatchAny(patterns, paths []string) bool {
	for _, pattern := range patterns {
		for _, p := range paths {
			if doublestar.MatchUnvalidated(pattern, p) {
				return true
			}
		}
	}
	return false
}
