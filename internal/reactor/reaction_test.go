package reactor

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/danmuck/squadron/internal/testutil/testlog"
)

func TestBuildReactionsKeepsOrderAndBuildsTriggers(t *testing.T) {
	testlog.Start(t)
	doc := []any{
		map[string]any{"execute": []any{"migrate", "db.backup"}},
		map[string]any{
			"execute": []any{"reload"},
			"when":    map[string]any{"files": []any{"./conf/**/*.conf", "/nginx.conf"}},
		},
		map[string]any{
			"execute": []any{"bootstrap"},
			"when":    map[string]any{"command": "test -f .bootstrapped", "exitcode": 1.0},
		},
	}

	reactions, err := BuildReactions("web", doc)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if len(reactions) != 3 {
		t.Fatalf("expected 3 reactions, got %d", len(reactions))
	}

	if want := []string{"web.migrate", "db.backup"}; !reflect.DeepEqual(reactions[0].Execute, want) {
		t.Fatalf("unexpected execute list\nwant: %v\ngot:  %v", want, reactions[0].Execute)
	}
	if _, ok := reactions[0].When.(Always); !ok {
		t.Fatalf("absent when should be Always, got %T", reactions[0].When)
	}

	files, ok := reactions[1].When.(FileMatch)
	if !ok {
		t.Fatalf("expected FileMatch, got %T", reactions[1].When)
	}
	if want := []string{"conf/**/*.conf", "nginx.conf"}; !reflect.DeepEqual(files.Patterns, want) {
		t.Fatalf("unexpected patterns\nwant: %v\ngot:  %v", want, files.Patterns)
	}

	probe, ok := reactions[2].When.(CommandProbe)
	if !ok {
		t.Fatalf("expected CommandProbe, got %T", reactions[2].When)
	}
	if probe.Command != "test -f .bootstrapped" || probe.ExitCode != 1 {
		t.Fatalf("unexpected probe: %+v", probe)
	}
	if reactions[2].ID() != "web#2" {
		t.Fatalf("unexpected reaction id %q", reactions[2].ID())
	}
}

func TestBuildReactionsEmptyFilesNeverFires(t *testing.T) {
	testlog.Start(t)
	reactions, err := BuildReactions("web", []any{
		map[string]any{"execute": []any{"a"}, "when": map[string]any{"files": []any{}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	files, ok := reactions[0].When.(FileMatch)
	if !ok || len(files.Patterns) != 0 {
		t.Fatalf("expected empty FileMatch, got %#v", reactions[0].When)
	}
	if MatchAny(files.Patterns, []string{"anything"}) {
		t.Fatalf("empty pattern list must never match")
	}
}

func TestBuildReactionsSchemaErrors(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name   string
		doc    any
		reason string
	}{
		{name: "not a list", doc: map[string]any{"execute": []any{"a"}}},
		{name: "missing execute", doc: []any{map[string]any{"when": map[string]any{"files": []any{"x"}}}}},
		{name: "empty execute", doc: []any{map[string]any{"execute": []any{}}}},
		{name: "duplicate execute", doc: []any{map[string]any{"execute": []any{"a", "a"}}}},
		{name: "exitcode not integer", doc: []any{map[string]any{"execute": []any{"a"}, "when": map[string]any{"command": "true", "exitcode": 1.5}}}},
		{name: "empty when", doc: []any{map[string]any{"execute": []any{"a"}, "when": map[string]any{}}}, reason: "command or files"},
		{name: "both fields", doc: []any{map[string]any{"execute": []any{"a"}, "when": map[string]any{"command": "true", "exitcode": 0.0, "files": []any{"x"}}}}, reason: "exactly one"},
		{name: "command without exitcode", doc: []any{map[string]any{"execute": []any{"a"}, "when": map[string]any{"command": "true"}}}, reason: "exitcode"},
		{name: "bad pattern", doc: []any{map[string]any{"execute": []any{"a"}, "when": map[string]any{"files": []any{"[abc"}}}}, reason: "invalid file pattern"},
	}
	for _, tc := range cases {
		_, err := BuildReactions("web", tc.doc)
		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			t.Fatalf("%s: expected SchemaError, got %v", tc.name, err)
		}
		if schemaErr.Kind != KindReact {
			t.Fatalf("%s: unexpected kind %q", tc.name, schemaErr.Kind)
		}
		if tc.reason != "" && !strings.Contains(schemaErr.Reason, tc.reason) {
			t.Fatalf("%s: expected reason containing %q, got %q", tc.name, tc.reason, schemaErr.Reason)
		}
	}
}

func TestBuildReactionsRejectsNullDocument(t *testing.T) {
	testlog.Start(t)
	reactions, err := BuildReactions("web", nil)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) || schemaErr.Kind != KindReact || reactions != nil {
		t.Fatalf("expected SchemaError for null document, got %v err=%v", reactions, err)
	}
}

func TestBuildReactionsEmptySequence(t *testing.T) {
	testlog.Start(t)
	reactions, err := BuildReactions("web", []any{})
	if err != nil || len(reactions) != 0 {
		t.Fatalf("expected no reactions, got %v err=%v", reactions, err)
	}
}
