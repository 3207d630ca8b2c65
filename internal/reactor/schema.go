package reactor

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

const (
	KindActions = "actions"
	KindReact   = "react"
)

func stringArray() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}
}

// ActionSchema describes one entry of an actions descriptor.
func ActionSchema() *jsonschema.Schema {
	notAfter := stringArray()
	notAfter.UniqueItems = true
	notAfter.Description = "actions that must not have run earlier in the same pass"
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"command":   {Type: "string", Description: "whitespace separated command line"},
			"not_after": notAfter,
		},
		Required: []string{"command"},
	}
}

// ReactSchema describes a whole react descriptor: an ordered sequence of reactions.
func ReactSchema() *jsonschema.Schema {
	execute := stringArray()
	execute.MinItems = jsonschema.Ptr(1)
	execute.UniqueItems = true
	return &jsonschema.Schema{
		Type: "array",
		Items: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"execute": execute,
				"when": {
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"command":  {Type: "string"},
						"exitcode": {Type: "integer"},
						"files":    stringArray(),
					},
				},
			},
			Required: []string{"execute"},
		},
	}
}

var (
	resolvedAction = sync.OnceValues(func() (*jsonschema.Resolved, error) {
		return ActionSchema().Resolve(nil)
	})
	resolvedReact = sync.OnceValues(func() (*jsonschema.Resolved, error) {
		return ReactSchema().Resolve(nil)
	})
)

// ValidateAction checks one action entry against the action schema.
func ValidateAction(service, name string, entry any) error {
	rs, err := resolvedAction()
	if err != nil {
		return fmt.Errorf("reactor: resolve action schema: %w", err)
	}
	if err := rs.Validate(entry); err != nil {
		return &SchemaError{Service: service, Kind: KindActions, Reason: fmt.Sprintf("action %q", name), Err: err}
	}
	return nil
}

// ValidateActions checks a whole actions document: an object keyed by action name
// whose every entry satisfies the action schema.
func ValidateActions(service string, doc any) error {
	entries, ok := doc.(map[string]any)
	if !ok {
		return &SchemaError{Service: service, Kind: KindActions, Reason: fmt.Sprintf("document must be an object keyed by action name, got %s", valueKind(doc))}
	}
	for _, name := range slices.Sorted(maps.Keys(entries)) {
		if err := ValidateAction(service, name, entries[name]); err != nil {
			return err
		}
	}
	return nil
}

// ValidateReactions checks a react document against the reaction schema.
func ValidateReactions(service string, doc any) error {
	rs, err := resolvedReact()
	if err != nil {
		return fmt.Errorf("reactor: resolve react schema: %w", err)
	}
	if doc == nil {
		return &SchemaError{Service: service, Kind: KindReact, Reason: "document must be a sequence of reactions, got null"}
	}
	if err := rs.Validate(doc); err != nil {
		return &SchemaError{Service: service, Kind: KindReact, Err: err}
	}
	return nil
}

func valueKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// decodeInto re-reads a validated JSON value model into a typed record.
func decodeInto(service, kind string, doc any, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return &SchemaError{Service: service, Kind: kind, Reason: "encode", Err: err}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &SchemaError{Service: service, Kind: kind, Reason: "decode", Err: err}
	}
	return nil
}
