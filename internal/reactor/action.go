package reactor

import (
	"maps"
	"slices"
)

// Action is a named command contributed by a service.
type Action struct {
	Name     string
	Command  string
	NotAfter []string
}

// Catalog maps qualified action names to actions.
type Catalog map[string]Action

type actionDoc struct {
	Command  string   `json:"command"`
	NotAfter []string `json:"not_after"`
}

// Lookup returns the action registered under a qualified name.
func (c Catalog) Lookup(name string) (Action, bool) {
	a, ok := c[name]
	return a, ok
}

// Names returns the qualified action names in sorted order.
func (c Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c))
}

// Merge combines catalogs; later entries win on key collision.
func Merge(catalogs ...Catalog) Catalog {
	out := make(Catalog)
	for _, c := range catalogs {
		maps.Copy(out, c)
	}
	return out
}

// BuildCatalog validates an actions document and qualifies its names for service.
// The document must be an object; a service without actions has no document at all.
func BuildCatalog(service string, doc any) (Catalog, error) {
	if err := ValidateActions(service, doc); err != nil {
		return nil, err
	}
	entries := doc.(map[string]any)

	catalog := make(Catalog, len(entries))
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		if err := ValidateLocalName(service, key); err != nil {
			return nil, err
		}
		var entry actionDoc
		if err := decodeInto(service, KindActions, entries[key], &entry); err != nil {
			return nil, err
		}

		name := Qualify(service, key)
		catalog[name] = Action{
			Name:     name,
			Command:  entry.Command,
			NotAfter: qualifyAll(service, entry.NotAfter),
		}
	}
	return catalog, nil
}

func qualifyAll(service string, names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		q := Qualify(service, n)
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}
