package descriptor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var (
	ErrDecode          = errors.New("descriptor: decode failed")
	ErrMissingTable    = errors.New("descriptor: missing [[react]] table")
	ErrUnsupportedKind = errors.New("descriptor: unsupported kind")
)

const (
	KindActions = "actions"
	KindReact   = "react"
)

// Extensions lists descriptor file extensions in lookup order.
var Extensions = []string{".json", ".yaml", ".yml", ".toml"}

// Loader reads service descriptors from <Root>/<name>-<version>/<kind>.<ext>.
type Loader struct {
	Root string
}

// ServiceDir returns the directory holding one service version's descriptors.
func (l Loader) ServiceDir(name, version string) string {
	dir := name
	if strings.TrimSpace(version) != "" {
		dir = name + "-" + version
	}
	return filepath.Join(l.Root, dir)
}

// Find returns the first existing descriptor file for kind, or "" when the service declares none.
func (l Loader) Find(name, version, kind string) (string, error) {
	if kind != KindActions && kind != KindReact {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	dir := l.ServiceDir(name, version)
	for _, ext := range Extensions {
		path := filepath.Join(dir, kind+ext)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("descriptor: stat %s: %w", path, err)
		}
	}
	return "", nil
}

// Load returns the descriptor for kind in the JSON value model.
// found is false when the service declares no descriptor of that kind. A file
// that exists but decodes to nothing (empty, null) is returned with found set,
// so callers can reject it rather than treat it as absent.
func (l Loader) Load(ctx context.Context, name, version, kind string) (doc any, found bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	path, err := l.Find(name, version, kind)
	if err != nil {
		return nil, false, err
	}
	if path == "" {
		log.Debug().Str("service", name).Str("version", version).Str("kind", kind).Msg("descriptor.Loader.Load missing")
		return nil, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, true, fmt.Errorf("descriptor: read %s: %w", path, err)
	}
	doc, err = Decode(filepath.Ext(path), kind, data)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug().Str("service", name).Str("path", path).Msg("descriptor.Loader.Load")
	return doc, true, nil
}

// Decode parses data by extension and normalises it to the JSON value model
// (map[string]any, []any, float64, string, bool, nil). Blank data decodes to nil.
func Decode(ext, kind string, data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var raw any
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: json: %w", ErrDecode, err)
		}
		return raw, nil
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: yaml: %w", ErrDecode, err)
		}
	case ".toml":
		table := map[string]any{}
		if _, err := toml.Decode(string(data), &table); err != nil {
			return nil, fmt.Errorf("%w: toml: %w", ErrDecode, err)
		}
		raw = table
		if kind == KindReact {
			// TOML has no top-level arrays; react entries live under [[react]].
			entries, ok := table[KindReact]
			if !ok {
				return nil, fmt.Errorf("%w: %w (keys: %s)", ErrDecode, ErrMissingTable, strings.Join(slices.Sorted(maps.Keys(table)), ", "))
			}
			raw = entries
		}
	default:
		return nil, fmt.Errorf("%w: unknown extension %q", ErrDecode, ext)
	}
	return normalize(raw)
}

func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: normalize: %w", ErrDecode, err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: normalize: %w", ErrDecode, err)
	}
	return out, nil
}
