// Package descriptor retrieves per-service action and react documents from disk.
//
// Documents may be JSON, YAML or TOML and are always returned in the JSON
// value model so schema validation sees one shape regardless of format.
package descriptor
