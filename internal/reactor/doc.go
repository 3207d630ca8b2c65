// Package reactor turns service action and react descriptors into a single
// ordered reaction pass.
//
// Ownership boundary:
// - action naming (service-qualified names)
//
// - descriptor schema validation and typed catalog / reaction construction
//
// - trigger evaluation (unconditional, command probe, changed-file glob)
//
// - pass execution: at-most-once actions, not_after exclusion, fail-fast errors
//
// A pass owns its executed set; catalogs and reactions are read-only inputs.
package reactor
