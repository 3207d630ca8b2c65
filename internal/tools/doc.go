// Package tools provides process execution shared by the reaction engine.
//
// Ownership boundary:
// - command tokenising
//
// - local (os/exec) and remote (ssh) command runners
//
// - launch failure vs exit status classification
package tools
