// Package harness executes conformance scenarios against the task
// engine. A scenario seeds a workspace from an inline fixture, drives a
// flow of mutations, and then asserts on the resulting activity feed and
// final entity state. Scenarios live in YAML files under
// testdata/scenarios; their activity traces are additionally pinned by
// golden files under testdata/golden.
package harness
