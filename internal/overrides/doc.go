// Package overrides translates a flat set of optional options, parsed from
// CLI flags or a defaults file, into per-page settings across every stage.
//
// The Set is a snapshot: each field is either nil (keep whatever the stage
// already has) or set (overwrite the setting for every page). The Engine
// applies a Set exactly once, before any task is built, so the stages never
// see settings change mid-run.
package overrides
