// Package config provides configuration structures and utilities for
// pagetailor. It defines the run options populated from CLI flags, the
// optional .pagetailor defaults file, and the XDG directory helpers.
package config
