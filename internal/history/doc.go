// Package history stores the outcome of past batch runs in a local SQLite
// database so earlier results stay inspectable after the process exits.
package history
