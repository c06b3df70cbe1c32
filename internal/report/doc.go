// Package report renders batch run results for humans and tools: plain
// text for the terminal, JSON for integration, and Markdown for sharing.
package report
