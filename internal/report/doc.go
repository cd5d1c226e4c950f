// Package report writes run results for people and tools.
//
// Three formats are supported: a terminal text layout, JSON for scripting
// and Markdown for sharing. Every Writer handles both a single run and a
// list of runs from the history database.
package report
