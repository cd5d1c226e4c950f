// Package log provides slog helpers that keep secrets out of log output.
//
// The catalog session lives on clearance cookies and the renderer may be given
// an API key. Both travel through the same code paths that log URLs and
// headers, so every logger built here redacts them before they reach a handler.
package log
