// Package logging configures structured slog logging for fpsearch.
//
// By default records go to stderr as JSON at the configured level. With
// --debug they are also written to ~/.fpsearch/logs/fpsearch.log, rotated by
// size, where `fpsearch logs` can read them back.
package logging
