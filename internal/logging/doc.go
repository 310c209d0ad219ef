// Package logging provides structured slog logging with file rotation for
// docsearch. With --debug, logs are written to ~/.docsearch/logs/ as JSON.
//
// When serving over stdio the log stream never touches stdout or stderr,
// since stdout carries the MCP protocol.
package logging
