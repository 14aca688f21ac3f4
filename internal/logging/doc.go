// Package logging provides slog setup over a size-rotating log file.
//
// The server logs JSON lines to ~/.pea/logs/server.log and, unless running
// as an MCP stdio server, mirrors them to stderr. The Viewer reads those
// files back for `pea logs`.
package logging
