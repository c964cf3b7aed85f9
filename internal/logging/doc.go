// Package logging provides structured logging for docsmcp.
//
// Commands log warnings to stderr by default. With --debug, JSON logs are
// also written to <data dir>/logs/docsmcp.log through a size-rotating
// writer. The serve command logs to the file only: stdout carries the MCP
// protocol and must never see a log line.
package logging
