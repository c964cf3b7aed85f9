// Package integration holds end-to-end tests that run the indexing,
// query, MCP and watch components together against real files.
package integration
