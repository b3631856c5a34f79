// Package logging provides file-based structured logging with rotation.
// In MCP serve mode logs go to file only, because stdout carries the
// JSON-RPC stream and stderr may be attached to the client's console.
package logging
