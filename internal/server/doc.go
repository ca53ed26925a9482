// Package server exposes the workflow engine over HTTP and streams run events
// to WebSocket clients
package server
