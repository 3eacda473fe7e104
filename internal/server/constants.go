// Package server provides the HTTP and WebSocket surface of the template
// matching service.
package server

import "time"

// Server configuration constants
const (
	// Per-client WebSocket write deadline during broadcasts
	wsWriteTimeout = 5 * time.Second

	// Multipart form memory limit before spooling to disk
	multipartMemoryLimit = 8 << 20 // 8 MiB
)
