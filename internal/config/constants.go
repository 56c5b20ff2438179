package config

import "time"

// Timeouts used across cmd and server.
const (
	RPCSelectTimeout      = 10 * time.Second // probing candidate RPC endpoints
	MetadataTimeout       = 15 * time.Second // token metadata for previews
	ServerReadTimeout     = 10 * time.Second
	ServerShutdownTimeout = 5 * time.Second
)
