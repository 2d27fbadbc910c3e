// Package replay provides an HTTP server that lists recorded sessions and
// replays them as text/event-stream responses.
package replay

// Config is the replay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8082")
	ListenAddr string
}
