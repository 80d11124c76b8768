package editfeed

import "net/http"

// ServerOption is a functional option applied to a Server during construction via NewServer.
type ServerOption func(*Server)

// WithCheckOrigin sets the origin check of the websocket upgrade. The default accepts only
// same-host requests.
//
// Parameters:
//   - check: returns true for accepted requests
//
// Returns:
//   - ServerOption: a function that sets the origin check
func WithCheckOrigin(check func(r *http.Request) bool) ServerOption {
	return func(s *Server) {
		s.upgrader.CheckOrigin = check
	}
}
