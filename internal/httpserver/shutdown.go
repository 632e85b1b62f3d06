package httpserver

import (
	"context"
	"time"
)

// DefaultShutdownTimeout controls how long to wait for graceful shutdowns.
const DefaultShutdownTimeout = 10 * time.Second

// ShutdownWithin drains in-flight requests for at most timeout, then closes
// remaining connections. A non-positive timeout selects DefaultShutdownTimeout.
func (s *Server) ShutdownWithin(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		_ = s.inner.Close()
		return err
	}
	return nil
}
