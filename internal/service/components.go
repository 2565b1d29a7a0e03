package service

import (
	"time"
)

// shutdownTimeout bounds how long Close waits for the browser to exit.
const shutdownTimeout = 10 * time.Second

// Close releases the browser, if one was started. Further live captures fail with ErrClosed;
// offline snapshots keep working.
func (s *Service) Close() {
	s.mu.Lock()
	c := s.capturer
	s.capturer = nil
	s.closed = true
	s.mu.Unlock()

	if c == nil {
		s.logger.Debug("Service closed.")
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Close()
	}()
	if !timedWait(done, shutdownTimeout) {
		s.logger.Warn("Timed out waiting for the browser to close.")
		return
	}
	s.logger.Debug("Browser released.")
}

// timedWait reports whether done closed before the timeout.
func timedWait(done <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
