package srv

import "context"

// cleanup wraps a teardown function as a Service so resource closers ride
// the same shutdown path as real servers.
type cleanup struct {
	fn func() error
}

// Start does nothing; the resource is already running when registered.
func (c *cleanup) Start(ctx context.Context) error {
	return nil
}

func (c *cleanup) Shutdown(ctx context.Context) error {
	if c.fn == nil {
		return nil
	}
	return c.fn()
}

func NewCleanup(fn func() error) Service {
	return &cleanup{fn: fn}
}
