package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*config)

type config struct {
	capacity int
}

// WithCapacity sets the maximum number of queued jobs.
func WithCapacity(capacity int) Option {
	return func(c *config) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}
