package config

import "time"

// PipelineConfig configures the signal queue and consumer.
type PipelineConfig struct {
	// QueueSize is the bounded FIFO capacity.
	QueueSize int `yaml:"queue_size"`

	// EnqueueTimeout is how long a producer waits on a full queue
	// before the signal is dropped.
	EnqueueTimeout string `yaml:"enqueue_timeout"`
}

// EnqueueWait returns the producer-side wait, defaulting to 1s.
func (c PipelineConfig) EnqueueWait() time.Duration {
	return parseDuration(c.EnqueueTimeout, time.Second)
}
