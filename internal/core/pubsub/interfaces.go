// Package pubsub provides a generic publish abstraction for feeding
// operational events to external tooling.
package pubsub

import "context"

// Publisher publishes messages to a stream.
type Publisher interface {
	// Publish sends a message to the specified subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Close releases resources.
	Close() error
}

// StorageType selects the stream's persistence mode.
type StorageType int

const (
	// MemoryStorage keeps stream data in memory.
	MemoryStorage StorageType = iota

	// FileStorage persists stream data to disk.
	FileStorage
)

// PublisherOptions configures a Publisher.
type PublisherOptions struct {
	// StreamName is the stream to ensure and publish into.
	StreamName string

	// SubjectPrefix is prepended to every published subject.
	SubjectPrefix string

	// Storage selects the stream persistence mode.
	Storage StorageType

	// RetryAttempts is the number of publish retries, 0 for none.
	RetryAttempts int
}
