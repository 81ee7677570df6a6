// Package memory provides an in-process Publisher used by tests and
// topologies without an event broker.
package memory

import (
	"context"
	"sync"

	"blobmux/internal/core/pubsub"
)

// Message is one published message.
type Message struct {
	Subject string
	Data    []byte
}

// Publisher records published messages in memory.
type Publisher struct {
	mu       sync.Mutex
	messages []Message
}

// NewPublisher creates an empty in-memory publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

var _ pubsub.Publisher = (*Publisher)(nil)

func (p *Publisher) Publish(ctx context.Context, subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	p.messages = append(p.messages, Message{Subject: subject, Data: cp})
	return nil
}

func (p *Publisher) Close() error {
	return nil
}

// Messages returns a snapshot of everything published so far.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}
