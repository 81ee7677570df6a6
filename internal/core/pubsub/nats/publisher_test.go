package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobmux/internal/core/pubsub"
)

type fakeJetStream struct {
	published  []string
	publishErr error
	streamCfg  *jetstream.StreamConfig
	streamErr  error
}

func (f *fakeJetStream) Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	f.published = append(f.published, subject)
	return &jetstream.PubAck{}, nil
}

func (f *fakeJetStream) CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.streamCfg = &cfg
	return nil, f.streamErr
}

func TestNewPublisher(t *testing.T) {
	t.Run("requires a jetstream context", func(t *testing.T) {
		_, err := NewPublisher(nil, pubsub.PublisherOptions{})
		assert.Error(t, err)
	})

	t.Run("ensures the stream", func(t *testing.T) {
		js := &fakeJetStream{}
		_, err := NewPublisher(js, pubsub.PublisherOptions{
			StreamName: "BLOBMUX",
			Storage:    pubsub.FileStorage,
		})
		require.NoError(t, err)
		require.NotNil(t, js.streamCfg)
		assert.Equal(t, "BLOBMUX", js.streamCfg.Name)
		assert.Equal(t, []string{"BLOBMUX.>"}, js.streamCfg.Subjects)
		assert.Equal(t, jetstream.FileStorage, js.streamCfg.Storage)
	})

	t.Run("subject prefix narrows the stream subjects", func(t *testing.T) {
		js := &fakeJetStream{}
		_, err := NewPublisher(js, pubsub.PublisherOptions{
			StreamName:    "BLOBMUX",
			SubjectPrefix: "blobmux",
			Storage:       pubsub.MemoryStorage,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"blobmux.>"}, js.streamCfg.Subjects)
		assert.Equal(t, jetstream.MemoryStorage, js.streamCfg.Storage)
	})

	t.Run("stream ensure failure surfaces", func(t *testing.T) {
		js := &fakeJetStream{streamErr: errors.New("no permission")}
		_, err := NewPublisher(js, pubsub.PublisherOptions{StreamName: "BLOBMUX"})
		assert.Error(t, err)
	})

	t.Run("no stream name skips the ensure", func(t *testing.T) {
		js := &fakeJetStream{}
		_, err := NewPublisher(js, pubsub.PublisherOptions{})
		require.NoError(t, err)
		assert.Nil(t, js.streamCfg)
	})
}

func TestPublisherPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("prefixes subjects", func(t *testing.T) {
		js := &fakeJetStream{}
		p, err := NewPublisher(js, pubsub.PublisherOptions{SubjectPrefix: "blobmux"})
		require.NoError(t, err)

		require.NoError(t, p.Publish(ctx, "repair", []byte("{}")))
		require.Len(t, js.published, 1)
		assert.Equal(t, "blobmux.repair", js.published[0])
	})

	t.Run("publish errors surface", func(t *testing.T) {
		js := &fakeJetStream{publishErr: errors.New("timeout")}
		p, err := NewPublisher(js, pubsub.PublisherOptions{})
		require.NoError(t, err)

		assert.Error(t, p.Publish(ctx, "repair", []byte("{}")))
	})

	t.Run("close is a no-op", func(t *testing.T) {
		p, err := NewPublisher(&fakeJetStream{}, pubsub.PublisherOptions{})
		require.NoError(t, err)
		assert.NoError(t, p.Close())
	})
}
