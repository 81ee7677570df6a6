package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("records messages in order", func(t *testing.T) {
		p := NewPublisher()
		require.NoError(t, p.Publish(ctx, "a", []byte("one")))
		require.NoError(t, p.Publish(ctx, "b", []byte("two")))

		messages := p.Messages()
		require.Len(t, messages, 2)
		assert.Equal(t, "a", messages[0].Subject)
		assert.Equal(t, []byte("one"), messages[0].Data)
		assert.Equal(t, "b", messages[1].Subject)
	})

	t.Run("copies payloads", func(t *testing.T) {
		p := NewPublisher()
		data := []byte("original")
		require.NoError(t, p.Publish(ctx, "a", data))
		data[0] = 'X'

		assert.Equal(t, []byte("original"), p.Messages()[0].Data)
	})

	t.Run("close is a no-op", func(t *testing.T) {
		p := NewPublisher()
		assert.NoError(t, p.Close())
	})
}
