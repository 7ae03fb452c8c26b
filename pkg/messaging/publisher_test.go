package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPublisher(t *testing.T) {
	t.Run("empty driver is a no-op publisher", func(t *testing.T) {
		p, err := NewPublisher(Config{})
		assert.NoError(t, err)
		assert.IsType(t, NopPublisher{}, p)
		assert.NoError(t, p.Publish(context.Background(), "transfer.completed", map[string]string{"id": "1"}))
		assert.NoError(t, p.Close())
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := NewPublisher(Config{Driver: "nats"})
		assert.Error(t, err)
	})

	t.Run("kafka requires brokers", func(t *testing.T) {
		_, err := NewPublisher(Config{Driver: "kafka", KafkaTopic: "registrations"})
		assert.Error(t, err)
	})

	t.Run("kafka writer is created lazily", func(t *testing.T) {
		p, err := NewPublisher(Config{Driver: "kafka", KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "registrations"})
		assert.NoError(t, err)
		assert.NotNil(t, p)
		assert.NoError(t, p.Close())
	})
}
