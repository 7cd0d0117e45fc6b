package kafka

import (
	"context"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, ParseBrokers(""))
}

func TestNoBrokers(t *testing.T) {
	require.Error(t, WaitForBroker(context.Background(), nil))
	require.Error(t, EnsureTopic(context.Background(), nil, DefaultUsersTopic))
}

func TestNewWriter(t *testing.T) {
	w := NewWriter([]string{"localhost:9092"}, DefaultUsersTopic)
	defer w.Close()
	assert.Equal(t, DefaultUsersTopic, w.Topic)
	assert.IsType(t, &kafkago.Hash{}, w.Balancer)
	assert.Equal(t, kafkago.RequireOne, w.RequiredAcks)
}
