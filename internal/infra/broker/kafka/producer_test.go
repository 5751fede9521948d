package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSendsKeyValueAndHeaders(t *testing.T) {
	sync := mocks.NewSyncProducer(t, NewConfig("test"))
	sync.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "booking.events.v1" {
			return errors.Newf("unexpected topic %s", msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "bk-1" {
			return errors.Newf("unexpected key %s", key)
		}
		if len(msg.Headers) != 2 || string(msg.Headers[0].Key) != "content-type" {
			return errors.New("headers must be sorted and complete")
		}
		return nil
	})
	p := NewProducerFrom(sync)

	err := p.Publish(context.Background(), "booking.events.v1", "bk-1", []byte(`{}`), map[string]string{
		"traceparent":  "00-1",
		"content-type": "application/cloudevents+json",
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestPublishWrapsBrokerErrors(t *testing.T) {
	sync := mocks.NewSyncProducer(t, NewConfig("test"))
	sync.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	p := NewProducerFrom(sync)

	err := p.Publish(context.Background(), "car.events.v1", "c-1", []byte(`{}`), nil)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestPublishHonorsCancelledContext(t *testing.T) {
	sync := mocks.NewSyncProducer(t, NewConfig("test"))
	p := NewProducerFrom(sync)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, "t", "k", nil, nil), context.Canceled)
	require.NoError(t, p.Close())
}
