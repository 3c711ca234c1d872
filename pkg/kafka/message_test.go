package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBuilder_Build(t *testing.T) {
	msg, err := NewMessage().
		WithKey("lobby:hotel:1").
		WithValue(map[string]string{"text": "hi"}).
		WithEventType("message.inserted").
		WithSource("lobby").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "lobby:hotel:1", msg.Key)
	assert.JSONEq(t, `{"text":"hi"}`, string(msg.Value))
	assert.NotEmpty(t, msg.GetEventID())
	assert.Equal(t, "message.inserted", msg.GetEventType())
	assert.Equal(t, "1", msg.Headers[HeaderSchemaVersion])
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])
}

func TestMessageBuilder_EncodeError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.Error(t, err)
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{Headers: map[string]string{}}
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.GetRetryCount())
}

func TestMessage_DecodeValueIsPermanent(t *testing.T) {
	msg := Message{Value: []byte("{not json")}
	var v map[string]any

	err := msg.DecodeValue(&v)
	assert.Equal(t, ErrorTypePermanent, ClassifyError(err))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeUnknown},
		{"typed transient", NewTransientError("db down", nil), ErrorTypeTransient},
		{"wrapped permanent", fmt.Errorf("handler: %w", NewPermanentError("bad", nil)), ErrorTypePermanent},
		{"deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), ErrorTypeTransient},
		{"network text", errors.New("dial tcp: Connection Refused"), ErrorTypeTransient},
		{"unknown", errors.New("something odd"), ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestShouldRetry(t *testing.T) {
	transient := NewTransientError("timeout", nil)

	assert.True(t, ShouldRetry(transient, 0, 3))
	assert.False(t, ShouldRetry(transient, 3, 3))
	assert.False(t, ShouldRetry(errors.New("bad payload"), 0, 3))
	assert.False(t, ShouldRetry(nil, 0, 3))
}

func TestChain_Order(t *testing.T) {
	var calls []string
	mw := func(name string) ProducerMiddleware {
		return func(ctx context.Context, msg Message, next MessageHandler) error {
			calls = append(calls, name)
			return next(ctx, msg)
		}
	}

	h := chain([]ProducerMiddleware{mw("outer"), mw("inner")}, func(context.Context, Message) error {
		calls = append(calls, "final")
		return nil
	})
	require.NoError(t, h(context.Background(), Message{}))

	assert.Equal(t, []string{"outer", "inner", "final"}, calls)
}
