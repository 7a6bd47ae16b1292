package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/rafaelleal24/inventory/internal/core/port"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_Publish(t *testing.T) {
	writer := &recordingWriter{}
	producer := &Producer{w: writer, topic: "order.created"}

	err := producer.Publish(context.Background(), port.Message{
		Name:   "OrderCreated",
		Entity: "order",
		Key:    "order-1",
		Body:   []byte(`{"event_type":"OrderCreated"}`),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(writer.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "order-1" {
		t.Fatalf("expected key order-1, got %q", msg.Key)
	}
	if string(msg.Value) != `{"event_type":"OrderCreated"}` {
		t.Fatalf("unexpected value %q", msg.Value)
	}
	if len(msg.Headers) != 2 || string(msg.Headers[0].Value) != "OrderCreated" {
		t.Fatalf("unexpected headers %+v", msg.Headers)
	}
}

func TestProducer_PublishError(t *testing.T) {
	producer := &Producer{w: &recordingWriter{err: errors.New("leader not available")}, topic: "order.created"}

	err := producer.Publish(context.Background(), port.Message{Key: "order-1"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestProducer_Close(t *testing.T) {
	writer := &recordingWriter{}
	producer := &Producer{w: writer}

	if err := producer.Close(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !writer.closed {
		t.Fatal("expected writer to be closed")
	}
}
