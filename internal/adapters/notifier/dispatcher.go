package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rafaelleal24/inventory/internal/adapters/config"
	"github.com/rafaelleal24/inventory/internal/core/domain"
	"github.com/rafaelleal24/inventory/internal/core/logger"
	"github.com/rafaelleal24/inventory/internal/core/port"
)

var tracer = otel.Tracer("github.com/rafaelleal24/inventory/internal/adapters/notifier")

// Sink is a named transport the dispatcher fans events out to.
type Sink struct {
	Name   string
	Broker port.BrokerPort
}

type queued struct {
	ctx context.Context
	msg port.Message
}

// Dispatcher is the post-commit notifier. Notify encodes the event once and
// queues it; a single goroutine started by Start hands it to every sink.
// Delivery is at most once: a full queue drops the event.
type Dispatcher struct {
	sinks    []Sink
	queue    chan queued
	timeout  time.Duration
	producer string
	dropped  atomic.Int64
}

var _ port.NotifierPort = (*Dispatcher)(nil)

func NewDispatcher(cfg config.NotifierConfig, sinks ...Sink) *Dispatcher {
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		sinks:    sinks,
		queue:    make(chan queued, size),
		timeout:  cfg.PublishTimeout,
		producer: cfg.Producer,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, event domain.Event) {
	attrs := map[string]any{
		"event_name": event.GetName(),
		"entity_id":  event.GetEntityID(),
	}

	envelope, err := domain.NewEnvelope(event, d.producer)
	if err != nil {
		logger.Error(ctx, "notifier: failed to build envelope", err, attrs)
		return
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		logger.Error(ctx, "notifier: failed to encode envelope", err, attrs)
		return
	}

	item := queued{
		ctx: context.WithoutCancel(ctx),
		msg: port.Message{
			Name:   event.GetName(),
			Entity: event.GetEntityName(),
			Key:    string(event.GetEntityID()),
			Body:   body,
		},
	}

	select {
	case d.queue <- item:
	default:
		d.dropped.Add(1)
		attrs["event_id"] = envelope.EventID
		logger.Warn(ctx, "notifier: queue full, event dropped", attrs)
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Start delivers queued events until ctx is done, then flushes what is
// already queued and returns.
func (d *Dispatcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case item := <-d.queue:
			d.dispatch(item)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case item := <-d.queue:
			d.dispatch(item)
		default:
			return
		}
	}
}

func (d *Dispatcher) dispatch(item queued) {
	ctx, span := tracer.Start(item.ctx, "notifier.dispatch", trace.WithAttributes(
		attribute.String("event.name", item.msg.Name),
		attribute.String("entity.id", item.msg.Key),
		attribute.Int("sinks", len(d.sinks)),
	))
	defer span.End()

	var failed int
	for _, sink := range d.sinks {
		if err := d.publish(ctx, sink, item.msg); err != nil {
			failed++
			span.RecordError(err, trace.WithAttributes(attribute.String("sink", sink.Name)))
			logger.Error(ctx, "notifier: sink publish failed", err, map[string]any{
				"sink":       sink.Name,
				"event_name": item.msg.Name,
				"entity_id":  item.msg.Key,
			})
			continue
		}
		logger.Debug(ctx, "notifier: event published", map[string]any{
			"sink":       sink.Name,
			"event_name": item.msg.Name,
			"entity_id":  item.msg.Key,
		})
	}

	if failed > 0 {
		span.SetStatus(codes.Error, "one or more sinks failed")
	}
}

func (d *Dispatcher) publish(ctx context.Context, sink Sink, msg port.Message) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return sink.Broker.Publish(ctx, msg)
}

// Close releases every sink.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, sink := range d.sinks {
		if err := sink.Broker.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
