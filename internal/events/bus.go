package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/nerrad567/parkinglot-core/internal/infrastructure/config"
	"github.com/nerrad567/parkinglot-core/internal/infrastructure/logging"
	"github.com/nerrad567/parkinglot-core/internal/parking"
)

// TopicReservations carries every parking.Event.
const TopicReservations = "parking.reservations"

// defaultBufferSize is used when the configured buffer is not positive.
const defaultBufferSize = 100

// ErrStarted is returned by AddSink after Start.
var ErrStarted = errors.New("events: bus already started")

// Sink consumes events. Errors are logged and the event is dropped.
type Sink interface {
	Handle(ctx context.Context, event parking.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event parking.Event) error

// Handle calls f.
func (f SinkFunc) Handle(ctx context.Context, event parking.Event) error {
	return f(ctx, event)
}

type namedSink struct {
	name string
	sink Sink
}

// Bus is an in-process event bus backed by watermill's gochannel.
// It implements parking.Publisher.
type Bus struct {
	pubSub *gochannel.GoChannel
	logger *logging.Logger

	mu      sync.Mutex
	sinks   []namedSink
	started bool
	wg      sync.WaitGroup
}

// NewBus creates a bus. Sinks must be added before Start.
func NewBus(cfg config.EventsConfig, logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.Discard()
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            int64(bufferSize),
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewSlogLogger(logger.Component("watermill").Logger),
	)

	return &Bus{
		pubSub: pubSub,
		logger: logger,
	}
}

// AddSink registers a sink under name.
func (b *Bus) AddSink(name string, sink Sink) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return ErrStarted
	}
	b.sinks = append(b.sinks, namedSink{name: name, sink: sink})
	return nil
}

// Start subscribes every sink and begins delivery. Delivery stops when ctx
// is cancelled or Close is called.
func (b *Bus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return ErrStarted
	}

	for _, s := range b.sinks {
		msgs, err := b.pubSub.Subscribe(ctx, TopicReservations)
		if err != nil {
			return fmt.Errorf("subscribing sink %s: %w", s.name, err)
		}
		b.wg.Add(1)
		go b.consume(ctx, s, msgs)
	}
	b.started = true
	return nil
}

// consume runs one sink until its channel closes.
func (b *Bus) consume(ctx context.Context, s namedSink, msgs <-chan *message.Message) {
	defer b.wg.Done()

	for msg := range msgs {
		var event parking.Event
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			b.logger.Error("undecodable event", "sink", s.name, "message_id", msg.UUID, "error", err)
			msg.Ack()
			continue
		}

		if err := b.handle(ctx, s, event); err != nil {
			b.logger.Warn("event sink failed",
				"sink", s.name,
				"event", event.Type,
				"slot_number", event.SlotNumber,
				"error", err,
			)
		}
		msg.Ack()
	}
}

// handle calls the sink, converting a panic into an error.
func (b *Bus) handle(ctx context.Context, s namedSink, event parking.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return s.sink.Handle(ctx, event)
}

// Publish implements parking.Publisher. Failures are logged, never returned.
func (b *Bus) Publish(_ context.Context, event parking.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("encoding event", "event", event.Type, "error", err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_type", event.Type)

	if err := b.pubSub.Publish(TopicReservations, msg); err != nil {
		b.logger.Warn("publishing event", "event", event.Type, "error", err)
	}
}

// Close stops delivery and waits for sinks to finish the event in hand.
func (b *Bus) Close() error {
	err := b.pubSub.Close()
	b.wg.Wait()
	return err
}
