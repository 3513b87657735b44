// Package gateway bridges the event channel onto gRPC. A presentation layer
// running out of process subscribes to every published topic and sends the
// inbound topics back into the session.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/gtil/internal/game/event"
	"github.com/cory-johannsen/gtil/internal/observability"
)

// DefaultBuffer is the per-subscriber queue length used when none is given.
const DefaultBuffer = 256

// Inbox accepts inbound messages for the simulation goroutine.
type Inbox interface {
	Deliver(topic event.Topic, payload any) bool
}

// Deps are the collaborators of a Bridge.
type Deps struct {
	Channel *event.Channel
	Inbox   Inbox
	// Metrics may be nil.
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// Bridge implements EventBridgeServer.
//
// Invariant: a slow subscriber never blocks Publish; messages that do not
// fit its queue are dropped for that subscriber only.
type Bridge struct {
	UnimplementedEventBridgeServer

	deps   Deps
	buffer int

	mu      sync.Mutex
	subs    map[uint64]*subscriber
	nextID  uint64
	closed  bool
	done    chan struct{}
	untap   func()
	dropped uint64
}

type subscriber struct {
	out chan *structpb.Struct
}

// New taps deps.Channel and returns a bridge serving it.
//
// Precondition: deps.Channel, deps.Inbox and deps.Logger must not be nil.
// Postcondition: A buffer below one is replaced by DefaultBuffer.
func New(buffer int, deps Deps) *Bridge {
	if deps.Channel == nil || deps.Inbox == nil || deps.Logger == nil {
		panic("gateway.New: missing dependency")
	}
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	b := &Bridge{
		deps:   deps,
		buffer: buffer,
		subs:   make(map[uint64]*subscriber),
		done:   make(chan struct{}),
	}
	b.untap = deps.Channel.Tap(b.forward)
	return b
}

// Register installs the bridge on s.
func (b *Bridge) Register(s grpc.ServiceRegistrar) {
	RegisterEventBridgeServer(s, b)
}

// Send decodes one inbound message and queues it for the session.
func (b *Bridge) Send(_ context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	fields := req.GetFields()
	topic := event.Topic(fields["topic"].GetStringValue())
	if !topic.Inbound() {
		return nil, status.Errorf(codes.InvalidArgument, "topic %q is not accepted inbound", topic)
	}
	payload, err := DecodePayload(topic, fields["payload"])
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decoding %s payload: %v", topic, err)
	}
	if !b.deps.Inbox.Deliver(topic, payload) {
		return nil, status.Error(codes.ResourceExhausted, "session inbox full")
	}
	return &emptypb.Empty{}, nil
}

// Subscribe streams every message published after the call until the client
// cancels or the bridge closes.
func (b *Bridge) Subscribe(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	id, sub, ok := b.add()
	if !ok {
		return status.Error(codes.Unavailable, "gateway closed")
	}
	defer b.remove(id)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.done:
			return status.Error(codes.Unavailable, "gateway closed")
		case msg := <-sub.out:
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (b *Bridge) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns how many messages were discarded for full subscriber queues.
func (b *Bridge) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close removes the tap and ends every open subscription. Safe to call more
// than once.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.untap()
	close(b.done)
}

func (b *Bridge) add() (uint64, *subscriber, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, nil, false
	}
	b.nextID++
	sub := &subscriber{out: make(chan *structpb.Struct, b.buffer)}
	b.subs[b.nextID] = sub
	b.deps.Metrics.SetSubscribers(len(b.subs))
	b.deps.Logger.Info("gateway subscriber joined", zap.Uint64("id", b.nextID), zap.Int("subscribers", len(b.subs)))
	return b.nextID, sub, true
}

func (b *Bridge) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
	b.deps.Metrics.SetSubscribers(len(b.subs))
	b.deps.Logger.Info("gateway subscriber left", zap.Uint64("id", id), zap.Int("subscribers", len(b.subs)))
}

// forward runs on the publishing goroutine.
func (b *Bridge) forward(m event.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.subs) == 0 {
		return
	}
	msg, err := EncodeMessage(m)
	if err != nil {
		b.deps.Logger.Warn("gateway cannot encode message", zap.String("topic", string(m.Topic)), zap.Error(err))
		return
	}
	for id, sub := range b.subs {
		select {
		case sub.out <- msg:
		default:
			b.dropped++
			b.deps.Logger.Warn("gateway subscriber queue full",
				zap.Uint64("id", id),
				zap.String("topic", string(m.Topic)),
			)
		}
	}
}

// EncodeMessage converts a published message into its wire form. Payloads
// take their JSON shape.
func EncodeMessage(m event.Message) (*structpb.Struct, error) {
	payload := structpb.NewNullValue()
	if m.Payload != nil {
		raw, err := json.Marshal(m.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshalling payload: %w", err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil, fmt.Errorf("unmarshalling payload: %w", err)
		}
		if payload, err = structpb.NewValue(generic); err != nil {
			return nil, fmt.Errorf("converting payload: %w", err)
		}
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"topic":   structpb.NewStringValue(string(m.Topic)),
		"payload": payload,
	}}, nil
}

// DecodePayload converts an inbound wire payload into the Go type the
// session subscribes with.
func DecodePayload(topic event.Topic, v *structpb.Value) (any, error) {
	switch topic {
	case event.TopicLaunchGame:
		switch k := v.GetKind().(type) {
		case nil, *structpb.Value_NullValue:
			return event.LaunchGame{}, nil
		case *structpb.Value_StructValue:
			raw, err := k.StructValue.MarshalJSON()
			if err != nil {
				return nil, err
			}
			var req event.LaunchGame
			if err := json.Unmarshal(raw, &req); err != nil {
				return nil, err
			}
			return req, nil
		}
		return nil, errors.New("expected an object")
	case event.TopicSetVolume:
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, errors.New("expected a number")
		}
		return n.NumberValue, nil
	case event.TopicRestartGame:
		return nil, nil
	}
	return nil, fmt.Errorf("no decoder for topic %q", topic)
}
