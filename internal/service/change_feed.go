package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/syncmind/syncmind-api/internal/dto"
	"github.com/syncmind/syncmind-api/internal/observability"
)

const (
	changeBufferSize = 16
	seenEventsSize   = 512
)

// ChangeHook reacts to every change event, local or relayed.
type ChangeHook func(ctx context.Context, event dto.ChangeEvent)

// ChangeFeed fans change events out to connected clients of this node and
// relays them to the other API nodes through Redis pub/sub and NATS.
type ChangeFeed interface {
	Publish(ctx context.Context, event dto.ChangeEvent)
	Subscribe(userID uint) (<-chan dto.ChangeEvent, func())
	OnChange(hook ChangeHook)
	Start(ctx context.Context)
}

type changeFeed struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	tracer       trace.Tracer
	broker       *changeBroker
	nodeID       string
	now          func() time.Time

	hooksMu sync.RWMutex
	hooks   []ChangeHook

	seen *seenSet
}

type changeEnvelope struct {
	ID     string          `json:"id"`
	Source string          `json:"source"`
	Event  dto.ChangeEvent `json:"event"`
}

type changeBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.ChangeEvent]struct{}
}

// NewChangeFeed constructs a change feed. Redis and NATS are optional.
func NewChangeFeed(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) ChangeFeed {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":changes"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".changes"
	}

	return &changeFeed{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "change_feed").Logger(),
		tracer:       otel.Tracer("github.com/syncmind/syncmind-api/internal/service/change_feed"),
		broker:       &changeBroker{subscribers: make(map[uint]map[chan dto.ChangeEvent]struct{})},
		nodeID:       uuid.NewString(),
		now:          time.Now,
		seen:         newSeenSet(seenEventsSize),
	}
}

func (f *changeFeed) Start(ctx context.Context) {
	if f.redis != nil && f.redisChannel != "" {
		go f.consumeRedis(ctx)
	}
	if f.nats != nil && f.natsSubject != "" {
		f.consumeNATS(ctx)
	}
}

func (f *changeFeed) OnChange(hook ChangeHook) {
	f.hooksMu.Lock()
	defer f.hooksMu.Unlock()
	f.hooks = append(f.hooks, hook)
}

func (f *changeFeed) Publish(ctx context.Context, event dto.ChangeEvent) {
	if event.At.IsZero() {
		event.At = f.now().UTC()
	}

	spanCtx, span := f.tracer.Start(ctx, "changes.publish", trace.WithAttributes(
		attribute.String("change.table", event.Table),
		attribute.String("change.action", event.Action),
	))
	defer span.End()

	f.deliver(spanCtx, event)
	observability.ChangeEvents().WithLabelValues(event.Table, "local").Inc()

	envelope := changeEnvelope{ID: uuid.NewString(), Source: f.nodeID, Event: event}
	if err := f.relay(spanCtx, envelope); err != nil {
		span.RecordError(err)
		f.logger.Warn().Err(err).Str("table", event.Table).Msg("failed to relay change event")
	}
}

func (f *changeFeed) Subscribe(userID uint) (<-chan dto.ChangeEvent, func()) {
	channel := make(chan dto.ChangeEvent, changeBufferSize)

	f.broker.subscribe(userID, channel)
	observability.StreamClients().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			f.broker.unsubscribe(userID, channel)
			observability.StreamClients().Dec()
		})
	}

	return channel, cleanup
}

func (f *changeFeed) deliver(ctx context.Context, event dto.ChangeEvent) {
	for _, userID := range event.Recipients() {
		f.broker.broadcast(userID, event)
	}

	f.hooksMu.RLock()
	hooks := append([]ChangeHook(nil), f.hooks...)
	f.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, event)
	}
}

func (f *changeFeed) relay(ctx context.Context, envelope changeEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	var errs []error
	if f.redis != nil && f.redisChannel != "" {
		if err := f.redis.Publish(ctx, f.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if f.nats != nil && f.natsSubject != "" {
		if err := f.nats.Publish(f.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (f *changeFeed) consumeRedis(ctx context.Context) {
	pubsub := f.redis.Subscribe(ctx, f.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			f.logger.Error().Err(err).Msg("change feed redis subscription closed")
			return
		}
		f.handleEnvelope(ctx, []byte(msg.Payload))
	}
}

func (f *changeFeed) consumeNATS(ctx context.Context) {
	// Plain subscription: every node must see every event.
	sub, err := f.nats.Subscribe(f.natsSubject, func(msg *nats.Msg) {
		f.handleEnvelope(ctx, msg.Data)
	})
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to subscribe to nats change subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			f.logger.Warn().Err(err).Msg("failed to drain change feed nats subscription")
		}
	}()
}

func (f *changeFeed) handleEnvelope(ctx context.Context, payload []byte) {
	var envelope changeEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		f.logger.Warn().Err(err).Msg("invalid change event payload")
		return
	}

	if envelope.Source == f.nodeID {
		return
	}
	// Events arrive twice when both Redis and NATS are configured.
	if !f.seen.add(envelope.ID) {
		return
	}

	observability.ChangeEvents().WithLabelValues(envelope.Event.Table, "relay").Inc()
	f.deliver(ctx, envelope.Event)
}

func (b *changeBroker) subscribe(userID uint, ch chan dto.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan dto.ChangeEvent]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *changeBroker) unsubscribe(userID uint, ch chan dto.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

func (b *changeBroker) broadcast(userID uint, event dto.ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[userID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// seenSet remembers the most recent event ids in insertion order.
type seenSet struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	order []string
	next  int
}

func newSeenSet(size int) *seenSet {
	return &seenSet{ids: make(map[string]struct{}, size), order: make([]string, size)}
}

// add reports whether id was new.
func (s *seenSet) add(id string) bool {
	if id == "" {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return false
	}
	if old := s.order[s.next]; old != "" {
		delete(s.ids, old)
	}
	s.order[s.next] = id
	s.next = (s.next + 1) % len(s.order)
	s.ids[id] = struct{}{}
	return true
}
