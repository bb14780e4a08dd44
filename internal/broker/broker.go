// Package broker coordinates realtime rehearsal sessions. It tracks which
// connection is joined to which session group and fans session events out
// to the members of a group.
//
// All registry state is owned by a single dispatch goroutine (Run). Every
// operation is queued and executed in arrival order, so operations on a
// group never interleave: a join queued before an end-session is part of
// its fan-out, and one queued after it is not.
package broker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

// DeliveryPolicy names the guarantee fan-out gives each member. Sends to a
// member's outbound buffer never block; when the buffer is full the message
// is dropped for that member only. There is no acknowledgement and no replay.
const DeliveryPolicy = "at-most-once, best-effort"

// Event names on the realtime channel.
const (
	EventJoinSession = "join-session"
	EventEndSession  = "end-session"
	EventSongUpdated = "song-updated"
	EventForceLogout = "force-logout"
)

const (
	DefaultSendBuffer = 256
	defaultQueueSize  = 1024

	defaultRelayRetry = 500 * time.Millisecond
	maxRelayRetry     = 30 * time.Second
)

// Client is one realtime connection as seen by the registry.
type Client struct {
	ID   string
	send chan Message

	// group is the session the client belongs to ("" when none).
	// Only the dispatch goroutine reads or writes it.
	group string
}

// NewClient creates a client with an outbound buffer of the given size.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Client{ID: id, send: make(chan Message, buffer)}
}

// Messages returns the outbound buffer. It is closed once the client is
// disconnected or the broker stops.
func (c *Client) Messages() <-chan Message {
	return c.send
}

// Stats is a snapshot of the registry.
type Stats struct {
	Clients        int    `json:"clients"`
	Groups         int    `json:"groups"`
	Dropped        uint64 `json:"dropped"`
	DeliveryPolicy string `json:"delivery_policy"`
}

// Option configures a Broker.
type Option func(*Broker)

// WithRelay routes session broadcasts through r so that every process
// subscribed to the relay fans them out to its own members.
func WithRelay(r Relay) Option {
	return func(b *Broker) { b.relay = r }
}

// WithQueueSize sets the capacity of the operation queue.
func WithQueueSize(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.ops = make(chan func(), n)
		}
	}
}

// Broker is the session coordinator.
type Broker struct {
	clients map[string]*Client
	groups  map[string]map[string]*Client
	dropped uint64

	ops  chan func()
	done chan struct{}

	// mu guards closed. Submitters hold it for reading while they queue an
	// operation so that shutdown can wait them out before draining.
	mu     sync.RWMutex
	closed bool

	relay      Relay
	relayRetry time.Duration
	// relayUp reports whether the relay subscription is running. While it is
	// down, broadcasts are also delivered locally.
	relayUp atomic.Bool
}

// New creates a Broker. Call Run to start processing operations.
func New(opts ...Option) *Broker {
	b := &Broker{
		clients: make(map[string]*Client),
		groups:  make(map[string]map[string]*Client),
		ops:     make(chan func(), defaultQueueSize),
		done:    make(chan struct{}),

		relayRetry: defaultRelayRetry,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run executes queued operations until ctx is canceled. On return every
// client's outbound buffer is closed.
func (b *Broker) Run(ctx context.Context) {
	if b.relay != nil {
		b.relayUp.Store(true)
		go b.subscribe(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			return
		case op := <-b.ops:
			b.exec(op)
		}
	}
}

// subscribe keeps the relay subscription alive until ctx is canceled,
// retrying with exponential backoff whenever it ends.
func (b *Broker) subscribe(ctx context.Context) {
	delay := b.relayRetry
	for {
		b.relayUp.Store(true)
		started := time.Now()
		err := b.relay.Subscribe(ctx, b.deliver)
		b.relayUp.Store(false)
		if ctx.Err() != nil {
			return
		}

		if time.Since(started) > maxRelayRetry {
			delay = b.relayRetry
		}
		slog.Error("realtime relay subscription stopped, delivering locally until it is back",
			slog.Any("error", err),
			slog.Duration("retry_in", delay),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRelayRetry)
	}
}

func (b *Broker) exec(op func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("realtime dispatch panic", slog.Any("panic", r))
			sentry.CurrentHub().Recover(r)
		}
	}()
	op()
}

// shutdown stops accepting operations, runs the ones already queued and
// closes every client's outbound buffer.
func (b *Broker) shutdown() {
	close(b.done)
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	for drained := false; !drained; {
		select {
		case op := <-b.ops:
			b.exec(op)
		default:
			drained = true
		}
	}

	for id, c := range b.clients {
		close(c.send)
		delete(b.clients, id)
	}
	clear(b.groups)
}

// submit queues op. Once it returns true, op runs exactly once, either on
// the dispatch loop or while shutdown drains the queue.
func (b *Broker) submit(op func()) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	select {
	case b.ops <- op:
		return true
	case <-b.done:
		return false
	}
}

// call runs fn on the dispatch goroutine and waits for it to finish.
func (b *Broker) call(fn func()) bool {
	finished := make(chan struct{})
	ok := b.submit(func() {
		defer close(finished)
		fn()
	})
	if !ok {
		return false
	}
	<-finished
	return true
}

// Register adds a connected client that is not yet in any group.
func (b *Broker) Register(c *Client) {
	if !b.submit(func() { b.clients[c.ID] = c }) {
		close(c.send)
	}
}

// Join moves the client into the group for sessionID. Leaving the previous
// group and entering the new one happen in the same dispatch step.
func (b *Broker) Join(clientID, sessionID string) {
	b.submit(func() { b.join(clientID, sessionID) })
}

func (b *Broker) join(clientID, sessionID string) {
	c, ok := b.clients[clientID]
	if !ok {
		slog.Warn("realtime join from unknown connection", slog.String("conn_id", clientID))
		return
	}
	if sessionID == "" || c.group == sessionID {
		return
	}

	b.leave(c)

	members := b.groups[sessionID]
	if members == nil {
		members = make(map[string]*Client)
		b.groups[sessionID] = members
	}
	members[c.ID] = c
	c.group = sessionID

	slog.Debug("realtime join",
		slog.String("conn_id", c.ID),
		slog.String("session_id", sessionID),
		slog.Int("members", len(members)),
	)
}

// leave removes c from its group and drops the group once it is empty.
func (b *Broker) leave(c *Client) {
	if c.group == "" {
		return
	}
	if members, ok := b.groups[c.group]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(b.groups, c.group)
		}
	}
	c.group = ""
}

// Disconnect removes the client from its group and from the registry and
// closes its outbound buffer. Unknown ids are ignored.
func (b *Broker) Disconnect(clientID string) {
	b.submit(func() {
		c, ok := b.clients[clientID]
		if !ok {
			return
		}
		b.leave(c)
		delete(b.clients, clientID)
		close(c.send)
	})
}

// EndSession tells every current member of the session to log out.
// Membership is left unchanged.
func (b *Broker) EndSession(ctx context.Context, sessionID string) {
	b.publish(ctx, sessionID, Message{Event: EventForceLogout})
}

// SongUpdated forwards song, byte for byte, to every current member.
func (b *Broker) SongUpdated(ctx context.Context, sessionID string, song json.RawMessage) {
	data := make(json.RawMessage, len(song))
	copy(data, song)
	b.publish(ctx, sessionID, Message{Event: EventSongUpdated, Data: data})
}

func (b *Broker) publish(ctx context.Context, sessionID string, msg Message) {
	if b.relay != nil {
		err := b.relay.Publish(ctx, sessionID, msg)
		if err == nil && b.relayUp.Load() {
			return
		}
		if err != nil {
			slog.Warn("realtime relay publish failed, delivering locally",
				slog.String("session_id", sessionID),
				slog.String("event", msg.Event),
				slog.Any("error", err),
			)
		}
	}
	b.deliver(sessionID, msg)
}

// deliver queues a fan-out to the local members of sessionID.
func (b *Broker) deliver(sessionID string, msg Message) {
	b.submit(func() { b.fanout(sessionID, msg) })
}

func (b *Broker) fanout(sessionID string, msg Message) {
	members := b.groups[sessionID]
	delivered := 0
	for _, c := range members {
		select {
		case c.send <- msg:
			delivered++
		default:
			b.dropped++
			slog.Warn("realtime outbound buffer full, message dropped",
				slog.String("conn_id", c.ID),
				slog.String("session_id", sessionID),
				slog.String("event", msg.Event),
			)
		}
	}

	slog.Debug("realtime fan-out",
		slog.String("session_id", sessionID),
		slog.String("event", msg.Event),
		slog.Int("members", len(members)),
		slog.Int("delivered", delivered),
	)
}

// Members returns the sorted ids of the clients currently in sessionID.
func (b *Broker) Members(sessionID string) []string {
	var ids []string
	b.call(func() {
		for id := range b.groups[sessionID] {
			ids = append(ids, id)
		}
	})
	sort.Strings(ids)
	return ids
}

// GroupOf returns the session the client is joined to.
func (b *Broker) GroupOf(clientID string) (string, bool) {
	var group string
	b.call(func() {
		if c, ok := b.clients[clientID]; ok {
			group = c.group
		}
	})
	return group, group != ""
}

// Stats returns a snapshot of the registry.
func (b *Broker) Stats() Stats {
	s := Stats{DeliveryPolicy: DeliveryPolicy}
	b.call(func() {
		s.Clients = len(b.clients)
		s.Groups = len(b.groups)
		s.Dropped = b.dropped
	})
	return s
}
