// Package sse implements a Server-Sent Events broker that streams record
// change notifications.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// ChangedEvent is the throttled event emitted after record mutations.
const ChangedEvent = "collections.changed"

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
	// Collection scopes the event for filtered subscribers. Empty reaches all.
	Collection string `json:"-"`
}

type recordEvent struct {
	collection string
	kind       string
	id         string
}

type subscription struct {
	ch         chan []byte
	collection string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal event loop owns the client set, the frame sequence and
// the throttle timestamp. Public methods talk to it over channels.
type Broker struct {
	throttle  time.Duration
	keepalive time.Duration
	logger    *slog.Logger

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	recordCh      chan recordEvent
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker. throttle bounds how often collections.changed
// is sent; keepalive is the idle ping interval for open streams.
func NewBroker(throttle, keepalive time.Duration, logger *slog.Logger) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Broker{
		throttle:      throttle,
		keepalive:     keepalive,
		logger:        logger,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		recordCh:      make(chan recordEvent, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	var (
		seq         uint64
		lastChanged time.Time
	)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			b.logger.Error("sse: encode event", slog.String("type", event.Type), slog.String("error", err.Error()))
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		for ch, want := range clients {
			if want != "" && event.Collection != "" && want != event.Collection {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.collection

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.recordCh:
			broadcast(Event{
				Type:       recordName(req.collection) + "." + req.kind,
				Data:       map[string]string{"id": req.id},
				Collection: req.collection,
			})

			now := time.Now()
			if now.Sub(lastChanged) >= b.throttle {
				lastChanged = now
				broadcast(Event{Type: ChangedEvent, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// recordName maps a collection to the singular event prefix.
func recordName(collection string) string {
	return strings.TrimSuffix(collection, "s")
}

// Close stops the loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client. A non-empty collection limits the client to
// events scoped to that collection plus unscoped ones.
func (b *Broker) Subscribe(collection string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, collection: collection}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all matching clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishRecordEvent publishes <record>.<kind> for a store mutation and a
// throttled collections.changed.
func (b *Broker) PublishRecordEvent(collection, kind, id string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.recordCh <- recordEvent{collection: collection, kind: kind, id: id}:
	case <-b.stopped:
	}
}

// PublishFileChange publishes <collection>.changed for a record file touched
// on disk.
func (b *Broker) PublishFileChange(collection, key, op string) {
	b.Publish(Event{
		Type:       collection + ".changed",
		Data:       map[string]string{"id": key, "op": op},
		Collection: collection,
	})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query().Get("collection"))
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepalive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
