// Package sse streams board changes to browsers as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event is a named SSE message with a JSON payload.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Photo event kinds accepted by PublishPhoto.
const (
	KindIngested = "ingested"
	KindMoved    = "moved"
	KindArchived = "archived"
	KindGap      = "gap"
)

// PhotoEvent is the payload of every photo.* message.
type PhotoEvent struct {
	Kind      string    `json:"-"`
	ID        string    `json:"id"`
	Filename  string    `json:"filename,omitempty"`
	Category  string    `json:"category"`
	From      string    `json:"from,omitempty"`
	Relocated bool      `json:"relocated"`
	At        time.Time `json:"at,omitzero"`
}

// catalogUpdate is the payload of catalog.updated: how many photo changes
// it stands for.
type catalogUpdate struct {
	Changes int `json:"changes"`
}

// DefaultKeepAlive is how often an idle stream receives a comment line.
const DefaultKeepAlive = 25 * time.Second

// reconnectDelay is the retry hint sent to EventSource clients.
const reconnectDelay = 3 * time.Second

// Broker fans board changes out to connected clients.
//
// One goroutine owns the client set and the catalog.updated coalescing
// state; public methods talk to it over channels. catalog.updated fires on
// the first change after a quiet period and then at most once per window,
// with a trailing message so the last change of a burst is never dropped.
type Broker struct {
	window    time.Duration
	keepAlive time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	photoCh       chan PhotoEvent
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker whose catalog.updated messages are spaced at
// least window apart.
func NewBroker(window time.Duration) *Broker {
	if window <= 0 {
		window = 2 * time.Second
	}

	b := &Broker{
		window:        window,
		keepAlive:     DefaultKeepAlive,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		photoCh:       make(chan PhotoEvent, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var seq uint64

	// Coalescing state for catalog.updated.
	var (
		lastSent time.Time
		pending  int
		flush    *time.Timer
		flushCh  <-chan time.Time
	)

	send := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload)
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; it will resync on the next catalog.updated.
			}
		}
	}

	sendCatalog := func(now time.Time) {
		send(Event{Type: "catalog.updated", Data: catalogUpdate{Changes: pending}})
		lastSent = now
		pending = 0
	}

	for {
		select {
		case <-b.stopCh:
			if flush != nil {
				flush.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)

		case event := <-b.publishCh:
			send(event)

		case ev := <-b.photoCh:
			switch ev.Kind {
			case KindIngested, KindMoved, KindArchived:
			default:
				continue
			}
			send(Event{Type: "photo." + ev.Kind, Data: ev})
			if !ev.Relocated && ev.Kind != KindIngested {
				send(Event{Type: "photo." + KindGap, Data: ev})
			}

			pending++
			now := time.Now()
			if wait := b.window - now.Sub(lastSent); wait <= 0 {
				sendCatalog(now)
			} else if flushCh == nil {
				flush = time.NewTimer(wait)
				flushCh = flush.C
			}

		case now := <-flushCh:
			flushCh = nil
			if pending > 0 {
				sendCatalog(now)
			}
		}
	}
}

// Close stops the broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
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

// Publish sends an event to all connected clients as is.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishPhoto announces a committed photo transition. A move or archive
// that found no file to relocate is followed by photo.gap. Unknown kinds
// are dropped.
func (b *Broker) PublishPhoto(ev PhotoEvent) {
	if b.closed.Load() {
		return
	}
	select {
	case b.photoCh <- ev:
	case <-b.stopped:
	}
}

// PublishDrift broadcasts a consistency report that found disagreements.
func (b *Broker) PublishDrift(report any) {
	b.Publish(Event{Type: "consistency.drift", Data: report})
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
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", reconnectDelay.Milliseconds())
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
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
