// Package sse streams tension and calendar changes to browsers as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeTensionCaptured  = "tension.captured"
	TypeTensionUpdated   = "tension.updated"
	TypeTensionPostponed = "tension.postponed"
	TypeTensionReturned  = "tension.returned"
	TypeCalendarChanged  = "calendar.changed"
	TypeSlotsStale       = "slots.stale"
)

const (
	clientBuffer = 64
	replaySize   = 128
)

// Event is one notification. Data is sent as JSON.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type frame struct {
	id  uint64
	raw []byte
}

// hub is the state owned by the loop goroutine.
type hub struct {
	clients   map[chan []byte]struct{}
	seq       uint64
	recent    []frame
	lastStale time.Time
}

func (h *hub) send(ev Event) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	h.seq++
	f := frame{id: h.seq, raw: []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", h.seq, ev.Type, payload))}

	h.recent = append(h.recent, f)
	if len(h.recent) > replaySize {
		h.recent = h.recent[len(h.recent)-replaySize:]
	}
	for ch := range h.clients {
		select {
		case ch <- f.raw:
		default: // slow client misses this one
		}
	}
}

// Broker fans events out to subscribed clients. All state lives in one loop
// goroutine; methods hand it closures over ops.
type Broker struct {
	staleEvery time.Duration
	keepAlive  time.Duration

	ops     chan func(*hub)
	stop    chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. slots.stale follows a calendar change at most
// once per staleEvery.
func NewBroker(staleEvery time.Duration) *Broker {
	if staleEvery <= 0 {
		staleEvery = 2 * time.Second
	}
	b := &Broker{
		staleEvery: staleEvery,
		keepAlive:  25 * time.Second,
		ops:        make(chan func(*hub), 256),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)
	h := &hub{clients: make(map[chan []byte]struct{})}
	for {
		select {
		case <-b.stop:
			for ch := range h.clients {
				close(ch)
			}
			return
		case op := <-b.ops:
			op(h)
		}
	}
}

// do queues op. It reports false once the broker is closed.
func (b *Broker) do(op func(*hub)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.ops <- op:
		return true
	case <-b.stopped:
		return false
	}
}

// Close stops the loop and closes every client channel. It is idempotent.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeFrom(0)
}

// SubscribeFrom registers a client and first queues the retained events with
// an id above lastID. Zero replays nothing.
func (b *Broker) SubscribeFrom(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	done := make(chan struct{})
	ok := b.do(func(h *hub) {
		defer close(done)
		if lastID > 0 {
			for _, f := range h.recent {
				if f.id <= lastID {
					continue
				}
				select {
				case ch <- f.raw:
				default:
				}
			}
		}
		h.clients[ch] = struct{}{}
	})
	if !ok {
		close(ch)
		return ch
	}
	select {
	case <-done:
	case <-b.stopped:
		select {
		case <-done: // registered, then closed by the loop
		default:
			close(ch)
		}
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.do(func(h *hub) { resp <- len(h.clients) }) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends ev to every client.
func (b *Broker) Publish(ev Event) {
	b.do(func(h *hub) { h.send(ev) })
}

// PublishCalendarChange announces a calendar file change and, throttled, a
// slots.stale hint. It has the shape of ics.ChangeCallback.
func (b *Broker) PublishCalendarChange(kind, name string) {
	b.do(func(h *hub) {
		h.send(Event{Type: TypeCalendarChanged, Data: map[string]string{"kind": kind, "file": name}})
		if now := time.Now(); now.Sub(h.lastStale) >= b.staleEvery {
			h.lastStale = now
			h.send(Event{Type: TypeSlotsStale, Data: map[string]string{}})
		}
	})
}

// ServeHTTP streams events to one client (GET /api/events). A Last-Event-ID
// header resumes after that id when it is still retained.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.SubscribeFrom(lastID)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
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
