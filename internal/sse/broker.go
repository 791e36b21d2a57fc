// Package sse implements a Server-Sent Events broker for sync updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	// clientBuffer is the per-client channel capacity; replay never exceeds it.
	clientBuffer = 64
	// historySize bounds the events kept for Last-Event-ID replay.
	historySize = 256
	// DefaultKeepAlive is the interval of comment pings on idle streams.
	DefaultKeepAlive = 15 * time.Second
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NoteChange describes one note touched by sync.
type NoteChange struct {
	Folder         string `json:"folder"`
	ConversationID string `json:"conversation_id"`
	NoteID         string `json:"note_id"`
	Title          string `json:"title,omitempty"`
}

// Broker fans sync events out to SSE clients. All state lives in a hub owned
// by one goroutine; public methods hand it operations over a channel.
type Broker struct {
	keepAlive time.Duration
	ops       chan func(*hub)
	quit      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithKeepAlive sets the ping interval for idle streams.
func WithKeepAlive(d time.Duration) BrokerOption {
	return func(b *Broker) {
		if d > 0 {
			b.keepAlive = d
		}
	}
}

// NewBroker starts a broker. folderThrottle bounds how often a
// folder.updated event is sent per folder.
func NewBroker(folderThrottle time.Duration, opts ...BrokerOption) *Broker {
	if folderThrottle <= 0 {
		folderThrottle = 2 * time.Second
	}
	b := &Broker{
		keepAlive: DefaultKeepAlive,
		ops:       make(chan func(*hub), 256),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	go b.loop(newHub(folderThrottle))
	return b
}

func (b *Broker) loop(h *hub) {
	defer close(b.done)
	for {
		select {
		case op := <-b.ops:
			op(h)
		case <-b.quit:
			h.shutdown()
			for {
				select {
				case op := <-b.ops:
					op(h)
				default:
					return
				}
			}
		}
	}
}

// do queues op for the hub. It reports false once the broker has stopped.
func (b *Broker) do(op func(*hub)) bool {
	select {
	case <-b.done:
		return false
	default:
	}
	select {
	case b.ops <- op:
		return true
	case <-b.done:
		return false
	}
}

// Close stops the broker and closes every client channel.
func (b *Broker) Close() {
	b.stopOnce.Do(func() { close(b.quit) })
	<-b.done
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.do(func(h *hub) { h.attach(ch) }) {
		close(ch)
	}
	return ch
}

// SubscribeAfter adds a new client and first delivers the retained events
// with an id greater than lastID.
func (b *Broker) SubscribeAfter(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.do(func(h *hub) {
		if h.attach(ch) {
			h.replay(ch, lastID)
		}
	}) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(h *hub) { h.detach(ch) })
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	reply := make(chan int, 1)
	if !b.do(func(h *hub) { reply <- len(h.clients) }) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-b.done:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.do(func(h *hub) { h.emit(event) })
}

// PublishNoteEvent publishes a note change and a throttled folder.updated
// event. kind is one of "created", "appended", "overwritten", "archived".
func (b *Broker) PublishNoteEvent(kind string, change NoteChange) {
	b.do(func(h *hub) { h.noteChanged(kind, change, time.Now()) })
}

// frame is one encoded event kept for replay.
type frame struct {
	id  uint64
	raw []byte
}

// hub is the broker state. Only the loop goroutine touches it.
type hub struct {
	clients    map[chan []byte]struct{}
	history    []frame
	seq        uint64
	folderMin  time.Duration
	folderSent map[string]time.Time
	closed     bool
}

func newHub(folderMin time.Duration) *hub {
	return &hub{
		clients:    make(map[chan []byte]struct{}),
		history:    make([]frame, 0, historySize),
		folderMin:  folderMin,
		folderSent: make(map[string]time.Time),
	}
}

// attach registers ch. A stopped hub closes it instead.
func (h *hub) attach(ch chan []byte) bool {
	if h.closed {
		close(ch)
		return false
	}
	h.clients[ch] = struct{}{}
	return true
}

func (h *hub) detach(ch chan []byte) {
	if _, ok := h.clients[ch]; !ok {
		return
	}
	delete(h.clients, ch)
	close(ch)
}

// replay delivers retained frames newer than after, keeping only the newest
// ones that fit the client buffer.
func (h *hub) replay(ch chan []byte, after uint64) {
	i := 0
	for i < len(h.history) && h.history[i].id <= after {
		i++
	}
	missed := h.history[i:]
	if over := len(missed) - cap(ch); over > 0 {
		missed = missed[over:]
	}
	for _, f := range missed {
		ch <- f.raw
	}
}

func (h *hub) emit(event Event) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return
	}
	h.seq++
	f := frame{id: h.seq, raw: fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", h.seq, event.Type, payload)}
	if len(h.history) == historySize {
		h.history = append(h.history[:0], h.history[1:]...)
	}
	h.history = append(h.history, f)

	for ch := range h.clients {
		select {
		case ch <- f.raw:
		default:
			// slow client misses this event
		}
	}
}

func (h *hub) noteChanged(kind string, change NoteChange, now time.Time) {
	switch kind {
	case "created", "appended", "overwritten", "archived":
	default:
		return
	}
	h.emit(Event{Type: "note." + kind, Data: change})
	if now.Sub(h.folderSent[change.Folder]) < h.folderMin {
		return
	}
	h.folderSent[change.Folder] = now
	h.emit(Event{Type: "folder.updated", Data: map[string]string{"folder": change.Folder}})
}

func (h *hub) shutdown() {
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

// lastEventID reads the reconnect cursor from the Last-Event-ID header or,
// for clients that cannot set it, the lastEventId query parameter.
func lastEventID(r *http.Request) (uint64, bool) {
	v := r.Header.Get("Last-Event-ID")
	if v == "" {
		v = r.URL.Query().Get("lastEventId")
	}
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(v, 10, 64)
	return id, err == nil
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe
	if id, ok := lastEventID(r); ok {
		ch = func() chan []byte { return b.SubscribeAfter(id) }
	}
	stream := ch()
	defer b.Unsubscribe(stream)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	send := func(p []byte) {
		_, _ = w.Write(p)
		flusher.Flush()
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			send([]byte(": ping\n\n"))
		case msg, ok := <-stream:
			if !ok {
				return
			}
			send(msg)
		}
	}
}
