package broadcast

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Message is one server-sent event.
type Message struct {
	Event string
	Data  string
}

// Broadcaster fans messages out to subscribed streams.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[chan Message]bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[chan Message]bool),
	}
}

func (b *Broadcaster) Subscribe() chan Message {
	ch := make(chan Message, 10)
	b.mu.Lock()
	b.clients[ch] = true
	b.mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.clients[ch] {
		delete(b.clients, ch)
		close(ch)
	}
}

func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Broadcast sends to every subscriber, skipping those whose channel is full.
func (b *Broadcaster) Broadcast(event, data string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- Message{Event: event, Data: data}:
		default:
			// skip clients with full data channels
		}
	}
}

// WriteSSE writes msg in text/event-stream framing.
func WriteSSE(w io.Writer, msg Message) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "event: %s\n", msg.Event)
	for _, line := range strings.Split(msg.Data, "\n") {
		fmt.Fprintf(&sb, "data: %s\n", line)
	}
	sb.WriteString("\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
