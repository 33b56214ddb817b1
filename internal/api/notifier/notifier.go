// Package notifier fans schema change events out to subscribed listeners.
package notifier

import "sync"

// Event describes the schema index now being served.
type Event struct {
	Version string `json:"version"`
	Tables  int    `json:"tables"`
}

// Notifier broadcasts events to all subscribed listeners.
// Listeners only ever see the latest event; a slow listener skips
// intermediate ones.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
}

// New creates a Notifier with no listeners.
func New() *Notifier {
	return &Notifier{listeners: make(map[chan Event]struct{})}
}

// Subscribe returns a channel that receives events.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe() chan Event {
	ch := make(chan Event, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[ch]; !ok {
		return
	}
	delete(n.listeners, ch)
	close(ch)
}

// Len returns the number of listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Broadcast sends ev to every listener without blocking. An event still
// waiting in a listener's channel is replaced.
func (n *Notifier) Broadcast(ev Event) {
	// Write lock: replacing a pending event must not interleave with
	// another broadcast.
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.listeners {
		select {
		case <-ch:
		default:
		}
		ch <- ev
	}
}
