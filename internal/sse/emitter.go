package sse

import (
	"context"
	"encoding/json"
	"sync"
)

// Emitter fans entity snapshots out to subscribed dashboard clients.
// Delivery is push-based: per-subscription a client only ever sees
// monotonically newer snapshots, never partial diffs. Slow clients are
// skipped rather than allowed to stall the emitter.
type Emitter struct {
	mu      sync.RWMutex
	clients map[string][]chan json.RawMessage
}

func NewEmitter() *Emitter {
	return &Emitter{
		clients: make(map[string][]chan json.RawMessage),
	}
}

// Subscribe registers a client for snapshots under key. The channel is
// closed and removed when ctx is done.
func (e *Emitter) Subscribe(ctx context.Context, key string) chan json.RawMessage {
	clientChan := make(chan json.RawMessage, 10)

	e.mu.Lock()
	e.clients[key] = append(e.clients[key], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(key, clientChan)
	}()

	return clientChan
}

// Emit marshals the snapshot and broadcasts it to every client subscribed
// under key. Sends are non-blocking: a client whose buffer is full misses
// this snapshot and catches up on the next one.
func (e *Emitter) Emit(key string, snapshot interface{}) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return
	}

	e.mu.RLock()
	clients := e.clients[key]
	e.mu.RUnlock()

	for _, clientChan := range clients {
		select {
		case clientChan <- payload:
		default:
		}
	}
}

func (e *Emitter) removeClient(key string, clientChan chan json.RawMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[key]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[key] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[key]) == 0 {
		delete(e.clients, key)
	}
}

// ClientCount returns the number of clients subscribed under key.
func (e *Emitter) ClientCount(key string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[key])
}
