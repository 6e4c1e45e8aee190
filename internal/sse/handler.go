package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Snapshot produces the current full state for a subscription, sent once
// on connect so a client never starts blind.
type Snapshot func(ctx context.Context) (interface{}, error)

// Stream serves one subscription as a text/event-stream. The client gets
// the current snapshot immediately, then a full replacement snapshot on
// every change. A failing initial read degrades to an empty snapshot so
// dashboards fail safe instead of erroring out.
func Stream(w http.ResponseWriter, r *http.Request, emitter *Emitter, key string, initial Snapshot) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ctx := r.Context()
	events := emitter.Subscribe(ctx, key)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	if initial != nil {
		snapshot, err := initial(ctx)
		if err != nil {
			snapshot = []interface{}{}
		}
		if payload, err := json.Marshal(snapshot); err == nil {
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}

	for {
		select {
		case payload, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload)
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
