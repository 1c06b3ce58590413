// internal/httpserver/sse.go
//
// Server-sent events for board views.
//   - Streams are grouped by owner; every tab of a browser shares one owner.
//   - Each pushed view is a numbered `board` event. A full buffer drops the
//     view for that stream only; the next view carries the whole board.
//   - Comment heartbeats keep proxies from closing idle streams.

package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	streamBuffer    = 16
	streamHeartbeat = 30 * time.Second
	streamRetryMs   = 3000
)

// stream is one open event-stream response.
type stream struct {
	out chan string
}

// Broadcaster fans board views out to the open streams of each owner.
type Broadcaster struct {
	mu      sync.RWMutex
	streams map[string]map[*stream]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{streams: make(map[string]map[*stream]struct{})}
}

func (b *Broadcaster) openStream(owner string) *stream {
	st := &stream{out: make(chan string, streamBuffer)}
	b.mu.Lock()
	set, ok := b.streams[owner]
	if !ok {
		set = make(map[*stream]struct{})
		b.streams[owner] = set
	}
	set[st] = struct{}{}
	b.mu.Unlock()
	return st
}

func (b *Broadcaster) closeStream(owner string, st *stream) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.streams[owner]
	if _, ok := set[st]; !ok {
		return
	}
	delete(set, st)
	close(st.out)
	if len(set) == 0 {
		delete(b.streams, owner)
	}
}

// closeAll ends every open stream.
func (b *Broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for owner, set := range b.streams {
		for st := range set {
			close(st.out)
		}
		delete(b.streams, owner)
	}
}

// Broadcast queues data on every stream of owner.
func (b *Broadcaster) Broadcast(owner, data string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for st := range b.streams[owner] {
		select {
		case st.out <- data:
		default:
			log.Debug().Str("owner", owner).Msg("event stream full, view dropped")
		}
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (b *Broadcaster) BroadcastJSON(owner string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("encode event")
		return
	}
	b.Broadcast(owner, string(data))
}

// ClientCount returns the number of open streams for owner.
func (b *Broadcaster) ClientCount(owner string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.streams[owner])
}

// ServeSSE streams views for owner until the client goes away. first, when
// non-empty, is sent as event 1.
func (b *Broadcaster) ServeSSE(w http.ResponseWriter, r *http.Request, owner, first string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	st := b.openStream(owner)
	defer b.closeStream(owner, st)
	log.Debug().Str("owner", owner).Msg("event stream opened")
	defer log.Debug().Str("owner", owner).Msg("event stream closed")

	seq := 0
	send := func(data string) {
		seq++
		fmt.Fprintf(w, "id: %d\nevent: board\ndata: %s\n\n", seq, data)
		flusher.Flush()
	}

	fmt.Fprintf(w, "retry: %d\n\n", streamRetryMs)
	if first != "" {
		send(first)
	} else {
		flusher.Flush()
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-st.out:
			if !ok {
				return
			}
			send(data)
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
