// ABOUTME: Streams a session's region updates to the page over SSE or a websocket.
// ABOUTME: Replays retained history after the client's last seen sequence, then forwards live events.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/2389-research/agentdeck/console"
	"github.com/2389-research/agentdeck/sse"
)

const (
	keepaliveEvery = 25 * time.Second
	wsPingEvery    = 30 * time.Second
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 70 * time.Second
)

// eventResync tells a client its last seen event fell out of the replay
// window and it must reload the full state.
const eventResync = "resync"

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same-origin only: the default check compares Origin with Host.
}

// lastSeen reads the resume point from Last-Event-ID (set by EventSource on
// reconnect) or the after query parameter (set on first connect).
func lastSeen(r *http.Request) int64 {
	v := r.Header.Get("Last-Event-ID")
	if v == "" {
		v = r.URL.Query().Get("after")
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// replay returns the history events after last and whether events between
// last and the oldest retained event were lost.
func replay(history []console.Event, last int64) ([]console.Event, bool) {
	gap := last > 0 && len(history) > 0 && history[0].Seq > last+1
	for i, evt := range history {
		if evt.Seq > last {
			return history[i:], gap
		}
	}
	return nil, gap
}

func sseEvent(evt console.Event) (sse.Event, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return sse.Event{}, fmt.Errorf("encoding event %d: %w", evt.Seq, err)
	}
	return sse.Event{ID: strconv.FormatInt(evt.Seq, 10), Type: string(evt.Kind), Data: string(data)}, nil
}

// handleEvents streams server-sent events for the caller's console.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	history, eventsCh := sess.Console.Subscribe()
	defer sess.Console.Unsubscribe(eventsCh)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	flush := func() {
		if canFlush {
			flusher.Flush()
		}
	}

	write := func(evt console.Event) bool {
		e, err := sseEvent(evt)
		if err != nil {
			log.Printf("component=web.events action=encode_failed session=%s err=%v", sess.ID, err)
			return true
		}
		return sse.Write(w, e) == nil
	}

	events, gap := replay(history, lastSeen(r))
	if gap {
		sse.Write(w, sse.Event{Type: eventResync, Data: "{}"})
		flush()
		return
	}
	for _, evt := range events {
		if !write(evt) {
			return
		}
	}
	flush()

	keepalive := time.NewTicker(keepaliveEvery)
	defer keepalive.Stop()
	for {
		select {
		case evt, ok := <-eventsCh:
			if !ok {
				return
			}
			if !write(evt) {
				return
			}
			flush()
		case <-keepalive.C:
			if sse.Comment(w, "keepalive") != nil {
				return
			}
			flush()
		case <-r.Context().Done():
			return
		}
	}
}

// handleEventsWS streams the same updates as JSON websocket frames.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("component=web.events action=upgrade_failed session=%s err=%v", sess.ID, err)
		return
	}
	defer conn.Close()

	history, eventsCh := sess.Console.Subscribe()
	defer sess.Console.Unsubscribe(eventsCh)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The reader only watches for the client going away.
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	writeJSON := func(v any) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
			return false
		}
		return conn.WriteJSON(v) == nil
	}

	events, gap := replay(history, lastSeen(r))
	if gap {
		writeJSON(map[string]string{"kind": eventResync})
		return
	}
	for _, evt := range events {
		if !writeJSON(evt) {
			return
		}
	}

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-eventsCh:
			if !ok {
				return
			}
			if !writeJSON(evt) {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
