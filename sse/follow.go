// ABOUTME: HTTP client side of the event stream: connects, resumes by Last-Event-ID, and hands events to a callback.
// ABOUTME: Used by the -watch mode to tail a running console from the terminal.
package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// ErrNotEventStream is returned when the server answers with another content type.
var ErrNotEventStream = errors.New("response is not text/event-stream")

// Follow GETs url and calls fn for every event until the stream ends, ctx
// is cancelled, or fn returns an error. lastID, when set, is sent as
// Last-Event-ID. It returns the last event id seen so callers can resume.
func Follow(ctx context.Context, hc *http.Client, url, lastID string, fn func(Event) error) (string, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return lastID, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if lastID != "" {
		req.Header.Set("Last-Event-ID", lastID)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return lastID, fmt.Errorf("connecting to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return lastID, fmt.Errorf("connecting to %s: status %d", url, resp.StatusCode)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/event-stream" {
		return lastID, fmt.Errorf("%w: got %q", ErrNotEventStream, resp.Header.Get("Content-Type"))
	}

	r := NewReader(resp.Body)
	if lastID != "" {
		r.lastID = lastID
	}
	for {
		evt, err := r.Next()
		if errors.Is(err, io.EOF) {
			return r.LastEventID(), nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return r.LastEventID(), ctx.Err()
			}
			return r.LastEventID(), fmt.Errorf("reading stream: %w", err)
		}
		if err := fn(evt); err != nil {
			return r.LastEventID(), err
		}
	}
}
