// ABOUTME: The -watch mode: tails a running console's event stream and prints one line per region update.
// ABOUTME: Attaches to a browser session by cookie, resumes by Last-Event-ID, and restarts after a resync.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/2389-research/agentdeck/console"
	"github.com/2389-research/agentdeck/sse"
	"github.com/2389-research/agentdeck/tui"
)

const (
	sessionCookie  = "agentdeck_session"
	eventResync    = "resync"
	watchRetryBase = 500 * time.Millisecond
	watchRetryMax  = 10 * time.Second
)

// watchClient returns an HTTP client whose cookie jar carries session, so
// the stream belongs to an existing browser console. Without a session the
// server issues a fresh one and the jar keeps it across reconnects.
func watchClient(base, session string) (*http.Client, error) {
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("watch url must be an absolute http or https URL: %q", base)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	if session != "" {
		jar.SetCookies(u, []*http.Cookie{{Name: sessionCookie, Value: session, Path: "/"}})
	}
	return &http.Client{Jar: jar}, nil
}

// eventsURL joins the console's base URL with its stream route.
func eventsURL(base string) string {
	return strings.TrimRight(base, "/") + "/events"
}

// watch follows the stream until ctx is cancelled, reconnecting with
// capped backoff when the connection drops.
func watch(ctx context.Context, hc *http.Client, base string, out io.Writer) error {
	target := eventsURL(base)
	lastID := ""
	delay := watchRetryBase
	for {
		resync := false
		seen := false
		id, err := sse.Follow(ctx, hc, target, lastID, func(evt sse.Event) error {
			seen = true
			if evt.Type == eventResync {
				resync = true
				fmt.Fprintln(out, "-- history gap, replaying from the start")
				return nil
			}
			if line, ok := formatEvent(evt); ok {
				fmt.Fprintln(out, line)
			}
			return nil
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastID = id
		if resync {
			lastID = ""
		}
		if seen {
			delay = watchRetryBase
		}
		if err != nil {
			if errors.Is(err, sse.ErrNotEventStream) {
				return err
			}
			log.Printf("component=cmd.watch action=disconnected url=%s retry_in=%s err=%v", target, delay, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, watchRetryMax)
	}
}

// formatEvent renders one console event as a terminal line. Events with
// nothing to show, such as input clears, report false.
func formatEvent(evt sse.Event) (string, bool) {
	data := gjson.Parse(evt.Data)
	kind := console.EventKind(data.Get("kind").String())
	if kind == "" {
		kind = console.EventKind(evt.Type)
	}
	stamp := "--:--:--"
	if ts := data.Get("timestamp"); ts.Exists() {
		stamp = ts.Time().Local().Format("15:04:05")
	}
	target := data.Get("target").String()
	text := oneLine(tui.PlainText(data.Get("html").String()))

	var line string
	switch kind {
	case console.EventTranscriptAppend, console.EventTranscriptReplace:
		role := data.Get("role").String()
		if data.Get("status").String() == console.StatusPending {
			line = fmt.Sprintf("[%s] %s (pending)", role, text)
		} else {
			line = fmt.Sprintf("[%s] %s", role, text)
		}
	case console.EventIntentUpdate:
		line = "[intent] " + text
	case console.EventDiagramUpdate:
		line = fmt.Sprintf("[diagram] version %d", data.Get("diagram.version").Uint())
	case console.EventNotice:
		line = "[notice] " + oneLine(data.Get("text").String())
	case console.EventPanelReset:
		line = fmt.Sprintf("[%s] run %s started: %s", target, data.Get("run").String(), data.Get("status").String())
	case console.EventPanelLog:
		line = fmt.Sprintf("[%s] %s", target, oneLine(data.Get("text").String()))
	case console.EventPanelComplete:
		line = fmt.Sprintf("[%s] %s: %s", target, data.Get("status").String(), text)
	case console.EventPanelFail:
		line = fmt.Sprintf("[%s] failed: %s", target, text)
	default:
		return "", false
	}
	return stamp + " " + line, true
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
