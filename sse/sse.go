// ABOUTME: Server-Sent Events encoding and decoding for the console's region update stream.
// ABOUTME: Write frames events for the browser; Reader parses them back for the -watch tail and tests.
package sse

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Event is one Server-Sent Event.
type Event struct {
	Type  string // "event:" field; "message" when absent
	Data  string // "data:" lines joined with "\n"
	ID    string // last event id seen on the stream
	Retry int    // "retry:" milliseconds, -1 when absent
}

// Write frames e onto w. Multi-line data is split across data: lines so
// newlines survive the round trip. Empty Type and ID fields are omitted.
func Write(w io.Writer, e Event) error {
	var b strings.Builder
	if e.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", oneLine(e.ID))
	}
	if e.Type != "" {
		fmt.Fprintf(&b, "event: %s\n", oneLine(e.Type))
	}
	if e.Retry > 0 {
		fmt.Fprintf(&b, "retry: %d\n", e.Retry)
	}
	for _, line := range strings.Split(e.Data, "\n") {
		b.WriteString("data: ")
		b.WriteString(strings.TrimSuffix(line, "\r"))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

// Comment writes a comment line, used as a keepalive.
func Comment(w io.Writer, text string) error {
	_, err := fmt.Fprintf(w, ": %s\n\n", oneLine(text))
	return err
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// Reader decodes events from a stream. The last event id persists across
// events until the stream sets a new one.
type Reader struct {
	br     *bufio.Reader
	lastID string
	done   bool
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 16<<10)}
}

// LastEventID returns the id to resume from after a reconnect.
func (r *Reader) LastEventID() string { return r.lastID }

// Next returns the next event with data, or io.EOF at end of stream. An
// event left unterminated at EOF is still dispatched.
func (r *Reader) Next() (Event, error) {
	if r.done {
		return Event{}, io.EOF
	}

	var (
		typ   string
		data  []string
		seen  bool
		retry = -1
	)
	dispatch := func() Event {
		if typ == "" {
			typ = "message"
		}
		return Event{Type: typ, Data: strings.Join(data, "\n"), ID: r.lastID, Retry: retry}
	}

	for {
		line, err := r.readLine()
		if err == io.EOF {
			r.done = true
			if seen {
				return dispatch(), nil
			}
			return Event{}, io.EOF
		}
		if err != nil {
			return Event{}, err
		}

		switch {
		case line == "":
			if seen {
				return dispatch(), nil
			}
			typ, retry = "", -1
			continue
		case line[0] == ':':
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			typ = value
		case "data":
			data = append(data, value)
			seen = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				r.lastID = value
			}
		case "retry":
			if n, err := strconv.Atoi(value); err == nil && n >= 0 {
				retry = n
			}
		}
	}
}

// readLine returns one line without its terminator. CR, LF, and CRLF all
// end a line.
func (r *Reader) readLine() (string, error) {
	var b strings.Builder
	for {
		c, err := r.br.ReadByte()
		if err != nil {
			if err == io.EOF && b.Len() > 0 {
				return b.String(), nil
			}
			return "", err
		}
		switch c {
		case '\n':
			return b.String(), nil
		case '\r':
			if next, err := r.br.ReadByte(); err == nil && next != '\n' {
				_ = r.br.UnreadByte()
			}
			return b.String(), nil
		}
		b.WriteByte(c)
	}
}
