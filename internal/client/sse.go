package client

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Server-sent event names of a streamed turn. Chunks are unlabelled.
const (
	EventMessage = "message"
	EventFinal   = "final"
	EventError   = "error"
)

// Event is one decoded server-sent event. Multi-line data is joined with newlines.
type Event struct {
	Type string
	Data string
}

// errStop ends ReadEvents early without an error.
var errStop = errors.New("client: stop reading events") //nolint:gochecknoglobals // sentinel error

// ReadEvents decodes server-sent events from r and calls fn for each one in
// order. It returns when r is exhausted or fn returns an error. Lines may end
// in CR, LF or CRLF, so data lines are always rejoined with "\n" and a chunk's
// original CRLF line ends do not survive the stream.
func ReadEvents(r io.Reader, fn func(Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 4<<20)
	scanner.Split(scanLines)

	eventType := EventMessage
	var data []string

	dispatch := func() error {
		if len(data) == 0 {
			eventType = EventMessage
			return nil
		}
		ev := Event{Type: eventType, Data: strings.Join(data, "\n")}
		eventType = EventMessage
		data = data[:0]
		return fn(ev)
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if err := dispatch(); err != nil {
				return stopped(err)
			}
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "":
			// comment
		case "event":
			eventType = value
		case "data":
			data = append(data, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("client.ReadEvents: %w", err)
	}

	// A stream may end without the blank line after its last event.
	return stopped(dispatch())
}

// scanLines splits on CRLF, LF or a lone CR.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		switch {
		case i+1 < len(data) && data[i+1] == '\n':
			return i + 2, data[:i], nil
		case i+1 < len(data) || atEOF:
			return i + 1, data[:i], nil
		}
		// A CR at the end of the buffer may be the first half of CRLF.
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func stopped(err error) error {
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}
