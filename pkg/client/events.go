package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hastakriti/handctl/pkg/events"
)

// SubscribeEvents opens the daemon's server-sent event stream. The returned
// channel is closed when ctx is cancelled or the stream ends.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan events.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://unix/events", nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to subscribe to events")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to subscribe to events: got %d", resp.StatusCode)
	}

	ch := make(chan events.Event, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		for ev := range readEvents(bufio.NewScanner(resp.Body)) {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// readEvents parses an SSE stream into events. Only the event and data
// fields are understood.
func readEvents(sc *bufio.Scanner) func(yield func(events.Event) bool) {
	return func(yield func(events.Event) bool) {
		var name string
		var data []string

		for sc.Scan() {
			line := sc.Text()
			if line == "" {
				if name != "" || len(data) > 0 {
					ev := events.Event{Name: name, Data: json.RawMessage(strings.Join(data, "\n"))}
					if !yield(ev) {
						return
					}
				}
				name, data = "", nil
				continue
			}

			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				name = value
			case "data":
				data = append(data, value)
			}
		}
		if err := sc.Err(); err != nil {
			logrus.WithError(err).Debug("event stream closed")
		}
	}
}
