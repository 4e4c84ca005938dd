// Package export forwards translated messages to external log sinks.
//
// Ownership boundary:
// - sink request shapes (Splunk HEC, Datadog intake, CloudWatch Logs)
// - fan-out and error collection
//
// Export failures are reported to the caller and never change a parse result.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/danmuck/fixlens/internal/observability"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds one sink request, and by default all exports of one
// parse request.
const DefaultTimeout = 10 * time.Second

// Event is the JSON-compatible document sent to sinks.
type Event = map[string]any

// Sink delivers one event to an external backend.
type Sink interface {
	Name() string
	Send(ctx context.Context, event Event) error
}

// Dispatcher fans events out to every configured sink.
type Dispatcher struct {
	enabled bool
	sinks   []Sink
}

func NewDispatcher(enabled bool, sinks ...Sink) *Dispatcher {
	return &Dispatcher{enabled: enabled, sinks: sinks}
}

// Enabled reports whether Export will contact any sink.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.enabled && len(d.sinks) > 0
}

func (d *Dispatcher) Sinks() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Export sends event to every sink concurrently and joins their errors.
// Sinks are not contacted once ctx is done, so callers bound a whole batch with
// one deadline.
func (d *Dispatcher) Export(ctx context.Context, event Event) error {
	if !d.Enabled() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("export: skipped: %w", err)
	}

	errs := make([]error, len(d.sinks))
	var wg sync.WaitGroup
	for i, sink := range d.sinks {
		wg.Add(1)
		go func(i int, sink Sink) {
			defer wg.Done()
			start := time.Now()
			err := sink.Send(ctx, event)
			observability.RecordExport(sink.Name(), err == nil, time.Since(start))
			if err != nil {
				log.Warn().Str("sink", sink.Name()).Err(err).Msg("export failed")
				errs[i] = fmt.Errorf("%s: %w", sink.Name(), err)
				return
			}
			log.Debug().Str("sink", sink.Name()).Msg("export delivered")
		}(i, sink)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// StatusError is returned when a sink answers with a non-2xx status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("export: unexpected status %d: %s", e.Status, e.Body)
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("export: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("export: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("export: post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Status: resp.StatusCode, Body: string(snippet)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: DefaultTimeout}
}
