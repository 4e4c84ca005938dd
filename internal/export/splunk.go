package export

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

const DefaultSplunkSourceType = "fix:parsed"

type SplunkConfig struct {
	URL        string
	Token      string
	SourceType string
}

// SplunkSink posts events to a Splunk HTTP Event Collector.
type SplunkSink struct {
	cfg    SplunkConfig
	client *http.Client
	now    func() time.Time
}

func NewSplunkSink(cfg SplunkConfig, client *http.Client) (*SplunkSink, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("export: splunk url and token are required")
	}
	if cfg.SourceType == "" {
		cfg.SourceType = DefaultSplunkSourceType
	}
	return &SplunkSink{cfg: cfg, client: httpClient(client), now: time.Now}, nil
}

func (s *SplunkSink) Name() string {
	return "splunk"
}

func (s *SplunkSink) Send(ctx context.Context, event Event) error {
	body := map[string]any{
		"event":      event,
		"sourcetype": s.cfg.SourceType,
		"time":       float64(s.now().UnixMilli()) / 1000,
	}
	headers := map[string]string{"Authorization": "Splunk " + s.cfg.Token}
	return postJSON(ctx, s.client, s.cfg.URL, headers, body)
}
