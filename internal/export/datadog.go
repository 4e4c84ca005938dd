package export

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultDatadogIntake  = "https://http-intake.logs.datadoghq.com"
	DefaultDatadogSource  = "fix-parser"
	DefaultDatadogService = "fix"
)

type DatadogConfig struct {
	APIKey  string
	Intake  string
	Source  string
	Service string
}

// DatadogSink posts events to the Datadog HTTP log intake.
type DatadogSink struct {
	cfg    DatadogConfig
	client *http.Client
}

func NewDatadogSink(cfg DatadogConfig, client *http.Client) (*DatadogSink, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("export: datadog api key is required")
	}
	if cfg.Intake == "" {
		cfg.Intake = DefaultDatadogIntake
	}
	if cfg.Source == "" {
		cfg.Source = DefaultDatadogSource
	}
	if cfg.Service == "" {
		cfg.Service = DefaultDatadogService
	}
	return &DatadogSink{cfg: cfg, client: httpClient(client)}, nil
}

func (s *DatadogSink) Name() string {
	return "datadog"
}

func (s *DatadogSink) endpoint() string {
	return strings.TrimRight(s.cfg.Intake, "/") + "/v1/input/" + url.PathEscape(s.cfg.APIKey)
}

func (s *DatadogSink) Send(ctx context.Context, event Event) error {
	body := map[string]any{
		"message":    "",
		"ddsource":   s.cfg.Source,
		"service":    s.cfg.Service,
		"attributes": event,
	}
	return postJSON(ctx, s.client, s.endpoint(), nil, body)
}
