package main

import (
	"context"
	"flag"

	"github.com/danmuck/fixlens/internal/auth"
	"github.com/danmuck/fixlens/internal/config"
	"github.com/danmuck/fixlens/internal/dicts"
	"github.com/danmuck/fixlens/internal/export"
	"github.com/danmuck/fixlens/internal/observability"
	"github.com/danmuck/fixlens/internal/server"
	"github.com/rs/zerolog/log"
)

func main() {
	observability.InitLogger("fixlensd")
	configPath := flag.String("config", "", "server config path (defaults apply when empty)")
	flag.Parse()

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load server config")
	}
	log.Info().Str("path", *configPath).Str("dict_dir", cfg.DictDir).Msg("loaded server config")

	store := dicts.NewStore(cfg.DictDir)
	dict, err := store.LoadDefault()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load default dictionaries")
	}

	sinks, err := buildSinks(context.Background(), cfg.Export)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure exporters")
	}

	var uploadAuth auth.Validator
	if cfg.UploadToken != "" {
		uploadAuth = auth.StaticToken{Token: cfg.UploadToken}
	}

	srv := server.Appear(server.Options{
		Name:        cfg.Name,
		Addr:        cfg.Addr,
		CorsOrigins: cfg.CorsOrigins,
		Store:       store,
		Dictionary:  dict,
		Exporter:    export.NewDispatcher(cfg.Export.Enabled, sinks...),
		MaxUpload:   cfg.MaxUpload,
		UploadAuth:  uploadAuth,
	})
	if err := srv.Serve(); err != nil {
		log.Fatal().Err(err).Msg("fixlensd stopped")
	}
}

// buildSinks returns a sink for every exporter section that is configured.
func buildSinks(ctx context.Context, cfg config.ExportConfig) ([]export.Sink, error) {
	var sinks []export.Sink
	if cfg.Splunk.Configured() {
		s, err := export.NewSplunkSink(export.SplunkConfig{
			URL:        cfg.Splunk.URL,
			Token:      cfg.Splunk.Token,
			SourceType: cfg.Splunk.SourceType,
		}, nil)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Datadog.Configured() {
		s, err := export.NewDatadogSink(export.DatadogConfig{
			APIKey:  cfg.Datadog.APIKey,
			Intake:  cfg.Datadog.Intake,
			Source:  cfg.Datadog.Source,
			Service: cfg.Datadog.Service,
		}, nil)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.CloudWatch.Configured() {
		s, err := export.NewCloudWatchSink(ctx, export.CloudWatchConfig{
			LogGroup:  cfg.CloudWatch.LogGroup,
			LogStream: cfg.CloudWatch.LogStream,
			Region:    cfg.CloudWatch.Region,
			Endpoint:  cfg.CloudWatch.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	for _, s := range sinks {
		log.Info().Str("sink", s.Name()).Bool("enabled", cfg.Enabled).Msg("exporter configured")
	}
	return sinks, nil
}
