package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Name        string   `toml:"name"`
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	DictDir     string   `toml:"dict_dir"`
	MaxUpload   int64    `toml:"max_upload_bytes"`
	// UploadToken, when set, is required on POST /upload_dict.
	UploadToken string       `toml:"upload_token"`
	Export      ExportConfig `toml:"export"`
}

type ExportConfig struct {
	Enabled    bool             `toml:"enabled"`
	Splunk     SplunkConfig     `toml:"splunk"`
	Datadog    DatadogConfig    `toml:"datadog"`
	CloudWatch CloudWatchConfig `toml:"cloudwatch"`
}

type SplunkConfig struct {
	URL        string `toml:"url"`
	Token      string `toml:"token"`
	SourceType string `toml:"sourcetype"`
}

type DatadogConfig struct {
	APIKey  string `toml:"api_key"`
	Intake  string `toml:"intake"`
	Source  string `toml:"source"`
	Service string `toml:"service"`
}

type CloudWatchConfig struct {
	LogGroup  string `toml:"log_group"`
	LogStream string `toml:"log_stream"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
}

const (
	DefaultName      = "fixlens"
	DefaultAddr      = ":8000"
	DefaultDictDir   = "dicts"
	DefaultMaxUpload = 4 << 20
)

// Environment overrides, applied after the file.
const (
	EnvDictDir          = "FIXLENS_DICT_DIR"
	EnvUploadToken      = "FIXLENS_UPLOAD_TOKEN"
	EnvExportEnabled    = "EXPORT_ENABLED"
	EnvSplunkToken      = "SPLUNK_HEC_TOKEN"
	EnvDatadogAPIKey    = "DATADOG_API_KEY"
	EnvCloudWatchRegion = "AWS_REGION"
	EnvCloudWatchURL    = "CLOUDWATCH_ENDPOINT_URL"
)

// DefaultServerConfig is used when no file is given.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Name:      DefaultName,
		Addr:      DefaultAddr,
		DictDir:   DefaultDictDir,
		MaxUpload: DefaultMaxUpload,
	}
}

func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if path != "" {
		if err := loadToml(path, &cfg); err != nil {
			return ServerConfig{}, err
		}
	}
	applyDefaults(&cfg)
	applyEnv(&cfg)
	if err := ValidateServerConfig(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *ServerConfig) {
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = DefaultName
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = DefaultAddr
	}
	if strings.TrimSpace(cfg.DictDir) == "" {
		cfg.DictDir = DefaultDictDir
	}
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = DefaultMaxUpload
	}
}

func applyEnv(cfg *ServerConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvDictDir)); v != "" {
		cfg.DictDir = v
	}
	if v := os.Getenv(EnvUploadToken); v != "" {
		cfg.UploadToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportEnabled)); v != "" {
		cfg.Export.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv(EnvSplunkToken); v != "" {
		cfg.Export.Splunk.Token = v
	}
	if v := os.Getenv(EnvDatadogAPIKey); v != "" {
		cfg.Export.Datadog.APIKey = v
	}
	if v := os.Getenv(EnvCloudWatchRegion); v != "" && cfg.Export.CloudWatch.Region == "" {
		cfg.Export.CloudWatch.Region = v
	}
	if v := os.Getenv(EnvCloudWatchURL); v != "" {
		cfg.Export.CloudWatch.Endpoint = v
	}
}

func ValidateServerConfig(cfg ServerConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("server config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("server config missing addr")
	}
	if err := ValidateSplunk(cfg.Export.Splunk); err != nil {
		return fmt.Errorf("export.splunk invalid: %w", err)
	}
	if err := ValidateCloudWatch(cfg.Export.CloudWatch); err != nil {
		return fmt.Errorf("export.cloudwatch invalid: %w", err)
	}
	return nil
}

// Configured reports whether any Splunk setting is present.
func (c SplunkConfig) Configured() bool {
	return c.URL != "" || c.Token != ""
}

func (c DatadogConfig) Configured() bool {
	return c.APIKey != ""
}

func (c CloudWatchConfig) Configured() bool {
	return c.LogGroup != "" || c.LogStream != ""
}

func ValidateSplunk(cfg SplunkConfig) error {
	if !cfg.Configured() {
		return nil
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return fmt.Errorf("url is required")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return fmt.Errorf("token is required")
	}
	return nil
}

func ValidateCloudWatch(cfg CloudWatchConfig) error {
	if !cfg.Configured() {
		return nil
	}
	if strings.TrimSpace(cfg.LogGroup) == "" {
		return fmt.Errorf("log_group is required")
	}
	if strings.TrimSpace(cfg.LogStream) == "" {
		return fmt.Errorf("log_stream is required")
	}
	return nil
}
