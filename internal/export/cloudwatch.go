package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

const DefaultCloudWatchRegion = "eu-west-1"

type CloudWatchConfig struct {
	LogGroup  string
	LogStream string
	Region    string
	// Endpoint overrides the service endpoint, e.g. a localstack URL.
	Endpoint string
}

// CloudWatchAPI is the subset of the CloudWatch Logs client used by CloudWatchSink.
type CloudWatchAPI interface {
	CreateLogGroup(ctx context.Context, in *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, in *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, in *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// CloudWatchSink writes events as JSON log lines to a CloudWatch Logs stream.
type CloudWatchSink struct {
	cfg    CloudWatchConfig
	client CloudWatchAPI
	now    func() time.Time

	mu    sync.Mutex
	ready bool
}

// NewCloudWatchSink builds a sink from the default AWS credential chain.
func NewCloudWatchSink(ctx context.Context, cfg CloudWatchConfig) (*CloudWatchSink, error) {
	if cfg.Region == "" {
		cfg.Region = DefaultCloudWatchRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("export: load aws config: %w", err)
	}
	client := cloudwatchlogs.NewFromConfig(awsCfg, func(o *cloudwatchlogs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewCloudWatchSinkWithClient(cfg, client)
}

func NewCloudWatchSinkWithClient(cfg CloudWatchConfig, client CloudWatchAPI) (*CloudWatchSink, error) {
	if strings.TrimSpace(cfg.LogGroup) == "" || strings.TrimSpace(cfg.LogStream) == "" {
		return nil, errors.New("export: cloudwatch log group and stream are required")
	}
	if client == nil {
		return nil, errors.New("export: cloudwatch client is required")
	}
	return &CloudWatchSink{cfg: cfg, client: client, now: time.Now}, nil
}

func (s *CloudWatchSink) Name() string {
	return "cloudwatch"
}

func (s *CloudWatchSink) Send(ctx context.Context, event Event) error {
	if err := s.ensureStream(ctx); err != nil {
		return err
	}
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("export: encode event: %w", err)
	}
	_, err = s.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(s.cfg.LogGroup),
		LogStreamName: aws.String(s.cfg.LogStream),
		LogEvents: []types.InputLogEvent{{
			Message:   aws.String(string(msg)),
			Timestamp: aws.Int64(s.now().UnixMilli()),
		}},
	})
	if err != nil {
		return fmt.Errorf("export: put log events: %w", err)
	}
	return nil
}

// ensureStream creates the group and stream once; existing ones are accepted.
func (s *CloudWatchSink) ensureStream(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	_, err := s.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(s.cfg.LogGroup),
	})
	if err != nil && !alreadyExists(err) {
		return fmt.Errorf("export: create log group: %w", err)
	}
	_, err = s.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(s.cfg.LogGroup),
		LogStreamName: aws.String(s.cfg.LogStream),
	})
	if err != nil && !alreadyExists(err) {
		return fmt.Errorf("export: create log stream: %w", err)
	}
	s.ready = true
	return nil
}

func alreadyExists(err error) bool {
	var exists *types.ResourceAlreadyExistsException
	return errors.As(err, &exists)
}
