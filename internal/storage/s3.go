package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/joseph-ayodele/docparse/internal/common"
	"github.com/joseph-ayodele/docparse/internal/entity"
)

// S3Gateway implements Gateway against S3 or any S3-compatible store (an
// endpoint override switches to path-style addressing for MinIO and friends).
type S3Gateway struct {
	client   *s3.Client
	region   string
	endpoint string
	logger   *slog.Logger
}

func NewS3Gateway(ctx context.Context, cfg common.S3Config, logger *slog.Logger) (*S3Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Gateway{
		client:   client,
		region:   cfg.Region,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		logger:   logger,
	}, nil
}

func (g *S3Gateway) Read(ctx context.Context, loc entity.Location) ([]byte, error) {
	start := time.Now()
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		g.logger.Error("s3.read.failed", "location", loc.String(), "error", err)
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrStorage, loc.String(), err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body of %s: %v", common.ErrStorage, loc.String(), err)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: object %s is empty", common.ErrStorage, loc.String())
	}

	g.logger.Info("s3.read.ok",
		"location", loc.String(),
		"bytes", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

func (g *S3Gateway) Write(ctx context.Context, loc entity.Location, content []byte, contentType string) (string, error) {
	start := time.Now()
	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		g.logger.Error("s3.write.failed", "location", loc.String(), "error", err)
		return "", fmt.Errorf("%w: write %s: %v", common.ErrStorage, loc.String(), err)
	}

	url := g.publicURL(loc)
	g.logger.Info("s3.write.ok",
		"location", loc.String(),
		"bytes", len(content),
		"url", url,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return url, nil
}

// publicURL mirrors the address scheme the service has always reported to
// callers: virtual-host style for AWS proper, path style behind an endpoint
// override.
func (g *S3Gateway) publicURL(loc entity.Location) string {
	if g.endpoint != "" {
		return g.endpoint + "/" + loc.Bucket + "/" + loc.Key
	}
	if g.region == "us-east-1" {
		return "https://s3.amazonaws.com/" + loc.Bucket + "/" + loc.Key
	}
	return "https://s3-" + g.region + ".amazonaws.com/" + loc.Bucket + "/" + loc.Key
}
