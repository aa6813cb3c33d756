// Package s3archive writes a finished Plan's JSON projection to an S3 (or
// S3-compatible) bucket for audit trails, grounded on the teacher's
// internal/objectstore.S3Store (aws-sdk-go-v2 config/credentials loading,
// path-style + custom-endpoint support for MinIO, PutObject).
package s3archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"tavernkit"
)

// Config mirrors the teacher's S3Config shape (region/bucket/credentials/
// endpoint/path-style), trimmed to what the archiver needs.
type Config struct {
	Region       string
	Bucket       string
	Prefix       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// Archiver writes Plan JSON blobs to S3.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// New builds an Archiver from Config.
func New(ctx context.Context, cfg Config) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3archive: bucket is required")
	}
	awsOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3archive: load aws config: %w", err)
	}
	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}
	return &Archiver{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Archive marshals plan and puts it at "{prefix}/{buildID}.json".
func (a *Archiver) Archive(ctx context.Context, buildID string, plan *tavernkit.Plan) error {
	data, err := plan.ToJSON()
	if err != nil {
		return fmt.Errorf("s3archive: marshal plan: %w", err)
	}
	key := buildID + ".json"
	if a.prefix != "" {
		key = a.prefix + "/" + key
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{"archived_at": time.Now().UTC().Format(time.RFC3339)},
	})
	if err != nil {
		return fmt.Errorf("s3archive: put: %w", err)
	}
	return nil
}
