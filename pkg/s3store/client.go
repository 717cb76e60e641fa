// Package s3store provides the S3 operations used by pedcount: filtered
// queries over the hosted dataset and uploads of ranking reports.
package s3store

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Options tunes client construction. Credentials always come from the
// default AWS chain (environment, shared config, instance role).
type Options struct {
	// Region overrides the region from the environment or shared config.
	Region string
	// Profile selects a shared config profile.
	Profile string
	// Endpoint overrides the S3 endpoint, for S3-compatible stores.
	Endpoint string
	// PathStyle forces path-style addressing.
	PathStyle bool
}

// Client wraps an S3 client and its upload manager.
type Client struct {
	s3Client *s3.Client
	uploader *manager.Uploader
}

// NewClient creates a client from the default AWS configuration.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewClientWithConfig(cfg, opts), nil
}

// NewClientWithConfig creates a client with a custom AWS config.
func NewClientWithConfig(cfg aws.Config, opts Options) *Client {
	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return &Client{
		s3Client: s3Client,
		uploader: manager.NewUploader(s3Client),
	}
}

// Upload writes body to s3://bucket/key.
func (c *Client) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
