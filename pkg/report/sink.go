package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/swail/pedcount/pkg/fileutil"
	"github.com/swail/pedcount/pkg/s3store"
)

// Sink stores a named report and returns where it ended up.
type Sink interface {
	Put(ctx context.Context, name, contentType string, body io.Reader) (string, error)
}

// DirSink writes reports into a local directory.
type DirSink struct {
	Dir string
}

// Put writes the report atomically into the directory.
func (s DirSink) Put(_ context.Context, name, _ string, body io.Reader) (string, error) {
	path := filepath.Join(s.Dir, name)
	err := fileutil.WriteTmpThenMove(path, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", tmpPath, err)
		}
		if _, err := io.Copy(f, body); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", tmpPath, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", tmpPath, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// Uploader stores an object in S3. *s3store.Client implements it.
type Uploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) error
}

var _ Uploader = (*s3store.Client)(nil)

// S3Sink uploads reports under a bucket prefix.
type S3Sink struct {
	Uploader Uploader
	Bucket   string
	Prefix   string
}

// Put uploads the report to s3://Bucket/Prefix/name.
func (s S3Sink) Put(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	key := s3store.JoinKey(s.Prefix, name)
	if err := s.Uploader.Upload(ctx, s.Bucket, key, contentType, body); err != nil {
		return "", err
	}
	return fmt.Sprintf("s3://%s/%s", s.Bucket, key), nil
}

// NewSink returns a sink for dest, which is either a local directory or an
// s3://bucket/prefix URI. S3 destinations build a client from opts.
func NewSink(ctx context.Context, dest string, opts s3store.Options) (Sink, error) {
	if !s3store.IsS3URI(dest) {
		return DirSink{Dir: dest}, nil
	}

	bucket, prefix, err := s3store.ParseS3URI(dest)
	if err != nil {
		return nil, fmt.Errorf("parse output URI: %w", err)
	}
	client, err := s3store.NewClient(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}
	return S3Sink{Uploader: client, Bucket: bucket, Prefix: prefix}, nil
}
