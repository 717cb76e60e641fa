package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/swail/pedcount/pkg/recordsource"
)

var _ recordsource.Selector = (*Client)(nil)

// errNoEndEvent means the event stream closed without an End event, so the
// result may be truncated.
var errNoEndEvent = errors.New("select event stream closed before end event")

// Select runs an S3 Select query over a headered CSV object and returns the
// Records event payloads as fragments.
func (c *Client) Select(ctx context.Context, req recordsource.SelectRequest) (recordsource.Fragments, error) {
	compression := types.CompressionTypeNone
	if req.Gzip {
		compression = types.CompressionTypeGzip
	}

	out, err := c.s3Client.SelectObjectContent(ctx, &s3.SelectObjectContentInput{
		Bucket:         aws.String(req.Bucket),
		Key:            aws.String(req.Key),
		Expression:     aws.String(req.Expression),
		ExpressionType: types.ExpressionTypeSql,
		InputSerialization: &types.InputSerialization{
			CSV: &types.CSVInput{
				FileHeaderInfo: types.FileHeaderInfoUse,
			},
			CompressionType: compression,
		},
		OutputSerialization: &types.OutputSerialization{
			CSV: &types.CSVOutput{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("select object content s3://%s/%s: %w", req.Bucket, req.Key, err)
	}
	return newEventFragments(out.GetStream()), nil
}

// eventStream is the subset of *s3.SelectObjectContentEventStream used here.
type eventStream interface {
	Events() <-chan types.SelectObjectContentEventStream
	Close() error
	Err() error
}

// eventFragments adapts an S3 Select event stream to recordsource.Fragments.
// Progress, stats and continuation events are skipped.
type eventFragments struct {
	stream eventStream
	ended  bool
}

func newEventFragments(stream eventStream) *eventFragments {
	return &eventFragments{stream: stream}
}

func (f *eventFragments) Next() ([]byte, error) {
	for {
		event, ok := <-f.stream.Events()
		if !ok {
			if err := f.stream.Err(); err != nil {
				return nil, fmt.Errorf("read select event stream: %w", err)
			}
			if !f.ended {
				return nil, errNoEndEvent
			}
			return nil, io.EOF
		}

		switch v := event.(type) {
		case *types.SelectObjectContentEventStreamMemberRecords:
			if len(v.Value.Payload) > 0 {
				return v.Value.Payload, nil
			}
		case *types.SelectObjectContentEventStreamMemberEnd:
			f.ended = true
		}
	}
}

func (f *eventFragments) Close() error {
	if err := f.stream.Close(); err != nil {
		return fmt.Errorf("close select event stream: %w", err)
	}
	return nil
}
