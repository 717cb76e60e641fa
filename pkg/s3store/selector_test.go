package s3store

import (
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeEventStream struct {
	events chan types.SelectObjectContentEventStream
	err    error
	closed bool
}

func newFakeEventStream(err error, events ...types.SelectObjectContentEventStream) *fakeEventStream {
	ch := make(chan types.SelectObjectContentEventStream, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return &fakeEventStream{events: ch, err: err}
}

func (s *fakeEventStream) Events() <-chan types.SelectObjectContentEventStream { return s.events }
func (s *fakeEventStream) Close() error                                        { s.closed = true; return nil }
func (s *fakeEventStream) Err() error                                          { return s.err }

func records(p string) *types.SelectObjectContentEventStreamMemberRecords {
	return &types.SelectObjectContentEventStreamMemberRecords{Value: types.RecordsEvent{Payload: []byte(p)}}
}

func drain(t *testing.T, f *eventFragments) ([]string, error) {
	t.Helper()
	var out []string
	for {
		p, err := f.Next()
		if err != nil {
			return out, err
		}
		out = append(out, string(p))
	}
}

func TestEventFragments(t *testing.T) {
	stream := newFakeEventStream(nil,
		&types.SelectObjectContentEventStreamMemberProgress{},
		records("1,a\n2,"),
		records(""),
		&types.SelectObjectContentEventStreamMemberCont{},
		records("b\n"),
		&types.SelectObjectContentEventStreamMemberStats{},
		&types.SelectObjectContentEventStreamMemberEnd{},
	)
	f := newEventFragments(stream)

	got, err := drain(t, f)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("final error = %v, want io.EOF", err)
	}
	if len(got) != 2 || got[0] != "1,a\n2," || got[1] != "b\n" {
		t.Errorf("fragments = %q", got)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !stream.closed {
		t.Error("underlying stream not closed")
	}
}

func TestEventFragmentsWithoutEnd(t *testing.T) {
	f := newEventFragments(newFakeEventStream(nil, records("1,a\n")))
	_, err := drain(t, f)
	if !errors.Is(err, errNoEndEvent) {
		t.Errorf("final error = %v, want errNoEndEvent", err)
	}
}

func TestEventFragmentsStreamError(t *testing.T) {
	streamErr := errors.New("connection reset")
	f := newEventFragments(newFakeEventStream(streamErr, records("1,a\n")))
	_, err := drain(t, f)
	if !errors.Is(err, streamErr) {
		t.Errorf("final error = %v, want %v", err, streamErr)
	}
}
