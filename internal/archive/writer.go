// Package archive writes the event trail of every finished run to blob
// storage
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gocloud.dev/blob"

	"github.com/kode4food/sequin/pkg/api"
)

type (
	// Writer stores run records as JSON objects in a bucket
	Writer struct {
		bucket BucketWriter
		prefix string
	}

	// BucketWriter is the subset of *blob.Bucket a Writer needs
	BucketWriter interface {
		WriteAll(context.Context, string, []byte, *blob.WriterOptions) error
	}

	// Record is the archived form of one run
	Record struct {
		StartedAt  time.Time       `json:"started_at"`
		FinishedAt time.Time       `json:"finished_at"`
		RunID      api.RunID       `json:"run_id"`
		Workflow   string          `json:"workflow,omitempty"`
		Status     api.EventType   `json:"status"`
		Error      string          `json:"error,omitempty"`
		Events     []*api.RunEvent `json:"events"`
	}
)

const jsonContentType = "application/json"

var (
	ErrBucketRequired = errors.New("bucket is required")
	ErrRecordRequired = errors.New("archive record is required")
)

// NewWriter creates a Writer that places objects under prefix
func NewWriter(bucket BucketWriter, prefix string) (*Writer, error) {
	if bucket == nil {
		return nil, ErrBucketRequired
	}
	return &Writer{
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Write stores rec under <prefix>/runs/<run id>.json
func (w *Writer) Write(ctx context.Context, rec *Record) error {
	if rec == nil {
		return ErrRecordRequired
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	key := BuildKey(w.prefix, rec.RunID)
	return w.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{
		ContentType: jsonContentType,
	})
}

// BuildKey returns the object key a run is archived under
func BuildKey(prefix string, id api.RunID) string {
	key := "runs/" + string(id) + ".json"
	if prefix == "" {
		return key
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + key
}

// NewRecord builds a Record from the events of one run. The last event must
// be terminal
func NewRecord(evs []*api.RunEvent) *Record {
	if len(evs) == 0 {
		return nil
	}
	first := evs[0]
	last := evs[len(evs)-1]
	res := &Record{
		StartedAt:  first.Timestamp,
		FinishedAt: last.Timestamp,
		RunID:      last.RunID,
		Status:     last.Type,
		Error:      last.Error,
		Events:     evs,
	}
	for _, ev := range evs {
		if ev.Workflow != "" {
			res.Workflow = ev.Workflow
			break
		}
	}
	return res
}
