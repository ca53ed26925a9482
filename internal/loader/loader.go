// Package loader reads workflow definitions from the local filesystem or
// from blob storage
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
	"gopkg.in/yaml.v3"

	"github.com/kode4food/sequin/pkg/api"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// Loader reads workflow documents. With a bucket, every path is a key in
// that bucket. Without one, paths with a URL scheme are opened through
// gocloud and anything else is read from disk relative to the base directory
type Loader struct {
	bucket  *blob.Bucket
	baseDir string
}

var (
	ErrLoadWorkflow     = errors.New("failed to load workflow")
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrEmptyWorkflow    = errors.New("workflow document is empty")
	ErrPathNotAllowed   = errors.New("workflow path must stay under its root")
)

// New creates a Loader that resolves relative local paths against baseDir
func New(baseDir string) *Loader {
	return &Loader{baseDir: baseDir}
}

// NewWithBucket creates a Loader that reads every path as a key in bucket
func NewWithBucket(bucket *blob.Bucket) *Loader {
	return &Loader{bucket: bucket}
}

// Open creates a Loader for the bucket at bucketURL
func Open(ctx context.Context, bucketURL string) (*Loader, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return NewWithBucket(bucket), nil
}

// Load reads and decodes the workflow definition at p
func (l *Loader) Load(
	ctx context.Context, p string,
) (*api.WorkflowDefinition, error) {
	data, err := l.read(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadWorkflow, err)
	}
	return Parse(data)
}

// Close releases the Loader's bucket, if it has one
func (l *Loader) Close() error {
	if l.bucket == nil {
		return nil
	}
	return l.bucket.Close()
}

// Parse decodes a YAML workflow document
func Parse(data []byte) (*api.WorkflowDefinition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrLoadWorkflow, ErrEmptyWorkflow)
	}

	var def api.WorkflowDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadWorkflow, err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadWorkflow, err)
	}
	return &def, nil
}

// CheckPath verifies that p is a plain relative path that stays under the
// base directory or bucket. URLs, absolute paths, and paths that climb out
// through ".." are rejected
func CheckPath(p string) error {
	if _, ok := parseURL(p); ok || !filepath.IsLocal(p) {
		return fmt.Errorf("%w: %q", ErrPathNotAllowed, p)
	}
	return nil
}

func (l *Loader) read(ctx context.Context, p string) ([]byte, error) {
	if l.bucket != nil {
		return readBlob(ctx, l.bucket, strings.TrimPrefix(p, "/"))
	}
	if u, ok := parseURL(p); ok {
		return readURL(ctx, u)
	}

	if !filepath.IsAbs(p) && l.baseDir != "" {
		p = filepath.Join(l.baseDir, p)
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, p)
	}
	return data, err
}

// readURL opens the bucket that holds the object named by u. When u has a
// host, the host names the bucket and the path is the key. Otherwise the
// path's directory is the bucket
func readURL(ctx context.Context, u *url.URL) ([]byte, error) {
	bucketURL := *u
	var key string
	if u.Host != "" {
		key = strings.TrimPrefix(u.Path, "/")
		bucketURL.Path = ""
	} else {
		dir, file := path.Split(u.Path)
		bucketURL.Path = strings.TrimSuffix(dir, "/")
		key = file
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = bucket.Close() }()

	return readBlob(ctx, bucket, key)
}

func readBlob(ctx context.Context, b *blob.Bucket, key string) ([]byte, error) {
	data, err := b.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, key)
		}
		return nil, err
	}
	return data, nil
}

// parseURL reports whether p names a blob URL rather than a local path.
// Single-letter schemes are treated as Windows drive letters
func parseURL(p string) (*url.URL, bool) {
	u, err := url.Parse(p)
	if err != nil || len(u.Scheme) < 2 {
		return nil, false
	}
	return u, true
}
