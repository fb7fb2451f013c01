// Package blob opens dataset files from local disk or S3, transparently
// handling .gz and .zst compression.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// S3API is the subset of the S3 client used for dataset I/O.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Opener reads and writes local paths and s3://bucket/key URIs.
type Opener struct {
	mu     sync.Mutex
	client S3API
}

func NewOpener() *Opener {
	return &Opener{}
}

// NewOpenerWithClient uses client for s3:// URIs instead of the default credential chain.
func NewOpenerWithClient(client S3API) *Opener {
	return &Opener{client: client}
}

// IsS3 reports whether uri names an S3 object.
func IsS3(uri string) bool {
	return strings.HasPrefix(uri, "s3://")
}

func parseS3(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 uri %q: %w", uri, err)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 uri %q: want s3://bucket/key", uri)
	}
	return u.Host, key, nil
}

func (o *Opener) s3Client(ctx context.Context) (S3API, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.client != nil {
		return o.client, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	o.client = s3.NewFromConfig(cfg)
	return o.client, nil
}

// Open returns a reader over the decompressed contents of uri.
func (o *Opener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	var raw io.ReadCloser
	if IsS3(uri) {
		bucket, key, err := parseS3(uri)
		if err != nil {
			return nil, err
		}
		client, err := o.s3Client(ctx)
		if err != nil {
			return nil, err
		}
		out, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", uri, err)
		}
		raw = out.Body
	} else {
		f, err := os.Open(uri)
		if err != nil {
			return nil, err
		}
		raw = f
	}
	return decompress(uri, raw)
}

// Create returns a writer whose contents are compressed according to the
// extension of uri. For S3 the object is uploaded on Close.
func (o *Opener) Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	var raw io.WriteCloser
	if IsS3(uri) {
		bucket, key, err := parseS3(uri)
		if err != nil {
			return nil, err
		}
		client, err := o.s3Client(ctx)
		if err != nil {
			return nil, err
		}
		raw = &s3Writer{ctx: ctx, client: client, bucket: bucket, key: key}
	} else {
		if dir := filepath.Dir(uri); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
		f, err := os.Create(uri)
		if err != nil {
			return nil, err
		}
		raw = f
	}
	return compress(uri, raw)
}

type s3Writer struct {
	ctx    context.Context
	client S3API
	bucket string
	key    string
	buf    bytes.Buffer
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	_, err := w.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", w.bucket, w.key, err)
	}
	return nil
}

type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func decompress(uri string, raw io.ReadCloser) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(uri, ".gz"):
		zr, err := gzip.NewReader(raw)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("gzip %s: %w", uri, err)
		}
		return &readCloser{Reader: zr, closers: []func() error{zr.Close, raw.Close}}, nil
	case strings.HasSuffix(uri, ".zst"):
		zr, err := zstd.NewReader(raw)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("zstd %s: %w", uri, err)
		}
		return &readCloser{Reader: zr, closers: []func() error{func() error { zr.Close(); return nil }, raw.Close}}, nil
	default:
		return raw, nil
	}
}

type writeCloser struct {
	io.Writer
	closers []func() error
}

func (w *writeCloser) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func compress(uri string, raw io.WriteCloser) (io.WriteCloser, error) {
	switch {
	case strings.HasSuffix(uri, ".gz"):
		zw := gzip.NewWriter(raw)
		return &writeCloser{Writer: zw, closers: []func() error{zw.Close, raw.Close}}, nil
	case strings.HasSuffix(uri, ".zst"):
		zw, err := zstd.NewWriter(raw)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("zstd %s: %w", uri, err)
		}
		return &writeCloser{Writer: zw, closers: []func() error{zw.Close, raw.Close}}, nil
	default:
		return raw, nil
	}
}
