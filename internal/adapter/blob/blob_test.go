package blob

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*params.Bucket+"/"+*params.Key]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Bucket+"/"+*params.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func roundTrip(t *testing.T, o *Opener, uri string, payload string) {
	t.Helper()
	ctx := context.Background()

	w, err := o.Create(ctx, uri)
	require.NoError(t, err)
	_, err = io.WriteString(w, payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := o.Open(ctx, uri)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestOpener_LocalCompression(t *testing.T) {
	dir := t.TempDir()
	o := NewOpener()
	payload := "Id,Score,Text\n1,5,great\n"

	for _, name := range []string{"plain.csv", "packed.csv.gz", "packed.csv.zst", "nested/dir/out.csv"} {
		t.Run(name, func(t *testing.T) {
			roundTrip(t, o, filepath.Join(dir, name), payload)
		})
	}
}

func TestOpener_S3(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	o := NewOpenerWithClient(fake)

	roundTrip(t, o, "s3://bucket/data/reviews.csv.gz", "a,b\n1,2\n")
	assert.Contains(t, fake.objects, "bucket/data/reviews.csv.gz")
}

func TestParseS3(t *testing.T) {
	bucket, key, err := parseS3("s3://my-bucket/path/to/file.csv")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "path/to/file.csv", key)

	_, _, err = parseS3("s3://bucket-only")
	assert.Error(t, err)
}
