// Package blobsrc reads and writes survey extracts through gocloud.dev/blob,
// so a location may be a local "file://" URL, an "s3://" object, or a
// "gs://" object.
package blobsrc

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver
)

// Object is a single blob addressed by a bucket URL and a key.
type Object struct {
	bucketURL string
	key       string
}

// Parse splits a location such as "s3://bucket/cps/dec21pub.csv?region=us-east-1"
// into its bucket URL ("s3://bucket?region=us-east-1") and key
// ("cps/dec21pub.csv"). For file:// URLs the bucket is the parent directory.
func Parse(location string) (*Object, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("blob: parse %q: %w", location, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("blob: %q has no scheme", location)
	}

	var bucket, key string
	switch u.Scheme {
	case "file":
		dir, base := path.Split(u.Path)
		if base == "" {
			return nil, fmt.Errorf("blob: %q names a directory", location)
		}
		bucket = "file://" + strings.TrimSuffix(dir, "/")
		key = base
	default:
		if u.Host == "" {
			return nil, fmt.Errorf("blob: %q has no bucket", location)
		}
		bucket = u.Scheme + "://" + u.Host
		key = strings.TrimPrefix(u.Path, "/")
		if key == "" {
			return nil, fmt.Errorf("blob: %q has no object key", location)
		}
	}
	if u.RawQuery != "" {
		bucket += "?" + u.RawQuery
	}
	return &Object{bucketURL: bucket, key: key}, nil
}

// BucketURL returns the URL passed to blob.OpenBucket.
func (o *Object) BucketURL() string { return o.bucketURL }

// Key returns the object key within the bucket.
func (o *Object) Key() string { return o.key }

// Open opens the object for reading. Closing the returned reader also closes
// the bucket.
func (o *Object) Open(ctx context.Context) (io.ReadCloser, error) {
	bucket, err := blob.OpenBucket(ctx, o.bucketURL)
	if err != nil {
		return nil, fmt.Errorf("blob: open bucket %s: %w", o.bucketURL, err)
	}
	r, err := bucket.NewReader(ctx, o.key, nil)
	if err != nil {
		bucket.Close()
		return nil, fmt.Errorf("blob: open %s: %w", o.key, err)
	}
	return &bucketReader{Reader: r, bucket: bucket}, nil
}

// Create opens the object for writing. The object becomes visible when the
// returned writer is closed without error.
func (o *Object) Create(ctx context.Context) (io.WriteCloser, error) {
	bucket, err := blob.OpenBucket(ctx, o.bucketURL)
	if err != nil {
		return nil, fmt.Errorf("blob: open bucket %s: %w", o.bucketURL, err)
	}
	w, err := bucket.NewWriter(ctx, o.key, nil)
	if err != nil {
		bucket.Close()
		return nil, fmt.Errorf("blob: create %s: %w", o.key, err)
	}
	return &bucketWriter{Writer: w, bucket: bucket}, nil
}

type bucketReader struct {
	*blob.Reader
	bucket *blob.Bucket
}

func (r *bucketReader) Close() error {
	err := r.Reader.Close()
	if cerr := r.bucket.Close(); err == nil {
		err = cerr
	}
	return err
}

type bucketWriter struct {
	*blob.Writer
	bucket *blob.Bucket
}

func (w *bucketWriter) Close() error {
	err := w.Writer.Close()
	if cerr := w.bucket.Close(); err == nil {
		err = cerr
	}
	return err
}
