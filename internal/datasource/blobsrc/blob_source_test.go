package blobsrc

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in         string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{in: "s3://surveys/cps/dec21pub.csv", wantBucket: "s3://surveys", wantKey: "cps/dec21pub.csv"},
		{in: "s3://surveys/dec21pub.csv?region=us-east-1", wantBucket: "s3://surveys?region=us-east-1", wantKey: "dec21pub.csv"},
		{in: "gs://bucket/a/b.csv.gz", wantBucket: "gs://bucket", wantKey: "a/b.csv.gz"},
		{in: "file:///data/cps/dec19pub.csv", wantBucket: "file:///data/cps", wantKey: "dec19pub.csv"},
		{in: "s3://bucket", wantErr: true},
		{in: "s3:///key.csv", wantErr: true},
		{in: "file:///data/", wantErr: true},
		{in: "plain/path.csv", wantErr: true},
	}
	for _, tc := range cases {
		o, err := Parse(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("Parse(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if o.BucketURL() != tc.wantBucket || o.Key() != tc.wantKey {
			t.Fatalf("Parse(%q) = %q,%q want %q,%q", tc.in, o.BucketURL(), o.Key(), tc.wantBucket, tc.wantKey)
		}
	}
}

// TestFileBlobRoundTrip writes then reads an object through the fileblob driver.
func TestFileBlobRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	o, err := Parse("file://" + filepath.ToSlash(filepath.Join(dir, "dec20pub.csv")))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	w, err := o.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := io.WriteString(w, "HRYEAR4\n2020\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "dec20pub.csv")); err != nil {
		t.Fatalf("object not on disk: %v", err)
	}

	r, err := o.Open(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "HRYEAR4\n2020\n" {
		t.Fatalf("content = %q", b)
	}
}
