package library

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// s3Library serves songs from an S3-compatible object store. The library URL
// has the form s3://endpoint/bucket.
type s3Library struct {
	client *minio.Client
	bucket string
}

func newS3Library(cfg Config) (*s3Library, error) {
	endpoint, bucket, ok := strings.Cut(strings.TrimPrefix(cfg.URL, "s3://"), "/")
	if !ok || bucket == "" {
		return nil, fmt.Errorf("library: s3 URL %s must have the form s3://endpoint/bucket", cfg.URL)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("library: failed to create s3 client: %w", err)
	}

	return &s3Library{
		client: client,
		bucket: bucket,
	}, nil
}

func (l *s3Library) OpenSong(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := l.client.GetObject(ctx, l.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("library: failed to fetch %s: %w", path, err)
	}

	// GetObject is lazy; surface missing objects here instead of on the
	// first read of the response stream.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, notFound(path)
		}
		return nil, fmt.Errorf("library: failed to stat %s: %w", path, err)
	}

	return obj, nil
}
