package s3util

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store adapts one S3 client to the pipeline's fetcher and object-store
// collaborators. The same client serves both the source and output buckets;
// the bucket travels with each call.
type Store struct {
	client *s3.Client
}

// NewStore wraps an S3 client for pipeline use.
func NewStore(client *s3.Client) *Store {
	return &Store{client: client}
}

// Fetch downloads bucket/key to a temp file. See DownloadToTempFile.
func (s *Store) Fetch(ctx context.Context, bucket, key string) (string, func(), error) {
	return DownloadToTempFile(ctx, s.client, bucket, key)
}

// Exists reports whether bucket/key is present.
func (s *Store) Exists(ctx context.Context, bucket, key string) (bool, error) {
	return Exists(ctx, s.client, bucket, key)
}

// Put writes data to bucket/key.
func (s *Store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	return Upload(ctx, s.client, bucket, key, data, contentType)
}
