package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	gstorage "cloud.google.com/go/storage"
)

// GCS writes snapshots to a Google Cloud Storage bucket.
type GCS struct {
	client *gstorage.Client
	bucket string
	prefix string
}

// NewGCS wires the store to an existing client. The prefix, when set, is
// prepended to every object name.
func NewGCS(client *gstorage.Client, bucket, prefix string) (*GCS, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &GCS{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

func (s *GCS) Save(ctx context.Context, name string, data []byte) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("snapshot name is required")
	}
	object := name
	if s.prefix != "" {
		object = s.prefix + "/" + name
	}

	writer := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	writer.ContentType = "text/html"
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return fmt.Errorf("copy snapshot: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("copy snapshot: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}
