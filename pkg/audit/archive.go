package audit

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"time"

	"github.com/maestroapp/maestro/pkg/storage/postgres"
)

// Archiver writes a batch of expired entries to long-term storage before
// retention deletes them.
type Archiver interface {
	Archive(ctx context.Context, key string, entries []*Entry) error
}

// S3Archiver stores expired audit entries in S3 as gzipped NDJSON objects
type S3Archiver struct {
	client *postgres.S3Client
	prefix string
}

// NewS3Archiver creates an archiver writing under the given key prefix
// (default "audit-logs").
func NewS3Archiver(client *postgres.S3Client, prefix string) *S3Archiver {
	if prefix == "" {
		prefix = "audit-logs"
	}
	return &S3Archiver{client: client, prefix: prefix}
}

// Archive gzips the batch as NDJSON and uploads it under the archive prefix
func (a *S3Archiver) Archive(ctx context.Context, key string, entries []*Entry) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)

	if err := WriteNDJSON(gz, entries); err != nil {
		return fmt.Errorf("failed to encode archive batch: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to compress archive batch: %w", err)
	}

	fullKey := a.prefix + "/" + key
	if err := a.client.PutObject(ctx, fullKey, &buf, "application/gzip"); err != nil {
		return fmt.Errorf("failed to upload archive batch %s: %w", fullKey, err)
	}
	return nil
}

// archiveKey names one archive batch. Batches are grouped by the month of
// the cleanup run so old objects are easy to expire via bucket lifecycle
// rules.
func archiveKey(runTime time.Time, batch int) string {
	return fmt.Sprintf("%s/audit-%s-%04d.ndjson.gz",
		runTime.UTC().Format("2006/01"),
		runTime.UTC().Format("20060102T150405"),
		batch,
	)
}
