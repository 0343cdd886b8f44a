package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"LiteratureHarvester/internal/ports"
)

// S3Archive stores per-run ingestion deltas as immutable JSON objects
// keyed {prefix}/{date}/page_{n}.json in an S3-compatible bucket.
type S3Archive struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

var _ ports.Archive = (*S3Archive)(nil)

// Options configures the S3 connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// NewS3Archive dials the object store. Empty credentials fall back to the
// environment/IAM chain, matching deployments on instance roles.
func NewS3Archive(opts Options, bucket, prefix string, logger *slog.Logger) (*S3Archive, error) {
	var creds *credentials.Credentials
	if opts.AccessKey != "" {
		creds = credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, "")
	} else {
		creds = credentials.NewEnvAWS()
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("dial object store: %w", err)
	}

	return &S3Archive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}, nil
}

// PageKey builds the object key for one archived delta page.
func PageKey(prefix, date string, page int) string {
	return fmt.Sprintf("%s/%s/page_%d.json", strings.Trim(prefix, "/"), date, page)
}

// PutPage writes one delta page. The body is the JSON array of records
// newly inserted for that date/page in the current run.
func (a *S3Archive) PutPage(ctx context.Context, date string, page int, body []byte) error {
	key := PageKey(a.prefix, date, page)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if a.logger != nil {
		a.logger.Debug("archived page", "key", key, "bytes", len(body))
	}
	return nil
}

// GetObject reads one archived object by its full key.
func (a *S3Archive) GetObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return body, nil
}

// ListKeys enumerates every object under the archive prefix.
func (a *S3Archive) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    a.prefix + "/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", a.prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// RemoveAll deletes every object under the prefix and returns the count.
// Only the gated reset path calls this.
func (a *S3Archive) RemoveAll(ctx context.Context) (int, error) {
	keys, err := a.ListKeys(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		if err := a.client.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("remove %s: %w", key, err)
		}
		removed++
	}
	if a.logger != nil && removed > 0 {
		a.logger.Warn("archive prefix cleared", "prefix", a.prefix, "removed", removed)
	}
	return removed, nil
}
