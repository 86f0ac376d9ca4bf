// Package gateway wraps an S3-compatible object store behind the small
// surface the dashboard needs: list the configured bucket, resolve a single
// object's storage class, fetch an object body, and write an object.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Failure taxonomy. Callers classify gateway errors with errors.Is.
var (
	// ErrBackendUnavailable means the bucket listing itself could not be
	// completed (network, auth, or missing bucket).
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrObjectLookupFailed means a per-object metadata or body fetch failed.
	ErrObjectLookupFailed = errors.New("object lookup failed")

	// ErrWriteFailed means an object write was rejected by the backend.
	ErrWriteFailed = errors.New("object write failed")
)

// DefaultStorageClass is reported when the backend omits the storage class,
// which S3-compatible stores do for standard-tier objects.
const DefaultStorageClass = "STANDARD"

// ObjectMeta is one entry from a bucket listing.
type ObjectMeta struct {
	Key          string
	Size         int64
	LastModified time.Time
}

type Config struct {
	// Endpoint is the backend URL, e.g. "https://s3.example.com" or a bare
	// "host:port" (treated as HTTPS-less for local demos).
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Client is a stateless wrapper around one bucket on one endpoint. It holds
// no mutable state and is safe for concurrent use.
type Client struct {
	mc         *minio.Client
	bucket     string
	publicBase string
}

// New constructs a Client from the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name must not be empty")
	}

	host, secure, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", cfg.Endpoint, err)
	}

	mc, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	publicBase := strings.TrimRight(cfg.Endpoint, "/")
	if !strings.Contains(publicBase, "://") {
		publicBase = "http://" + publicBase
	}

	return &Client{
		mc:         mc,
		bucket:     cfg.Bucket,
		publicBase: publicBase,
	}, nil
}

// splitEndpoint reduces an endpoint URL to the host[:port] form minio-go
// expects, plus whether TLS should be used.
func splitEndpoint(endpoint string) (host string, secure bool, err error) {
	if endpoint == "" {
		return "", false, errors.New("endpoint must not be empty")
	}

	if !strings.Contains(endpoint, "://") {
		return endpoint, false, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, err
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("endpoint %q has no host", endpoint)
	}

	return u.Host, u.Scheme == "https", nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// Endpoint returns the backend base URL as configured.
func (c *Client) Endpoint() string {
	return c.publicBase
}

// ListObjects lists every object currently in the bucket, in the order the
// backend returns them. The first listing error aborts the whole call.
func (c *Client) ListObjects(ctx context.Context) ([]ObjectMeta, error) {
	objects := make([]ObjectMeta, 0, 64)

	for obj := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: list objects in %q: %v", ErrBackendUnavailable, c.bucket, obj.Err)
		}
		objects = append(objects, ObjectMeta{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: list objects in %q: %v", ErrBackendUnavailable, c.bucket, err)
	}

	return objects, nil
}

// StorageClass resolves the effective storage class of one object via a
// HEAD-equivalent lookup.
func (c *Client) StorageClass(ctx context.Context, key string) (string, error) {
	info, err := c.mc.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("%w: stat %q: %v", ErrObjectLookupFailed, key, err)
	}

	if info.StorageClass == "" {
		return DefaultStorageClass, nil
	}
	return info.StorageClass, nil
}

// GetObjectBody fetches the full content and declared content type of one
// object.
func (c *Client) GetObjectBody(ctx context.Context, key string) (string, []byte, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", nil, fmt.Errorf("%w: get %q: %v", ErrObjectLookupFailed, key, err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces missing-object errors before we read.
	info, err := obj.Stat()
	if err != nil {
		return "", nil, fmt.Errorf("%w: stat %q: %v", ErrObjectLookupFailed, key, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", nil, fmt.Errorf("%w: read %q: %v", ErrObjectLookupFailed, key, err)
	}

	return info.ContentType, data, nil
}

// PutObject writes an object. There is no retry; the caller surfaces the
// failure to the user.
func (c *Client) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("%w: put %q: %v", ErrWriteFailed, key, err)
	}

	return nil
}

// ObjectURL returns the backend's public URL for an object key, used by
// image previews to reference the object instead of inlining its bytes.
func (c *Client) ObjectURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.publicBase + "/" + c.bucket + "/" + strings.Join(parts, "/")
}
