package minio

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"featurepull/blob"
)

// Driver fetches objects from a MinIO/S3 endpoint.
type Driver struct {
	client *minio.Client
}

// Dial builds a minio client. No request is issued until the first Fetch.
func Dial(_ context.Context, creds blob.Credentials) (blob.Store, error) {
	if creds.EndpointURL == "" {
		return nil, blob.Wrap(blob.CodeEndpointUnreachable, true, errors.New("endpoint url is required"))
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return nil, blob.Wrap(blob.CodeAuthInvalid, false, errors.New("credentials are required"))
	}

	endpoint, secure, err := splitEndpoint(creds.EndpointURL)
	if err != nil {
		return nil, blob.Wrap(blob.CodeEndpointUnreachable, true, err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKeyID, creds.SecretAccessKey, ""),
		Secure: secure,
		Region: creds.Region,
	})
	if err != nil {
		return nil, blob.Wrap(blob.CodeEndpointUnreachable, true, fmt.Errorf("create minio client: %w", err))
	}
	return &Driver{client: client}, nil
}

// Fetch downloads bucket/key to destDir/<base(key)>.
func (d *Driver) Fetch(ctx context.Context, bucket, key, destDir string) (string, error) {
	if bucket == "" {
		return "", blob.Wrap(blob.CodeBucketNotFound, false, errors.New("bucket is required"))
	}
	if key == "" {
		return "", blob.Wrap(blob.CodeObjectNotFound, false, errors.New("object key is required"))
	}
	dest := filepath.Join(destDir, path.Base(key))
	if err := d.client.FGetObject(ctx, bucket, key, dest, minio.GetObjectOptions{}); err != nil {
		return "", classify(err)
	}
	return dest, nil
}

// splitEndpoint turns "https://host:9000" into ("host:9000", true).
func splitEndpoint(raw string) (string, bool, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint url: %w", err)
	}
	if u.Host == "" {
		// bare host:port
		return raw, false, nil
	}
	return u.Host, u.Scheme == "https", nil
}

// classify converts minio-go errors into coded blob errors.
func classify(err error) *blob.Error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchBucket":
		return blob.Wrap(blob.CodeBucketNotFound, false, err)
	case "NoSuchKey":
		return blob.Wrap(blob.CodeObjectNotFound, false, err)
	case "AccessDenied":
		return blob.Wrap(blob.CodePermissionDenied, false, err)
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return blob.Wrap(blob.CodeAuthInvalid, false, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return blob.Wrap(blob.CodeTimeout, true, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return blob.Wrap(blob.CodeTimeout, true, err)
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host"):
		return blob.Wrap(blob.CodeEndpointUnreachable, true, err)
	case strings.Contains(msg, "permission denied") || strings.Contains(msg, "read-only file system"):
		return blob.Wrap(blob.CodeLocalWriteFailed, false, err)
	}
	return blob.Wrap(blob.CodeFetchFailed, true, err)
}

func init() { blob.Register("minio", Dial) }
