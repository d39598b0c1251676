// Package local serves objects from a directory tree laid out as
// <root>/<bucket>/<key>. It backs file:// endpoints for development runs
// and integration tests.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"featurepull/blob"
)

type Driver struct {
	root string
}

// New returns a driver rooted at dir.
func New(root string) *Driver { return &Driver{root: root} }

// Dial resolves the root from a file:// endpoint URL.
func Dial(_ context.Context, creds blob.Credentials) (blob.Store, error) {
	u, err := url.Parse(creds.EndpointURL)
	if err != nil {
		return nil, blob.Wrap(blob.CodeEndpointUnreachable, false, err)
	}
	if u.Scheme != "file" || u.Path == "" {
		return nil, blob.Wrap(blob.CodeEndpointUnreachable, false,
			fmt.Errorf("local driver wants file:///path, got %q", creds.EndpointURL))
	}
	info, err := os.Stat(u.Path)
	if err != nil || !info.IsDir() {
		return nil, blob.Wrap(blob.CodeEndpointUnreachable, false, fmt.Errorf("root %s is not a directory", u.Path))
	}
	return New(u.Path), nil
}

func (d *Driver) Fetch(ctx context.Context, bucket, key, destDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", blob.Wrap(blob.CodeTimeout, true, err)
	}
	bucketDir := filepath.Join(d.root, bucket)
	if _, err := os.Stat(bucketDir); err != nil {
		return "", blob.Wrap(blob.CodeBucketNotFound, false, err)
	}

	src, err := os.Open(filepath.Join(bucketDir, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", blob.Wrap(blob.CodeObjectNotFound, false, err)
		}
		return "", blob.Wrap(blob.CodePermissionDenied, false, err)
	}
	defer src.Close()

	dest := filepath.Join(destDir, path.Base(key))
	dst, err := os.Create(dest)
	if err != nil {
		return "", blob.Wrap(blob.CodeLocalWriteFailed, false, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", blob.Wrap(blob.CodeLocalWriteFailed, true, err)
	}
	if err := dst.Close(); err != nil {
		return "", blob.Wrap(blob.CodeLocalWriteFailed, true, err)
	}
	return dest, nil
}

func init() { blob.Register("local", Dial) }
