package blob

import (
	"context"
	"strings"
)

// Credentials address an S3-compatible endpoint.
type Credentials struct {
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

// Missing names the required fields that are empty.
func (c Credentials) Missing() []string {
	var out []string
	if strings.TrimSpace(c.EndpointURL) == "" {
		out = append(out, "endpoint url")
	}
	if strings.TrimSpace(c.AccessKeyID) == "" {
		out = append(out, "access key id")
	}
	if strings.TrimSpace(c.SecretAccessKey) == "" {
		out = append(out, "secret access key")
	}
	return out
}

// Store downloads single objects into a local directory.
type Store interface {
	// Fetch copies bucket/key into destDir under the key's base name and
	// returns the local path.
	Fetch(ctx context.Context, bucket, key, destDir string) (string, error)
}

// Dialer opens a Store for the given credentials.
type Dialer func(ctx context.Context, creds Credentials) (Store, error)
