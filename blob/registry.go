package blob

import (
	"context"
	"fmt"
	"strings"
)

var registry = map[string]Dialer{}

// Register is called from each driver's init().
func Register(name string, d Dialer) {
	registry[name] = d
}

// Lookup returns a driver by name ("minio", "local").
func Lookup(name string) (Dialer, error) {
	if d, ok := registry[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("blob: unsupported driver %q", name)
}

// DriverFor picks the driver name from the endpoint scheme: file:// URLs are
// served from the local filesystem, everything else goes through minio.
func DriverFor(endpointURL string) string {
	if strings.HasPrefix(endpointURL, "file://") {
		return "local"
	}
	return "minio"
}

// Dial is the default Dialer: it resolves the driver for creds.EndpointURL.
func Dial(ctx context.Context, creds Credentials) (Store, error) {
	d, err := Lookup(DriverFor(creds.EndpointURL))
	if err != nil {
		return nil, err
	}
	return d(ctx, creds)
}
