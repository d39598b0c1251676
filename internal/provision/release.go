package provision

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"

	"featurepull/internal/faults"
)

// Releaser remembers local paths created during setup and removes them in
// reverse order. Removing something already gone is not an error, so
// Release may run any number of times.
type Releaser struct {
	paths []string
}

// Track registers path for removal. Duplicates are ignored.
func (r *Releaser) Track(path string) {
	for _, p := range r.paths {
		if p == path {
			return
		}
	}
	r.paths = append(r.paths, path)
}

// Tracked returns the registered paths in registration order.
func (r *Releaser) Tracked() []string {
	return append([]string(nil), r.paths...)
}

func (r *Releaser) Release() error {
	var result *multierror.Error
	for i := len(r.paths) - 1; i >= 0; i-- {
		if err := os.RemoveAll(r.paths[i]); err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: remove %s: %v", faults.ErrCleanup, r.paths[i], err))
		}
	}
	return result.ErrorOrNil()
}
