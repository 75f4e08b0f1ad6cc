package motor

import "github.com/pkg/errors"

// ErrNotConfigured is returned by configuration accessors before a
// configuration block was loaded.
var ErrNotConfigured = errors.New("motor configuration not loaded")
