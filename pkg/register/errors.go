package register

import "github.com/pkg/errors"

// ErrMalformedConfig is returned when an EEPROM dump cannot be decoded.
var ErrMalformedConfig = errors.New("malformed configuration block")
