package handsfree

import "github.com/pkg/errors"

// Errors
var (
	ErrAcquisition = errors.New("handsfree: device acquisition failed")
	ErrNotRunning  = errors.New("handsfree: not running")
	ErrUnsupported = errors.New("handsfree: capability is not supported")
)

// IsUnsupported checks whether err has been caused by a missing capability
func IsUnsupported(err error) bool {
	return errors.Cause(err) == ErrUnsupported
}
