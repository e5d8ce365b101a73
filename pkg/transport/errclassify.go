package transport

import (
	"errors"
	"syscall"
)

// isConnRefused mirrors the syscall-unwrapping idiom used throughout the
// aistore cmn/cos package (IsErrConnectionRefused) for classifying retriable
// connection errors.
func isConnRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
