package wsframe

import (
	"os"

	"github.com/pkg/errors"
)

// IsWouldBlock reports whether err is a "try again later" signal from the
// stream rather than a failure. The codec returns such errors unchanged and
// stays consistent, so the caller may simply call again once the stream is
// ready.
func IsWouldBlock(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	return isErrnoWouldBlock(err)
}
