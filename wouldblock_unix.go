//go:build unix

package wsframe

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func isErrnoWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
