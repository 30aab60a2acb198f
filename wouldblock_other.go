//go:build !unix

package wsframe

func isErrnoWouldBlock(err error) bool {
	return false
}
