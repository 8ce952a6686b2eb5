//go:build windows

package netio

import "syscall"

// setReuseAddr is a no-op on Windows; SO_REUSEADDR is only set on
// non-Windows platforms.
func setReuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}
