//go:build windows

package netio

import "syscall"

func setBroadcast(network, address string, c syscall.RawConn) error {
	return nil
}
