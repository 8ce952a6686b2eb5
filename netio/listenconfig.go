package netio

import (
	"net"
	"syscall"
)

// ReuseAddrListenConfig returns a ListenConfig that applies SO_REUSEADDR
// (on non-Windows platforms) to whatever socket it creates, for use with
// both UDP discovery sockets and the TCP acceptor.
func ReuseAddrListenConfig() *net.ListenConfig {
	return &net.ListenConfig{Control: setReuseAddr}
}

// BroadcastListenConfig returns a ListenConfig that applies both
// SO_REUSEADDR and SO_BROADCAST (on non-Windows platforms), for the
// discovery sender's per-interface UDP sockets.
func BroadcastListenConfig() *net.ListenConfig {
	return &net.ListenConfig{Control: combineControl(setReuseAddr, setBroadcast)}
}

func combineControl(fns ...func(network, address string, c syscall.RawConn) error) func(string, string, syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		for _, fn := range fns {
			if err := fn(network, address, c); err != nil {
				return err
			}
		}
		return nil
	}
}
