package netio

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"

	"go_lan_transfer/xerr"
)

// Dial connects to address:port, applying the default socket buffer sizes
// and, when dscp is non-zero, tagging the connection's TOS byte for QoS.
func Dial(ctx context.Context, address string, port int, dscp int) (net.Conn, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", address, port))
	if err != nil {
		return nil, xerr.Wrap(xerr.Io, err, "dial")
	}

	tuneConn(conn)

	if dscp != 0 {
		if err := ipv4.NewConn(conn).SetTOS(dscp); err != nil {
			// DSCP is best-effort QoS, not correctness: log-worthy to the
			// caller but not fatal to the connection.
			_ = err
		}
	}

	return conn, nil
}
