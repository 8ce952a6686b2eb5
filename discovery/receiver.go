package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"go_lan_transfer/constants"
	"go_lan_transfer/looptask"
	"go_lan_transfer/netio"
)

// Receiver listens for discovery broadcasts and maintains the observable
// peer set. It never adds an address belonging to one of this machine's
// own operational IPv4 interfaces.
type Receiver struct {
	log  *zap.Logger
	loop *looptask.Loop
	conn *net.UDPConn

	peers *PeerSet
}

// NewReceiver binds the discovery UDP socket. Binding happens eagerly so
// Run can be called, and Peers() read from, independently of Run's timing.
func NewReceiver(log *zap.Logger) (*Receiver, error) {
	if log == nil {
		log = zap.NewNop()
	}

	lc := netio.ReuseAddrListenConfig()
	pc, err := lc.ListenPacket(context.Background(), "udp4",
		fmt.Sprintf("0.0.0.0:%d", constants.BroadcastPort))
	if err != nil {
		return nil, err
	}

	r := &Receiver{
		log:   log.With(zap.String("component", "discovery-receiver")),
		conn:  pc.(*net.UDPConn),
		peers: NewPeerSet(),
	}
	r.loop = looptask.New(r.receiveLoop, r.log)
	return r, nil
}

// Peers returns the live peer set.
func (r *Receiver) Peers() *PeerSet {
	return r.peers
}

// Run starts the receive loop.
func (r *Receiver) Run() error {
	return r.loop.Run()
}

// Close stops receiving and closes the socket.
func (r *Receiver) Close() error {
	err := r.loop.Close()
	_ = r.conn.Close()
	return err
}

func (r *Receiver) receiveLoop(ctx context.Context) error {
	closeOnCancel := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = r.conn.Close()
		case <-closeOnCancel:
		}
	}()
	defer close(closeOnCancel)

	buf := make([]byte, 4)
	for {
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.log.Warn("discovery read failed", zap.Error(err))
			continue
		}
		if n != 4 {
			continue
		}

		addr := net.IPv4(buf[0], buf[1], buf[2], buf[3])

		local, err := localIPv4Set()
		if err != nil {
			r.log.Warn("could not enumerate local addresses", zap.Error(err))
			continue
		}
		if _, isLocal := local[addr.String()]; isLocal {
			continue
		}

		r.peers.add(addr, time.Now())
	}
}
