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

// Sender periodically broadcasts this machine's own interface IPv4
// addresses on every up, non-loopback IPv4 interface.
type Sender struct {
	log  *zap.Logger
	loop *looptask.Loop

	sockets  []senderSocket
	interval time.Duration
}

type senderSocket struct {
	conn      *net.UDPConn
	self      net.IP
	broadcast *net.UDPAddr
}

// NewSender enumerates this machine's interfaces and opens one UDP socket
// per interface, ready to broadcast. interval defaults to
// constants.BroadcastInterval when zero.
func NewSender(log *zap.Logger, interval time.Duration) (*Sender, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if interval == 0 {
		interval = time.Duration(constants.BroadcastInterval) * time.Millisecond
	}

	ifaces, err := upIPv4Interfaces()
	if err != nil {
		return nil, err
	}

	s := &Sender{
		log:      log.With(zap.String("component", "discovery-sender")),
		interval: interval,
	}

	lc := netio.BroadcastListenConfig()
	for _, a := range ifaces {
		laddr := fmt.Sprintf("%s:0", a.ip.String())
		pc, err := lc.ListenPacket(context.Background(), "udp4", laddr)
		if err != nil {
			s.closeAll()
			return nil, err
		}
		conn := pc.(*net.UDPConn)

		s.sockets = append(s.sockets, senderSocket{
			conn: conn,
			self: a.ip,
			broadcast: &net.UDPAddr{
				IP:   a.broadcastAddr(),
				Port: constants.BroadcastPort,
			},
		})
	}

	s.loop = looptask.New(s.broadcastLoop, s.log)
	return s, nil
}

// Run starts the broadcast loop.
func (s *Sender) Run() error {
	return s.loop.Run()
}

// Close stops broadcasting and closes every per-interface socket.
func (s *Sender) Close() error {
	err := s.loop.Close()
	s.closeAll()
	return err
}

func (s *Sender) closeAll() {
	for _, sock := range s.sockets {
		_ = sock.conn.Close()
	}
}

func (s *Sender) broadcastLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		for _, sock := range s.sockets {
			if _, err := sock.conn.WriteToUDP(sock.self.To4(), sock.broadcast); err != nil {
				s.log.Warn("broadcast send failed",
					zap.String("iface_addr", sock.self.String()), zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.interval):
		}
	}
}
