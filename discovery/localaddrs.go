package discovery

import "net"

// upIPv4Interfaces returns every operationally-up, non-loopback network
// interface along with its IPv4 address and subnet mask.
func upIPv4Interfaces() ([]ifaceAddr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var out []ifaceAddr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}
			out = append(out, ifaceAddr{ip: ip4, mask: ipNet.Mask})
		}
	}
	return out, nil
}

type ifaceAddr struct {
	ip   net.IP
	mask net.IPMask
}

// broadcastAddr computes the network broadcast address for this interface
// address: addr | ~netmask per octet.
func (a ifaceAddr) broadcastAddr() net.IP {
	bcast := make(net.IP, len(a.ip))
	for i := range a.ip {
		bcast[i] = a.ip[i] | ^a.mask[i]
	}
	return bcast
}

// localIPv4Set returns the set of this machine's own operational IPv4
// addresses, used by the receiver to discard self-broadcasts.
func localIPv4Set() (map[string]struct{}, error) {
	ifaces, err := upIPv4Interfaces()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ifaces))
	for _, a := range ifaces {
		set[a.ip.String()] = struct{}{}
	}
	return set, nil
}
