package tool

import "net"

// isBlockedIP is the "public address" predicate: blocks
// unspecified, loopback, private, link-local, broadcast, multicast, CGNAT,
// benchmark, and documentation IPv4 ranges; blocks loopback, multicast,
// ULA, unicast link-local, and documentation IPv6 ranges. An IPv4-mapped
// IPv6 address inherits the IPv4 rules.
func isBlockedIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		return isBlockedIPv4(v4)
	}
	return isBlockedIPv6(ip)
}

func isBlockedIPv4(ip net.IP) bool {
	o := ip.To4()
	if o == nil {
		return true
	}
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() || ip.IsMulticast() {
		return true
	}
	if isIPv4Broadcast(o) || isIPv4CGNAT(o) || isIPv4Benchmark(o) || isIPv4Documentation(o) {
		return true
	}
	if o[0] == 0 {
		return true
	}
	// class E reserved range, 240.0.0.0/4.
	if o[0]&0b1111_0000 == 0b1111_0000 {
		return true
	}
	return false
}

func isIPv4Broadcast(o net.IP) bool {
	return o[0] == 255 && o[1] == 255 && o[2] == 255 && o[3] == 255
}

func isIPv4CGNAT(o net.IP) bool {
	return o[0] == 100 && o[1] >= 64 && o[1] <= 127
}

func isIPv4Benchmark(o net.IP) bool {
	return o[0] == 198 && (o[1] == 18 || o[1] == 19)
}

func isIPv4Documentation(o net.IP) bool {
	return (o[0] == 192 && o[1] == 0 && o[2] == 2) ||
		(o[0] == 198 && o[1] == 51 && o[2] == 100) ||
		(o[0] == 203 && o[1] == 0 && o[2] == 113)
}

func isBlockedIPv6(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsUnspecified() || ip.IsMulticast() ||
		ip.IsLinkLocalUnicast() || isIPv6UniqueLocal(ip) || isIPv6Documentation(ip) {
		return true
	}
	return false
}

func isIPv6UniqueLocal(ip net.IP) bool {
	return len(ip) == net.IPv6len && ip[0]&0xfe == 0xfc
}

func isIPv6Documentation(ip net.IP) bool {
	return len(ip) == net.IPv6len && ip[0] == 0x20 && ip[1] == 0x01 && ip[2] == 0x0d && ip[3] == 0xb8
}
