package core

import "net"

func isIPv4(ip net.IP) bool {
	return ip.To4() != nil
}
