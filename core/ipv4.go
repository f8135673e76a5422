package core

import (
	"encoding/binary"
	"fmt"
	"net"
)

const (
	ipv4Version = 4

	// IPv4MinHeaderLen is the length of an IPv4 header without options.
	IPv4MinHeaderLen = 20

	// IPv4MaxHeaderLen is the length of an IPv4 header with the maximum
	// 40 bytes of options.
	IPv4MaxHeaderLen = 60
)

// IPv4Header is a read-only view of the IPv4 header prefixing a raw
// datagram. It is parsed once per received datagram, mainly to skip past
// the variable-length header and reach the ICMP payload.
type IPv4Header struct {
	Version       int
	Len           int // header length in bytes, options included
	TOS           int
	TotalLen      int
	ID            int
	DontFragment  bool
	MoreFragments bool
	FragOff       int
	TTL           int
	Protocol      int
	Checksum      int
	Src           net.IP
	Dst           net.IP
}

// ParseIPv4Header decodes the IPv4 header at the start of b. It fails on a
// version other than 4, a header length outside 20-60 bytes and on input
// shorter than the claimed header length.
func ParseIPv4Header(b []byte) (*IPv4Header, error) {
	if len(b) < IPv4MinHeaderLen {
		return nil, fmt.Errorf("truncated IPv4 header: %d bytes of minimum %d", len(b), IPv4MinHeaderLen)
	}

	version := int(b[0] >> 4)
	if version != ipv4Version {
		return nil, fmt.Errorf("unexpected IP version %d", version)
	}

	hlen := int(b[0]&0x0f) << 2
	if hlen < IPv4MinHeaderLen || hlen > IPv4MaxHeaderLen {
		return nil, fmt.Errorf("invalid IPv4 header length %d", hlen)
	}
	if len(b) < hlen {
		return nil, fmt.Errorf("truncated IPv4 options: %d bytes of claimed %d", len(b), hlen)
	}

	return &IPv4Header{
		Version:       version,
		Len:           hlen,
		TOS:           int(b[1]),
		TotalLen:      int(binary.BigEndian.Uint16(b[2:4])),
		ID:            int(binary.BigEndian.Uint16(b[4:6])),
		DontFragment:  b[6]&0x40 != 0,
		MoreFragments: b[6]&0x20 != 0,
		FragOff:       int(binary.BigEndian.Uint16(b[6:8]) & 0x1fff),
		TTL:           int(b[8]),
		Protocol:      int(b[9]),
		Checksum:      int(binary.BigEndian.Uint16(b[10:12])),
		Src:           net.IPv4(b[12], b[13], b[14], b[15]),
		Dst:           net.IPv4(b[16], b[17], b[18], b[19]),
	}, nil
}
