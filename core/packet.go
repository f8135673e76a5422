package core

import (
	"net"
	"time"
)

// rawPacket is one datagram read from the connection, handed by the poller
// to the session loop for matching.
type rawPacket struct {
	content []byte
	length  int
	src     net.Addr
}

// Reply describes one counted echo reply.
type Reply struct {
	// Seq is the sequence number echoed back by the target.
	Seq int

	// Len is the length of the ICMP message, IP header excluded.
	Len int

	// TTL is the remaining time-to-live of the reply datagram. It is only
	// known in privileged mode, where the raw read includes the IPv4 header.
	TTL int

	// Src is the sender of the reply.
	Src net.Addr

	// Time is the elapsed time since the matching request was sent.
	Time time.Duration
}
