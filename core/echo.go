package core

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/net/icmp"
)

const (
	echoCode                = 0
	icmpPrivilegedNetwork   = "ip4:icmp"
	icmpUnprivilegedNetwork = "udp4"

	// echoPayload is the fixed filler carried by every echo request. Only
	// its length and checksum coverage matter, not the bytes themselves.
	echoPayload = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// maxPacketSize caps a single read. A reply and its headers are
	// expected to fit well within it.
	maxPacketSize = 1024

	// pollReadDeadline bounds each blocking read so the poller can notice
	// a finish request.
	pollReadDeadline = time.Millisecond * 200
)

// listenPacket opens the raw or datagram-oriented ICMP socket. It is a
// variable so tests can exercise transport failures.
var listenPacket = icmp.ListenPacket

// packetConn is the transport a session sends and receives raw datagrams
// through. It is satisfied by *icmp.PacketConn and can be faked in tests.
type packetConn interface {
	WriteTo(b []byte, dst net.Addr) (int, error)
	ReadFrom(b []byte) (int, net.Addr, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// sendEchoRequest builds, checksums and transmits the next echo request.
// It is a no-op once the session has exhausted its probe count.
func (s *Session) sendEchoRequest() error {
	if s.seq >= s.settings.Count {
		return nil
	}
	s.seq++

	hdr := &ICMPHeader{
		Type: ICMPTypeEcho,
		Code: echoCode,
		ID:   s.id,
		Seq:  uint16(s.seq),
	}

	pkt := append(hdr.Marshal(), echoPayload...)
	binary.BigEndian.PutUint16(pkt[2:4], Checksum(pkt))

	s.logger.Infof("Writing echo request %x with sequence number %d to address %s", pkt, s.seq, s.addr.String())

	s.timeSent = time.Now()
	if _, err := s.conn.WriteTo(pkt, s.addr); err != nil {
		return fmt.Errorf("error while sending echo request: %w", err)
	}

	return nil
}

// pollConnection constantly polls the connection and streams every received
// datagram to the session loop, until a finish request arrives.
func (s *Session) pollConnection(wg *sync.WaitGroup, recv chan<- *rawPacket) {
	defer wg.Done()

	for {
		select {
		case <-s.stopPolling:
			s.logger.Info("Session is ending, stopping polling")
			return
		default:
			// a fresh buffer per read, so no stale carryover is ever parsed
			buffer := make([]byte, maxPacketSize)

			if err := s.conn.SetReadDeadline(time.Now().Add(pollReadDeadline)); err != nil {
				s.pollFailed(fmt.Errorf("error while setting read deadline: %w", err))
				return
			}

			s.logger.Trace("Reading from connection")
			length, src, err := s.conn.ReadFrom(buffer)
			if err != nil {
				if neterr, ok := err.(*net.OpError); ok && neterr.Timeout() {
					s.logger.Trace("Read deadline has expired, trying again")
					continue
				}
				s.pollFailed(fmt.Errorf("error while reading from connection: %w", err))
				return
			}

			// sends the packet to the session so it can be checked and processed
			select {
			case recv <- &rawPacket{content: buffer, length: length, src: src}:
			case <-s.stopPolling:
				s.logger.Info("Session is ending, stopping polling")
				return
			}
		}
	}
}

// pollFailed reports a transport error to the session loop. When the buffer
// already holds a finish request the error is dropped, as the session is
// ending anyway.
func (s *Session) pollFailed(err error) {
	s.logger.Errorf("Finishing polling and session: %s", err)
	select {
	case s.finishReqs <- err:
	default:
	}
}

// parseReply decodes one received datagram and matches it against the
// outstanding request. It returns an error for a malformed datagram and
// (nil, nil) for a well-formed one that does not belong to this session;
// both are discarded by the caller.
func (s *Session) parseReply(raw *rawPacket) (*Reply, error) {
	received := time.Now()

	b := raw.content[:raw.length]
	ttl := 0

	// a raw socket delivers the IPv4 header; a datagram socket strips it
	if s.settings.IsPrivileged {
		ipHdr, err := ParseIPv4Header(b)
		if err != nil {
			return nil, err
		}
		ttl = ipHdr.TTL
		b = b[ipHdr.Len:]
	}

	hdr, err := ParseICMPHeader(b)
	if err != nil {
		return nil, err
	}

	if !ValidateChecksum(b) {
		return nil, fmt.Errorf("invalid ICMP checksum %#04x", hdr.Checksum)
	}

	if hdr.Type != ICMPTypeEchoReply {
		s.logger.Debugf("Received message that is not an echo reply, type %d and code %d", hdr.Type, hdr.Code)
		return nil, nil
	}

	// the kernel rewrites the identifier on datagram-oriented sockets, so
	// it is only meaningful in privileged mode
	if s.settings.IsPrivileged && hdr.ID != s.id {
		s.logger.Debugf("Echo reply ID does not match session ID. Expected: %d. Actual: %d.", s.id, hdr.ID)
		return nil, nil
	}

	if int(hdr.Seq) != s.seq {
		s.logger.Debugf("Echo reply sequence number is not the outstanding one. Expected: %d. Actual: %d.", s.seq, hdr.Seq)
		return nil, nil
	}

	return &Reply{
		Seq:  int(hdr.Seq),
		Len:  len(b),
		TTL:  ttl,
		Src:  raw.src,
		Time: received.Sub(s.timeSent),
	}, nil
}

// getConnection returns a configured connection for the session's mode.
func (s *Session) getConnection() (packetConn, error) {
	s.logger.Infof("Starting to listen to packets in network %s", s.getNetwork())

	conn, err := listenPacket(s.getNetwork(), "")
	if err != nil {
		return nil, fmt.Errorf("could not listen to ICMP packets: %w", err)
	}

	s.logger.Infof("Setting TTL of outgoing requests to %d", s.settings.TTL)
	if err := conn.IPv4PacketConn().SetTTL(s.settings.TTL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not set TTL in connection: %w", err)
	}

	s.logger.Debug("Connection to listen to packets successfully created and configured")

	return conn, nil
}

// getNetwork returns the appropriate ICMP network value of the session.
func (s *Session) getNetwork() string {
	if s.settings.IsPrivileged {
		return icmpPrivilegedNetwork
	}

	return icmpUnprivilegedNetwork
}
