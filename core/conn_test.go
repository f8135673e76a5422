package core

import (
	"net"
	"os"
	"sync"
	"time"
)

// fakeConn is an in-memory packetConn. Every written echo request is parsed
// and handed to replyTo, whose returned datagrams become readable, as if the
// network had answered.
type fakeConn struct {
	mu       sync.Mutex
	deadline time.Time
	closed   bool
	sentSeqs []int
	sentPkts [][]byte

	// replyTo builds the datagrams delivered in response to the request
	// with the given sequence number; nil or an empty result means the
	// request goes unanswered.
	replyTo func(seq int) [][]byte

	// writeErr, when set, fails every write.
	writeErr error

	rx chan []byte
}

func newFakeConn(replyTo func(seq int) [][]byte) *fakeConn {
	return &fakeConn{
		replyTo: replyTo,
		rx:      make(chan []byte, 32),
	}
}

func (c *fakeConn) WriteTo(b []byte, dst net.Addr) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}

	hdr, err := ParseICMPHeader(b)
	if err != nil {
		return 0, err
	}

	pkt := make([]byte, len(b))
	copy(pkt, b)

	c.mu.Lock()
	c.sentSeqs = append(c.sentSeqs, int(hdr.Seq))
	c.sentPkts = append(c.sentPkts, pkt)
	c.mu.Unlock()

	if c.replyTo != nil {
		for _, reply := range c.replyTo(int(hdr.Seq)) {
			c.rx <- reply
		}
	}

	return len(b), nil
}

func (c *fakeConn) ReadFrom(b []byte) (int, net.Addr, error) {
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()

	select {
	case pkt := <-c.rx:
		n := copy(b, pkt)
		return n, &net.IPAddr{IP: net.IPv4(127, 0, 0, 1)}, nil
	case <-time.After(time.Until(deadline)):
		return 0, nil, &net.OpError{Op: "read", Net: "ip4:icmp", Err: os.ErrDeadlineExceeded}
	}
}

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) sent() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.sentSeqs...)
}
