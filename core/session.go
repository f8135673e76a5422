package core

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Session owns one probing session against a single IPv4 target: it sends
// echo requests on a fixed cadence, listens for matching replies and keeps
// the counters the final verdict is computed from.
//
// All counters are mutated from the single event loop in Run, so the
// session needs no locking.
type Session struct {
	settings *Settings

	// id tags the echo requests of this session so that concurrently
	// running sessions on the same host do not cross-match replies.
	// It is drawn at random when the session is created.
	id uint16

	// seq is the sequence number of the last sent echo request, 0 before
	// the first send. It never exceeds the effective count.
	seq int

	// numReplies is the number of matching echo replies observed so far.
	numReplies int

	// countedSeq is the last sequence number a reply was counted for,
	// so a duplicated reply is not counted twice.
	countedSeq int

	// timeSent is when the latest echo request went out, the anchor for
	// round-trip times.
	timeSent time.Time

	// addr is the target endpoint, fixed for the session.
	addr net.Addr

	// conn is the transport the session owns for its lifetime. Run opens
	// one when none has been injected.
	conn packetConn

	// logger is an instance of logrus used to log activities related to this session
	logger *log.Logger

	// finishReqs is the channel that will signal a request to end the
	// session run. It is consumed only by the event loop and never
	// closed, so RequestStop can always push into it safely.
	finishReqs chan error

	// stopPolling is closed by the event loop when the session ends, so
	// the poller stops waiting for datagrams.
	stopPolling chan struct{}

	// runErr is the transport error that aborted the session, if any.
	runErr error

	// isStarted contains whether the session has been started
	isStarted bool

	// isFinished contains whether the session has been finished. It is
	// read from the goroutine delivering stop requests, hence atomic.
	isFinished atomic.Bool

	// replyHandlers are the callback functions called when a reply is counted.
	replyHandlers []func(*Session, *Reply)
}

// NewSession creates a new Session probing address, an IPv4 literal.
func NewSession(address string, settings *Settings) (*Session, error) {
	logger := NewLogger(settings.LoggingLevel)

	logger.Debug("Validating settings")

	err := settings.validate()
	if err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	// the session works on its own copy, so coercions below do not leak
	// into the caller's settings
	cfg := *settings

	if cfg.Count < MinCount {
		logger.Debugf("Raising requested count %d to the minimum of %d", cfg.Count, MinCount)
		cfg.Count = MinCount
	}

	ip := net.ParseIP(address)
	if ip == nil || !isIPv4(ip) {
		return nil, fmt.Errorf("target %q is not an IPv4 address", address)
	}

	var addr net.Addr = &net.IPAddr{IP: ip}
	if !cfg.IsPrivileged {
		// The destination must be a net.UDPAddr when the connection is a
		// non-privileged datagram-oriented ICMP endpoint.
		logger.Info("Running as non-privileged, setting address to UDP")
		addr = &net.UDPAddr{IP: ip}
	}

	r := rand.New(rand.NewSource(time.Now().UTC().UnixNano()))

	session := &Session{
		settings:    &cfg,
		id:          newSessionID(r),
		seq:         0,
		addr:        addr,
		logger:      logger,
		finishReqs:  make(chan error, 1),
		stopPolling: make(chan struct{}),
		isStarted:   false,
	}

	logger.Infof("Created session with id %d, addr %s, count %d, interval %dms",
		session.id, session.addr.String(), cfg.Count, cfg.Interval)

	return session, nil
}

// Run executes the sequence of echo requests, blocking until the session
// reaches its terminal state. The transport and timer are released before
// it returns.
func (s *Session) Run() error {
	if s.isFinished.Load() {
		return fmt.Errorf("this session has already finished")
	}
	if s.isStarted {
		return fmt.Errorf("this session has already started")
	}
	s.isStarted = true

	if s.conn == nil {
		conn, err := s.getConnection()
		if err != nil {
			s.isFinished.Store(true)
			return err
		}
		s.conn = conn
	}
	defer s.conn.Close()

	// timer pacing the requests; the first one fires immediately
	s.logger.Debug("Initializing interval timer")
	interval := time.NewTimer(0)
	defer interval.Stop()

	// channel that will stream all incoming ICMP packets
	s.logger.Debug("Creating channel of incoming raw packets")
	rawPackets := make(chan *rawPacket, 5)
	defer close(rawPackets)

	// start receiving incoming ICMP packets using a waitgroup to properly exit later
	s.logger.Info("Calling goroutine to poll for incoming raw packets")
	var wg sync.WaitGroup
	wg.Add(1)
	go s.pollConnection(&wg, rawPackets)

	for {
		select {
		case <-interval.C:
			s.handleIntervalTimer(interval)
		case raw := <-rawPackets:
			s.handleRawPacket(raw)
		case err := <-s.finishReqs:
			return s.handleFinishRequest(err, &wg)
		}
	}
}

// RequestStop requests the stop of the execution of the session
func (s *Session) RequestStop() {
	if s.isFinished.Load() {
		return
	}

	s.logger.Info("Requesting to end session")
	select {
	case s.finishReqs <- nil:
	default:
		// a finish request is already pending
	}
}

// IsStarted returns whether this session is started
func (s *Session) IsStarted() bool {
	return s.isStarted
}

// IsFinished returns whether this session is finished
func (s *Session) IsFinished() bool {
	return s.isFinished.Load()
}

// Address is the target endpoint of this session
func (s *Session) Address() net.Addr {
	return s.addr
}

// TotalSent is the number of echo requests sent so far
func (s *Session) TotalSent() int {
	return s.seq
}

// NumReplies is the number of matching echo replies counted so far
func (s *Session) NumReplies() int {
	return s.numReplies
}

// Verdict reports whether a strict majority of the session's probes were
// answered. It is meaningful once Run has returned, but can be consulted
// at any point for the replies accumulated so far.
func (s *Session) Verdict() bool {
	return s.numReplies > s.settings.Count/2
}

// AddReplyHandler adds a handler function that will be called whenever a
// matching echo reply is counted
func (s *Session) AddReplyHandler(handler func(*Session, *Reply)) {
	s.replyHandlers = append(s.replyHandlers, handler)
}

// handleIntervalTimer is responsible for handling when the interval timer is
// triggered, either sending the next echo request or, once all of them are
// out and the last interval has elapsed, finishing the session.
func (s *Session) handleIntervalTimer(interval *time.Timer) {
	s.logger.Debug("Interval timer has fired")

	if s.seq >= s.settings.Count {
		s.logger.Info("All requests sent and the last interval has elapsed, requesting to finish the session")
		s.requestFinish()
		return
	}

	if err := s.sendEchoRequest(); err != nil {
		s.logger.Errorf("Could not send echo request: %s", err)
		s.runErr = err
		s.requestFinish()
		return
	}

	s.logger.Debugf("Resetting interval timer to trigger in %s", s.getIntervalDuration())
	interval.Reset(s.getIntervalDuration())
}

// handleRawPacket is responsible for properly handling an incoming raw packet
// from our connection, counting it when it matches the outstanding request.
func (s *Session) handleRawPacket(raw *rawPacket) {
	s.logger.Tracef("Raw packet received: %x", raw.content[:raw.length])

	reply, err := s.parseReply(raw)
	if err != nil {
		// a raw ICMP socket sees all ICMP traffic to the host, so
		// malformed or foreign packets are expected noise
		s.logger.Debugf("Discarding malformed packet: %s", err)
		return
	}

	if reply == nil {
		s.logger.Debug("Received raw packet was not a match")
		return
	}

	if s.countedSeq == reply.Seq {
		s.logger.Debugf("Discarding duplicate reply for sequence number %d", reply.Seq)
		return
	}

	s.countedSeq = reply.Seq
	s.numReplies++
	s.logger.Infof("Counted reply %d of %d for sequence number %d", s.numReplies, s.settings.Count, reply.Seq)

	for _, f := range s.replyHandlers {
		f(s, reply)
	}
}

// requestFinish signals the event loop to end the session. It must only be
// called from the loop itself; dropping the signal when the buffer is full
// is safe, as a finish is then already pending.
func (s *Session) requestFinish() {
	select {
	case s.finishReqs <- nil:
	default:
	}
}

// handleFinishRequest handles when we should finish the session. A non-nil
// err means the poller already returned on a transport error.
func (s *Session) handleFinishRequest(err error, wg *sync.WaitGroup) error {
	s.logger.Info("Finish request received")

	if err == nil {
		err = s.runErr
	}

	close(s.stopPolling) // telling the poller to stop waiting for datagrams
	wg.Wait()            // waiting for polling to return

	s.isFinished.Store(true)
	s.logger.Info("Session ended")
	return err
}

// Returns the interval setting parsed as a duration.
func (s *Session) getIntervalDuration() time.Duration {
	return time.Millisecond * time.Duration(s.settings.Interval)
}

// newSessionID draws a session identifier uniformly over the whole
// 16-bit space.
func newSessionID(r *rand.Rand) uint16 {
	return uint16(r.Uint32())
}
