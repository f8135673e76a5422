package core

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// MinCount is the smallest number of echo requests a session will send.
// Requested counts below it are silently raised.
const MinCount = 2

// Settings contains all configurable properties of a probe session.
type Settings struct {
	// Count is the number of echo requests sent before the verdict is
	// computed. Values below MinCount are raised to MinCount.
	Count int

	// Interval is the time in milliseconds between two consecutive echo
	// requests. A lost reply does not stall the next request.
	Interval int

	// TTL is the IP Time to Live set on outgoing requests.
	TTL int

	// IsPrivileged defines if privileged (raw ICMP sockets) or unprivileged
	// (datagram-oriented) mode is used.
	IsPrivileged bool

	// LoggingLevel is the level of the session logger, using logrus levels.
	LoggingLevel uint32
}

// DefaultSettings returns the default settings for a probe session.
func DefaultSettings() *Settings {
	return &Settings{
		Count:        MinCount,
		Interval:     1000,
		TTL:          64,
		IsPrivileged: false,
		LoggingLevel: uint32(log.WarnLevel),
	}
}

// validate checks the fields a session cannot silently correct.
func (s *Settings) validate() error {
	if s.Interval <= 0 {
		return fmt.Errorf("interval must be greater than 0, got %d", s.Interval)
	}

	if s.TTL <= 0 || s.TTL > 255 {
		return fmt.Errorf("ttl must be within 1 and 255, got %d", s.TTL)
	}

	return nil
}
