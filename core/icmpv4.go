package core

import (
	"encoding/binary"
	"fmt"
)

// ICMPType is the ICMP type field described in RFC 792.
type ICMPType byte

// Typical values of ICMPType defined in RFC 792.
const (
	ICMPTypeEchoReply      ICMPType = 0
	ICMPTypeDstUnreachable ICMPType = 3
	ICMPTypeSrcQuench      ICMPType = 4
	ICMPTypeRedirect       ICMPType = 5
	ICMPTypeEcho           ICMPType = 8
	ICMPTypeTimeExceeded   ICMPType = 11
	ICMPTypeParamProblem   ICMPType = 12
	ICMPTypeTimestamp      ICMPType = 13
	ICMPTypeTimestampReply ICMPType = 14
	ICMPTypeInfoRequest    ICMPType = 15
	ICMPTypeInfoReply      ICMPType = 16
)

// ICMPHeaderLen is the length of the fixed ICMP header shared by echo
// requests and echo replies.
const ICMPHeaderLen = 8

// ICMPHeader is the fixed 8-byte header carried by both echo requests and
// echo replies. All fields are big-endian on the wire.
type ICMPHeader struct {
	Type     ICMPType
	Code     byte
	Checksum uint16
	ID       uint16
	Seq      uint16
}

// Marshal returns the wire encoding of h, exactly ICMPHeaderLen bytes.
func (h *ICMPHeader) Marshal() []byte {
	b := make([]byte, ICMPHeaderLen)
	b[0] = byte(h.Type)
	b[1] = h.Code
	binary.BigEndian.PutUint16(b[2:4], h.Checksum)
	binary.BigEndian.PutUint16(b[4:6], h.ID)
	binary.BigEndian.PutUint16(b[6:8], h.Seq)
	return b
}

// ParseICMPHeader decodes the fixed ICMP header at the start of b.
func ParseICMPHeader(b []byte) (*ICMPHeader, error) {
	if len(b) < ICMPHeaderLen {
		return nil, fmt.Errorf("truncated ICMP header: %d bytes of minimum %d", len(b), ICMPHeaderLen)
	}

	return &ICMPHeader{
		Type:     ICMPType(b[0]),
		Code:     b[1],
		Checksum: binary.BigEndian.Uint16(b[2:4]),
		ID:       binary.BigEndian.Uint16(b[4:6]),
		Seq:      binary.BigEndian.Uint16(b[6:8]),
	}, nil
}
