package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// sampleIPv4Header returns the bytes of a plain 20-byte IPv4 header of a
// UDP datagram from 192.168.0.1 to 192.168.0.199.
func sampleIPv4Header() []byte {
	return []byte{
		0x45, 0x00, 0x00, 0x73, 0x1c, 0x46, 0x40, 0x00,
		0x40, 0x11, 0xb8, 0x61, 0xc0, 0xa8, 0x00, 0x01,
		0xc0, 0xa8, 0x00, 0xc7,
	}
}

// TestParseIPv4Header checks that all fields of a plain header decode.
func TestParseIPv4Header(t *testing.T) {
	h, err := ParseIPv4Header(sampleIPv4Header())
	assert.NoError(t, err)
	assert.NotNil(t, h)

	assert.Equal(t, 4, h.Version)
	assert.Equal(t, 20, h.Len)
	assert.Equal(t, 0, h.TOS)
	assert.Equal(t, 0x73, h.TotalLen)
	assert.Equal(t, 0x1c46, h.ID)
	assert.True(t, h.DontFragment)
	assert.False(t, h.MoreFragments)
	assert.Equal(t, 0, h.FragOff)
	assert.Equal(t, 64, h.TTL)
	assert.Equal(t, 17, h.Protocol)
	assert.Equal(t, 0xb861, h.Checksum)
	assert.Equal(t, "192.168.0.1", h.Src.String())
	assert.Equal(t, "192.168.0.199", h.Dst.String())
}

// TestParseIPv4HeaderWithOptions checks a header with options decodes with
// the full claimed length.
func TestParseIPv4HeaderWithOptions(t *testing.T) {
	b := sampleIPv4Header()
	b[0] = 0x46 // 24-byte header
	b = append(b, 0x01, 0x01, 0x01, 0x00)

	h, err := ParseIPv4Header(b)
	assert.NoError(t, err)
	assert.Equal(t, 24, h.Len)
}

// TestParseIPv4HeaderWrongVersion checks that a version other than 4 is
// rejected.
func TestParseIPv4HeaderWrongVersion(t *testing.T) {
	b := sampleIPv4Header()
	b[0] = 0x65

	h, err := ParseIPv4Header(b)
	assert.Error(t, err)
	assert.Nil(t, h)
}

// TestParseIPv4HeaderShortInput checks that less than 20 bytes is rejected.
func TestParseIPv4HeaderShortInput(t *testing.T) {
	h, err := ParseIPv4Header(sampleIPv4Header()[:19])
	assert.Error(t, err)
	assert.Nil(t, h)
}

// TestParseIPv4HeaderShortLength checks that a claimed header length below
// the fixed minimum is rejected.
func TestParseIPv4HeaderShortLength(t *testing.T) {
	b := sampleIPv4Header()
	b[0] = 0x44 // claims 16 bytes

	h, err := ParseIPv4Header(b)
	assert.Error(t, err)
	assert.Nil(t, h)
}

// TestParseIPv4HeaderTruncatedOptions checks that input shorter than the
// claimed header length is rejected.
func TestParseIPv4HeaderTruncatedOptions(t *testing.T) {
	b := sampleIPv4Header()
	b[0] = 0x46 // claims 24 bytes, but only 20 present

	h, err := ParseIPv4Header(b)
	assert.Error(t, err)
	assert.Nil(t, h)
}

// TestParseIPv4HeaderFragmentFields checks the fragmentation bits and offset.
func TestParseIPv4HeaderFragmentFields(t *testing.T) {
	b := sampleIPv4Header()
	b[6] = 0x2f // more-fragments set, offset high bits
	b[7] = 0xff

	h, err := ParseIPv4Header(b)
	assert.NoError(t, err)
	assert.False(t, h.DontFragment)
	assert.True(t, h.MoreFragments)
	assert.Equal(t, 0x0fff, h.FragOff)
}
