package core

// Checksum computes the Internet checksum (RFC 1071) over msg, the full
// ICMP message with its checksum field zeroed.
func Checksum(msg []byte) uint16 {
	var sum uint32

	// sum all 16-bit words, the trailing odd byte is padded with zero
	for i := 0; i < len(msg)-1; i += 2 {
		sum += uint32(msg[i])<<8 | uint32(msg[i+1])
	}
	if len(msg)%2 == 1 {
		sum += uint32(msg[len(msg)-1]) << 8
	}

	// fold the carries back into the low 16 bits
	sum = (sum >> 16) + (sum & 0xffff)
	sum += sum >> 16

	return ^uint16(sum)
}

// ValidateChecksum reports whether msg, an ICMP message carrying its own
// checksum field, sums to the all-ones pattern required by RFC 1071.
func ValidateChecksum(msg []byte) bool {
	var sum uint32

	for i := 0; i < len(msg)-1; i += 2 {
		sum += uint32(msg[i])<<8 | uint32(msg[i+1])
	}
	if len(msg)%2 == 1 {
		sum += uint32(msg[len(msg)-1]) << 8
	}

	sum = (sum >> 16) + (sum & 0xffff)
	sum += sum >> 16

	return uint16(sum) == 0xffff
}
