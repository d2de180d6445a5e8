package dshot

/*-------------------------------------------------------------
 *
 * Purpose:	DShot 4 bit checksum.
 *
 * Description:	XOR of the three nibbles of the 12 bit data.
 *		Bidirectional DShot sends it inverted, both for the
 *		command frame and for the telemetry reply.
 *
 *--------------------------------------------------------------*/

/*-------------------------------------------------------------
 *
 * Name:	ComputeChecksum
 *
 * Inputs:	data		- 12 bit value.  Higher bits are ignored.
 *		bidirectional	- Invert the result.
 *
 * Returns:	4 bit checksum.
 *
 *--------------------------------------------------------------*/

func ComputeChecksum(data uint16, bidirectional bool) uint8 {
	data &= 0xfff
	var crc = data ^ (data >> 4) ^ (data >> 8)
	if bidirectional {
		crc = ^crc
	}
	return uint8(crc & 0x0f)
}

// ValidateChecksum never fails, a mismatch is just false.
// A received value wider than 4 bits never matches.
func ValidateChecksum(data uint16, received uint8, bidirectional bool) bool {
	return ComputeChecksum(data, bidirectional) == received
}
