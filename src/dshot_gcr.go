package dshot

/*-------------------------------------------------------------
 *
 * Purpose:	Group Coded Recording used by bidirectional DShot
 *		telemetry.
 *
 * Description:	The 16 bit telemetry word is sent as four 5 bit GCR
 *		groups.  The 20 GCR bits are then sent so that a 1 is
 *		a change of line level and a 0 is no change.
 *
 *		Receive side:
 *
 *			line bits x  ->  d = x ^ (x >> 1)  ->  4 groups
 *			->  table lookup  ->  4 nibbles  ->  16 bits
 *
 *		Only 16 of the 32 possible groups are used.  The rest
 *		can only come from a corrupted reply.
 *
 *--------------------------------------------------------------*/

const GCR_GROUP_BITS = 5
const GCR_GROUPS = 4
const GCR_DATA_BITS = GCR_GROUP_BITS * GCR_GROUPS // 20

const gcrDataMask = (1 << GCR_DATA_BITS) - 1

// 4 bit nibble to 5 bit group.
var gcr_encode_table = [16]uint8{
	0x19, 0x1b, 0x12, 0x13, 0x1d, 0x15, 0x16, 0x17,
	0x1a, 0x09, 0x0a, 0x0b, 0x1e, 0x0d, 0x0e, 0x0f,
}

// 5 bit group to 4 bit nibble, -1 for groups that never appear.
var gcr_decode_table = [32]int8{
	-1, -1, -1, -1, -1, -1, -1, -1,
	-1, 0x9, 0xa, 0xb, -1, 0xd, 0xe, 0xf,
	-1, -1, 0x2, 0x3, -1, 0x5, 0x6, 0x7,
	-1, 0x0, 0x8, 0x1, -1, 0x4, 0xc, -1,
}

/*-------------------------------------------------------------
 *
 * Name:	GCRDecodeGroup
 *
 * Purpose:	Look up one 5 bit group.
 *
 * Returns:	4 bit nibble, or ok false if the group is not valid.
 *
 *--------------------------------------------------------------*/

func GCRDecodeGroup(group uint8) (uint8, bool) {
	var n = gcr_decode_table[group&0x1f]
	if n < 0 {
		return 0, false
	}
	return uint8(n), true
}

func GCREncodeNibble(nibble uint8) uint8 {
	return gcr_encode_table[nibble&0x0f]
}

// LineToGCR undoes the change-of-level coding.  Only the low 20 bits are used.
func LineToGCR(line uint32) uint32 {
	line &= gcrDataMask
	return line ^ (line >> 1)
}

// GCRToLine is the inverse of LineToGCR.  Each output bit is the XOR of
// the input bit and every bit above it.
func GCRToLine(gcr uint32) uint32 {
	var x = gcr & gcrDataMask
	x ^= x >> 1
	x ^= x >> 2
	x ^= x >> 4
	x ^= x >> 8
	x ^= x >> 16
	return x
}

/*-------------------------------------------------------------
 *
 * Name:	GCRDecode
 *
 * Purpose:	Turn 20 GCR bits back into the 16 bit telemetry word.
 *
 * Inputs:	gcr	- GCR bits, after LineToGCR.
 *
 * Returns:	16 bit value, most significant nibble from the
 *		most significant group.
 *		*GCRDecodeError for the first group not in the table.
 *
 *--------------------------------------------------------------*/

func GCRDecode(gcr uint32) (uint16, error) {
	var out uint16

	for g := range GCR_GROUPS {
		var shift = uint((GCR_GROUPS - 1 - g) * GCR_GROUP_BITS)
		var group = uint8((gcr >> shift) & 0x1f)

		var nibble, ok = GCRDecodeGroup(group)
		if !ok {
			return 0, &GCRDecodeError{Pattern: group, Group: g}
		}
		out = (out << 4) | uint16(nibble)
	}

	return out, nil
}

// GCREncode is the inverse of GCRDecode.
func GCREncode(value uint16) uint32 {
	var out uint32
	for g := range GCR_GROUPS {
		var nibble = uint8(value>>uint((GCR_GROUPS-1-g)*4)) & 0x0f
		out = (out << GCR_GROUP_BITS) | uint32(GCREncodeNibble(nibble))
	}
	return out
}
