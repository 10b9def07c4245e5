package emvqr

import (
	"fmt"
	"strings"
)

// crcMarker is the CRC field header: tag 63, length 04.
const crcMarker = "6304"

// CRCResult reports the outcome of a payload checksum verification.
// Expected and Actual are empty when the CRC field is absent.
type CRCResult struct {
	OK       bool
	Expected string
	Actual   string
}

// VerifyCRC locates the mandatory CRC field and recomputes the checksum
// over everything up to and including the field's own tag and length, per
// the EMVCo MPM specification. The 4 hex digits following the marker are
// the embedded checksum; a truncated payload yields whatever digits remain.
// VerifyCRC never fails: a missing or damaged CRC field is an OK=false
// result, not an error.
func VerifyCRC(payload string) CRCResult {
	idx := strings.Index(payload, crcMarker)
	if idx < 0 {
		return CRCResult{}
	}

	data := payload[:idx+len(crcMarker)]
	actual := strings.ToUpper(payload[idx+len(crcMarker):])
	if len(actual) > 4 {
		actual = actual[:4]
	}

	expected := fmt.Sprintf("%04X", Checksum([]byte(data)))
	return CRCResult{OK: expected == actual, Expected: expected, Actual: actual}
}

// Checksum computes CRC-16/CCITT-FALSE: polynomial 0x1021, initial value
// 0xFFFF, MSB first, no final XOR.
func Checksum(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
