package hssp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// DetectVersion classifies buf by trying each revision in a fixed order:
//
//  1. "SFA\x00" magic: v1
//  2. the checksum at offset 4 matches bytes[64:] and bytes[64:128] are not
//     all zero (or the buffer is shorter than 128 bytes): v2
//  3. bytes[64:128] are all zero: v3
//  4. the version byte at offset 4: 4 or 5
//
// Steps 2 and 3 are heuristics inherited from the legacy revisions; a v1/v2
// buffer whose first 64 body bytes are zero can be misclassified.
func DetectVersion(buf []byte) (Version, error) {
	if len(buf) < legacyHeaderSize {
		return 0, fmt.Errorf("%w: %d bytes is shorter than any header", ErrInvalidHeader, len(buf))
	}
	magic := buf[offMagic : offMagic+4]
	if bytes.Equal(magic, MagicWFLD[:]) {
		return VersionV1, nil
	}
	if !bytes.Equal(magic, MagicHSSP[:]) {
		return 0, ErrInvalidMagic
	}

	region := buf[legacyHeaderSize:min(len(buf), headerSize)]
	short := len(buf) < headerSize
	if binary.LittleEndian.Uint32(buf[offLegacyChecksum:]) == Checksum(buf[legacyHeaderSize:]) && (short || !allZero(region)) {
		return VersionV2, nil
	}
	if !short && allZero(region) {
		return VersionV3, nil
	}
	switch b := buf[offVersion]; Version(b) {
	case VersionV4, VersionV5:
		return Version(b), nil
	default:
		return 0, &VersionError{Byte: b}
	}
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
