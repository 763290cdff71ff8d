package hssp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

const (
	// Offsets shared by every revision.
	offMagic     = 0
	offFileCount = 8
	offVerifier  = 12
	offIV        = 44

	// Legacy (v1-v3) offsets.
	offLegacyChecksum = 4
	offLegacyMainFile = 60

	// v4/v5 offsets.
	offVersion      = 4
	offFlags        = 5
	offCompression  = 60
	offChecksum     = 64
	offTotalFiles   = 68
	offSplitOffset  = 76
	offPrevChecksum = 84
	offNextChecksum = 88
	offSplitID      = 92
	offComment      = 96
	offGenerator    = 112

	textFieldSize = 16
)

// fixedHeader is the decoded form of every header revision. Fields that a
// revision does not store stay zero.
type fixedHeader struct {
	Version      Version
	Flags        headerFlags // v5
	FileCount    uint32
	Verifier     [32]byte
	IV           [16]byte
	Compression  [4]byte // v4/v5
	Checksum     uint32
	TotalFiles   uint64 // v4/v5
	SplitOffset  uint64 // v4/v5
	PrevChecksum uint32 // v4/v5
	NextChecksum uint32 // v4/v5
	SplitID      uint32 // v4/v5
	Comment      string // v4/v5
	Generator    string // v4/v5
	MainFile     uint32 // v1-v3, 1-based, 0 means none
}

// writeFixedHeader encodes h into a freshly allocated header of the size
// h.Version requires.
func writeFixedHeader(h fixedHeader) []byte {
	buf := make([]byte, h.Version.headerSize())
	if h.Version == VersionV1 {
		copy(buf[offMagic:], MagicWFLD[:])
	} else {
		copy(buf[offMagic:], MagicHSSP[:])
	}
	binary.LittleEndian.PutUint32(buf[offFileCount:], h.FileCount)
	copy(buf[offVerifier:offVerifier+32], h.Verifier[:])
	copy(buf[offIV:offIV+16], h.IV[:])

	if h.Version.legacy() {
		binary.LittleEndian.PutUint32(buf[offLegacyChecksum:], h.Checksum)
		binary.LittleEndian.PutUint32(buf[offLegacyMainFile:], h.MainFile)
		return buf
	}

	buf[offVersion] = byte(h.Version)
	if h.Version == VersionV5 {
		buf[offFlags] = h.Flags.pack()
	}
	copy(buf[offCompression:offCompression+4], h.Compression[:])
	binary.LittleEndian.PutUint32(buf[offChecksum:], h.Checksum)
	binary.LittleEndian.PutUint64(buf[offTotalFiles:], h.TotalFiles)
	binary.LittleEndian.PutUint64(buf[offSplitOffset:], h.SplitOffset)
	binary.LittleEndian.PutUint32(buf[offPrevChecksum:], h.PrevChecksum)
	binary.LittleEndian.PutUint32(buf[offNextChecksum:], h.NextChecksum)
	binary.LittleEndian.PutUint32(buf[offSplitID:], h.SplitID)
	copy(buf[offComment:offComment+textFieldSize], h.Comment)
	copy(buf[offGenerator:offGenerator+textFieldSize], h.Generator)
	return buf
}

// readFixedHeader decodes the header of buf as revision v.
func readFixedHeader(v Version, buf []byte) (fixedHeader, error) {
	if !v.Valid() {
		return fixedHeader{}, &VersionError{Byte: byte(v)}
	}
	size := v.headerSize()
	if len(buf) < size {
		return fixedHeader{}, fmt.Errorf("%w: need %d bytes for %s header, have %d", ErrInvalidHeader, size, v, len(buf))
	}
	want := MagicHSSP
	if v == VersionV1 {
		want = MagicWFLD
	}
	if !bytes.Equal(buf[offMagic:offMagic+4], want[:]) {
		return fixedHeader{}, ErrInvalidMagic
	}

	h := fixedHeader{Version: v}
	h.FileCount = binary.LittleEndian.Uint32(buf[offFileCount:])
	copy(h.Verifier[:], buf[offVerifier:offVerifier+32])
	copy(h.IV[:], buf[offIV:offIV+16])

	if v.legacy() {
		h.Checksum = binary.LittleEndian.Uint32(buf[offLegacyChecksum:])
		h.MainFile = binary.LittleEndian.Uint32(buf[offLegacyMainFile:])
		return h, nil
	}

	if got := Version(buf[offVersion]); got != v {
		return fixedHeader{}, fmt.Errorf("%w: version byte %d, expected %d", ErrInvalidHeader, got, v)
	}
	if v == VersionV5 {
		if buf[offFlags]&headerFlagReservedMask != 0 {
			return fixedHeader{}, fmt.Errorf("%w: reserved flag bits set (%#02x)", ErrInvalidHeader, buf[offFlags])
		}
		h.Flags = unpackHeaderFlags(buf[offFlags])
	}
	copy(h.Compression[:], buf[offCompression:offCompression+4])
	h.Checksum = binary.LittleEndian.Uint32(buf[offChecksum:])
	h.TotalFiles = binary.LittleEndian.Uint64(buf[offTotalFiles:])
	h.SplitOffset = binary.LittleEndian.Uint64(buf[offSplitOffset:])
	h.PrevChecksum = binary.LittleEndian.Uint32(buf[offPrevChecksum:])
	h.NextChecksum = binary.LittleEndian.Uint32(buf[offNextChecksum:])
	h.SplitID = binary.LittleEndian.Uint32(buf[offSplitID:])
	h.Comment = readTextField(buf[offComment : offComment+textFieldSize])
	h.Generator = readTextField(buf[offGenerator : offGenerator+textFieldSize])
	return h, nil
}

// readTextField returns the zero-padded UTF-8 text in b.
func readTextField(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func validateTextField(name, s string) error {
	if len(s) > textFieldSize {
		return fmt.Errorf("%w: %s is %d bytes, at most %d fit", ErrValidation, name, len(s), textFieldSize)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrValidation, name)
	}
	if bytes.IndexByte([]byte(s), 0) >= 0 {
		return fmt.Errorf("%w: %s contains a NUL byte", ErrValidation, name)
	}
	return nil
}

// encrypted reports whether the body is encrypted. v5 uses its flag; older
// revisions signal encryption with a non-zero verifier or IV.
func (h fixedHeader) encrypted() bool {
	if h.Version == VersionV5 {
		return h.Flags.Encrypted
	}
	return h.Verifier != [32]byte{} || h.IV != [16]byte{}
}

// split reports whether the archive is a volume of a split set.
func (h fixedHeader) split() bool {
	switch {
	case h.Version == VersionV5:
		return h.Flags.Split
	case h.Version == VersionV4:
		return h.TotalFiles != 0
	}
	return false
}

// compressionName resolves the compression code of h against r. Legacy
// revisions are never compressed; v5 ignores the code unless its flag is set
// and then rejects "NONE".
func (h fixedHeader) compressionName(r *Registry) (string, error) {
	switch {
	case h.Version.legacy():
		return "", nil
	case h.Version == VersionV5 && !h.Flags.Compressed:
		return "", nil
	case h.Version == VersionV5 && string(h.Compression[:]) == NoCompression:
		return "", &UnknownCompressionError{Code: NoCompression}
	}
	return r.NameForCode(h.Compression)
}
