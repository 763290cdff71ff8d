package hssp

// packBits stores bits MSB-first: bits[0] becomes 0x80, bits[7] becomes 0x01.
// Every flag byte in the format uses this order.
func packBits(bits [8]bool) byte {
	var b byte
	for i, set := range bits {
		if set {
			b |= 0x80 >> i
		}
	}
	return b
}

func unpackBits(b byte) [8]bool {
	var bits [8]bool
	for i := range bits {
		bits[i] = b&(0x80>>i) != 0
	}
	return bits
}

// headerFlags is the v5 feature byte at header offset 5.
type headerFlags struct {
	Encrypted  bool
	Compressed bool
	Split      bool
}

// headerFlagReservedMask covers the bits that must be zero in the v5 feature
// byte. Bits 3 and 4 are tolerated on read: older writers set them to mark the
// first and last volume.
const headerFlagReservedMask = 0x07

func (f headerFlags) pack() byte {
	return packBits([8]bool{f.Encrypted, f.Compressed, f.Split})
}

func unpackHeaderFlags(b byte) headerFlags {
	bits := unpackBits(b)
	return headerFlags{Encrypted: bits[0], Compressed: bits[1], Split: bits[2]}
}

// entryFlags packs the low permission bit and the boolean attributes into the
// second permission byte of an index record.
func (a Attributes) entryFlags() byte {
	return packBits([8]bool{
		a.Permissions&1 != 0,
		a.IsDirectory,
		a.IsHidden,
		a.IsSystem,
		a.EnableBackup,
		a.RequireBackup,
		a.IsReadOnly,
		a.IsMainFile,
	})
}

// setEntryFlags is the inverse of entryFlags given the high permission byte.
func (a *Attributes) setEntryFlags(high, flags byte) {
	bits := unpackBits(flags)
	a.Permissions = uint16(high) << 1
	if bits[0] {
		a.Permissions |= 1
	}
	a.IsDirectory = bits[1]
	a.IsHidden = bits[2]
	a.IsSystem = bits[3]
	a.EnableBackup = bits[4]
	a.RequireBackup = bits[5]
	a.IsReadOnly = bits[6]
	a.IsMainFile = bits[7]
}
