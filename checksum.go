package hssp

import "github.com/spaolacci/murmur3"

// ChecksumSeed seeds the body checksum.
const ChecksumSeed uint32 = 0x31082007

// Checksum returns the MurmurHash3 (x86, 32-bit) of body as stored on disk.
func Checksum(body []byte) uint32 {
	return murmur3.Sum32WithSeed(body, ChecksumSeed)
}
