package hssp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedHeader_RoundTrip(t *testing.T) {
	full := fixedHeader{
		Version:      VersionV5,
		Flags:        headerFlags{Encrypted: true, Compressed: true, Split: true},
		FileCount:    7,
		Verifier:     [32]byte{1, 2, 3},
		IV:           [16]byte{4, 5, 6},
		Compression:  [4]byte{'Z', 'S', 'T', 'D'},
		Checksum:     0xDEADBEEF,
		TotalFiles:   12,
		SplitOffset:  99,
		PrevChecksum: 0x11111111,
		NextChecksum: 0x22222222,
		SplitID:      3,
		Comment:      "sixteen bytes!!!",
		Generator:    Generator,
	}
	{
		buf := writeFixedHeader(full)
		require.Len(t, buf, headerSize)
		got, err := readFixedHeader(VersionV5, buf)
		require.NoError(t, err)
		assert.Equal(t, full, got)
	}
	{
		h := full
		h.Version = VersionV4
		h.Flags = headerFlags{}
		buf := writeFixedHeader(h)
		assert.Zero(t, buf[offFlags])
		got, err := readFixedHeader(VersionV4, buf)
		require.NoError(t, err)
		assert.Equal(t, h, got)
	}
	for _, v := range []Version{VersionV1, VersionV2, VersionV3} {
		h := fixedHeader{Version: v, FileCount: 2, Verifier: [32]byte{9}, IV: [16]byte{8}, Checksum: 42, MainFile: 2}
		buf := writeFixedHeader(h)
		require.Len(t, buf, v.headerSize())
		got, err := readFixedHeader(v, buf)
		require.NoError(t, err)
		assert.Equal(t, h, got)
	}
}

func TestFixedHeader_Layout(t *testing.T) {
	buf := writeFixedHeader(fixedHeader{Version: VersionV1, FileCount: 1, Checksum: 0x04030201, MainFile: 1})
	assert.Equal(t, []byte("SFA\x00\x01\x02\x03\x04\x01\x00\x00\x00"), buf[:12])
	assert.Equal(t, []byte{1, 0, 0, 0}, buf[offLegacyMainFile:])

	buf = writeFixedHeader(fixedHeader{Version: VersionV5, Flags: headerFlags{Compressed: true}, Compression: [4]byte{'L', 'Z', 'M', 'A'}})
	assert.Equal(t, []byte("HSSP\x05\x40"), buf[:6])
	assert.Equal(t, []byte("LZMA"), buf[offCompression:offCompression+4])
}

func TestReadFixedHeader_Errors(t *testing.T) {
	good := writeFixedHeader(fixedHeader{Version: VersionV5, Generator: Generator})
	{
		_, err := readFixedHeader(VersionV5, good[:100])
		require.ErrorIs(t, err, ErrInvalidHeader)
	}
	{
		_, err := readFixedHeader(Version(6), good)
		var ve *VersionError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, byte(6), ve.Byte)
	}
	{
		bad := append([]byte{}, good...)
		copy(bad, "NOPE")
		_, err := readFixedHeader(VersionV5, bad)
		require.ErrorIs(t, err, ErrInvalidMagic)
	}
	{
		// A v1 header is not accepted as v2 and vice versa.
		_, err := readFixedHeader(VersionV1, good)
		require.ErrorIs(t, err, ErrInvalidMagic)
	}
	for _, b := range []byte{0x01, 0x02, 0x04, 0x07} {
		bad := append([]byte{}, good...)
		bad[offFlags] = b
		_, err := readFixedHeader(VersionV5, bad)
		require.ErrorIs(t, err, ErrInvalidHeader, "flags %#02x", b)
	}
	for _, b := range []byte{0x08, 0x10, 0x18} {
		ok := append([]byte{}, good...)
		ok[offFlags] = b
		h, err := readFixedHeader(VersionV5, ok)
		require.NoError(t, err, "flags %#02x", b)
		assert.Equal(t, headerFlags{}, h.Flags)
	}
}

func TestFixedHeader_Methods(t *testing.T) {
	r := DefaultRegistry()
	{
		h := fixedHeader{Version: VersionV4}
		assert.False(t, h.encrypted())
		assert.False(t, h.split())
		h.IV[3] = 1
		h.TotalFiles = 1
		assert.True(t, h.encrypted())
		assert.True(t, h.split())
	}
	{
		// v5 relies on its flags and ignores the zero-padding convention.
		h := fixedHeader{Version: VersionV5, IV: [16]byte{1}, TotalFiles: 3}
		assert.False(t, h.encrypted())
		assert.False(t, h.split())
		h.Flags = headerFlags{Encrypted: true, Split: true}
		assert.True(t, h.encrypted())
		assert.True(t, h.split())
	}
	{
		h := fixedHeader{Version: VersionV3, TotalFiles: 3}
		assert.False(t, h.split())
		name, err := h.compressionName(r)
		require.NoError(t, err)
		assert.Empty(t, name)
	}
	{
		h := fixedHeader{Version: VersionV5, Compression: [4]byte{'Z', 'S', 'T', 'D'}}
		name, err := h.compressionName(r)
		require.NoError(t, err)
		assert.Empty(t, name)

		h.Flags.Compressed = true
		name, err = h.compressionName(r)
		require.NoError(t, err)
		assert.Equal(t, "zstd", name)
	}
	{
		h := fixedHeader{Version: VersionV4, Compression: [4]byte{'N', 'O', 'N', 'E'}}
		name, err := h.compressionName(r)
		require.NoError(t, err)
		assert.Empty(t, name)
	}
}

func TestTextField(t *testing.T) {
	assert.Equal(t, "abc", readTextField([]byte("abc\x00\x00def")))
	assert.Equal(t, "0123456789abcdef", readTextField([]byte("0123456789abcdef")))

	require.NoError(t, validateTextField("comment", "0123456789abcdef"))
	require.ErrorIs(t, validateTextField("comment", "0123456789abcdefg"), ErrValidation)
	require.ErrorIs(t, validateTextField("comment", "a\x00b"), ErrValidation)
	require.ErrorIs(t, validateTextField("comment", "\xff"), ErrValidation)
}
