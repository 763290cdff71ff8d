package hssp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFiles(t *testing.T) {
	ok := func(files []File, v Version) {
		t.Helper()
		require.NoError(t, validateFiles(files, v, defaultLimits()))
	}
	bad := func(files []File, v Version) {
		t.Helper()
		require.ErrorIs(t, validateFiles(files, v, defaultLimits()), ErrValidation)
	}

	ok(nil, VersionV5)
	ok(sampleFiles(), VersionV5)
	ok(sampleFiles(), VersionV1)

	bad([]File{NewFile("", nil)}, VersionV5)
	bad([]File{NewFile("   ", nil)}, VersionV5)
	bad([]File{NewFile("\xff", nil)}, VersionV5)
	bad([]File{NewFile("a", nil), NewFile("a", nil)}, VersionV5)
	bad([]File{NewFile("//x", nil)}, VersionV2)
	ok([]File{NewFile("//x", nil)}, VersionV5)
	bad([]File{NewFile(strings.Repeat("a", 1<<16), nil)}, VersionV5)
	ok([]File{NewFile(strings.Repeat("a", 1<<16-1), nil)}, VersionV5)
	bad([]File{NewFile(strings.Repeat("a", 1<<16-1), nil)}, VersionV3)

	{
		d := NewDirectory("d")
		d.Contents = []byte("x")
		bad([]File{d}, VersionV5)
	}
	{
		a, b := NewFile("a", nil), NewFile("b", nil)
		a.Attributes.IsMainFile = true
		b.Attributes.IsMainFile = true
		bad([]File{a, b}, VersionV5)
		bad([]File{a, b}, VersionV1)
	}
	{
		f := NewFile("f", nil)
		f.Attributes.Permissions = 0o1000
		bad([]File{f}, VersionV5)
		// Legacy revisions do not store permissions.
		ok([]File{f}, VersionV2)
	}
	{
		f := NewFile("f", nil)
		f.Attributes.Owner = strings.Repeat("o", 1<<16)
		bad([]File{f}, VersionV4)
	}

	err := validateFiles(sampleFiles(), VersionV5, Limits{MaxFiles: 3})
	require.ErrorIs(t, err, ErrLimitExceeded)
}

func TestValidateWriteConfig(t *testing.T) {
	cfg := func(opts ...WriteOption) error {
		return validateWriteConfig(newWriteConfig(opts))
	}
	require.NoError(t, cfg())
	require.NoError(t, cfg(WithVersion(VersionV4), WithCompression("lz4"), WithComment("c")))
	require.ErrorIs(t, cfg(WithVersion(0)), ErrVersionNotSupported)
	require.ErrorIs(t, cfg(WithCompressionLevel(11)), ErrInvalidCompressionLevel)
	require.ErrorIs(t, cfg(WithVersion(VersionV1), WithCompression("lz4")), ErrValidation)
	require.ErrorIs(t, cfg(WithVersion(VersionV1), WithComment("c")), ErrValidation)
	require.ErrorIs(t, cfg(WithComment("bad\x00")), ErrValidation)
}

func TestLimits_WithDefaults(t *testing.T) {
	d := defaultLimits()
	assert.Equal(t, d, Limits{}.withDefaults())
	custom := Limits{MaxFiles: 3, MaxBodySize: 10}
	assert.Equal(t, custom, custom.withDefaults())
	assert.Equal(t, Limits{MaxFiles: 3, MaxBodySize: d.MaxBodySize}, Limits{MaxFiles: 3}.withDefaults())
}

func TestVersion(t *testing.T) {
	for _, v := range allVersions {
		assert.True(t, v.Valid())
		assert.NotEqual(t, "unknown", v.String())
	}
	assert.False(t, Version(0).Valid())
	assert.False(t, Version(6).Valid())
	assert.Equal(t, "unknown", Version(6).String())
	assert.Equal(t, 64, VersionV2.headerSize())
	assert.Equal(t, 128, VersionV3.headerSize())
	assert.True(t, VersionV3.legacy())
	assert.False(t, VersionV4.legacy())
}
