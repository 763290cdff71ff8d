package hssp

import "time"

// Version identifies an HSSP on-disk revision.
type Version uint8

const (
	VersionV1 Version = 1 // "wfld"
	VersionV2 Version = 2 // "rfld"
	VersionV3 Version = 3 // "dhdr"
	VersionV4 Version = 4 // "idxd"
	VersionV5 Version = 5 // "flgd"

	// LatestVersion is used by Create when no version is requested.
	LatestVersion = VersionV5
)

func (v Version) String() string {
	switch v {
	case VersionV1:
		return "v1 (wfld)"
	case VersionV2:
		return "v2 (rfld)"
	case VersionV3:
		return "v3 (dhdr)"
	case VersionV4:
		return "v4 (idxd)"
	case VersionV5:
		return "v5 (flgd)"
	}
	return "unknown"
}

// Valid reports whether v is a known revision.
func (v Version) Valid() bool { return v >= VersionV1 && v <= VersionV5 }

// legacy reports whether v uses the interleaved v1-v3 body layout.
func (v Version) legacy() bool { return v < VersionV4 }

// headerSize returns the fixed header size for v.
func (v Version) headerSize() int {
	if v == VersionV1 || v == VersionV2 {
		return legacyHeaderSize
	}
	return headerSize
}

// Magic values.
var (
	MagicWFLD = [4]byte{'S', 'F', 'A', 0}
	MagicHSSP = [4]byte{'H', 'S', 'S', 'P'}
)

const (
	legacyHeaderSize = 64
	headerSize       = 128

	// Generator is written to the generator field of v4 and v5 headers.
	Generator = "go-hssp 1.0"

	// MaxPermissions is the largest representable unix permission set (0o777).
	MaxPermissions = 0o777

	// maxTimestamp is the largest millisecond timestamp that fits the 48-bit index field.
	maxTimestamp = 1<<48 - 1
)

// Attributes holds the per-file metadata stored in the archive index.
//
// Legacy revisions (v1-v3) only persist IsDirectory and IsMainFile; all other
// fields are decoded as their defaults.
type Attributes struct {
	Owner   string
	Group   string
	WebLink string

	// Timestamps are stored with millisecond resolution in 48 bits. The zero
	// time is stored as 0 and decodes back to the zero time.
	Created  time.Time
	Modified time.Time
	Accessed time.Time

	// Permissions is a 9-bit unix rwx set (0 to 0o777).
	Permissions uint16

	IsDirectory   bool
	IsHidden      bool
	IsSystem      bool
	EnableBackup  bool
	RequireBackup bool
	IsReadOnly    bool
	IsMainFile    bool

	// PreMissingBytes and AfterMissingBytes are never written. They are set when
	// parsing a volume of a split set and count the bytes of this file that live
	// in earlier and later volumes respectively.
	PreMissingBytes   uint64
	AfterMissingBytes uint64
}

// DefaultAttributes returns the attributes a file gets when none are given.
func DefaultAttributes() Attributes {
	return Attributes{EnableBackup: true}
}

// File is a single archive entry. Contents is nil for directories.
type File struct {
	Path       string
	Contents   []byte
	Attributes Attributes
}

// NewFile returns a regular file entry with default attributes.
func NewFile(path string, contents []byte) File {
	return File{Path: path, Contents: contents, Attributes: DefaultAttributes()}
}

// NewDirectory returns a directory entry with default attributes.
func NewDirectory(path string) File {
	a := DefaultAttributes()
	a.IsDirectory = true
	return File{Path: path, Attributes: a}
}

// size returns the number of content bytes f contributes to the body.
func (f File) size() uint64 {
	if f.Attributes.IsDirectory {
		return 0
	}
	return uint64(len(f.Contents))
}

// clone returns a deep copy of f's contents so callers never share buffers with
// the codec.
func (f File) clone() File {
	if f.Contents != nil {
		f.Contents = append([]byte{}, f.Contents...)
	}
	return f
}

// Archive is the result of Parse.
type Archive struct {
	Files  []File
	Report Report
}
