package hssp

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
)

// indexRecordFixedLen is the size of a v4/v5 index record without its strings.
const indexRecordFixedLen = 8 + 2 + 2 + 2 + 4 + 3*6 + 2

// legacyDirPrefix marks directories in v1-v3 records.
const legacyDirPrefix = "//"

// indexEntry is one decoded index record. Size is the declared content length,
// which for a split fragment may exceed the bytes present in the volume.
type indexEntry struct {
	Path       string
	Size       uint64
	Attributes Attributes
}

// appendIndexRecord appends the v4/v5 record of e to dst.
func appendIndexRecord(dst []byte, e indexEntry) []byte {
	a := e.Attributes
	dst = binary.LittleEndian.AppendUint64(dst, e.Size)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(e.Path)))
	dst = append(dst, e.Path...)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(a.Owner)))
	dst = append(dst, a.Owner...)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(a.Group)))
	dst = append(dst, a.Group...)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(a.WebLink)))
	dst = append(dst, a.WebLink...)
	dst = appendTimestamp(dst, a.Created)
	dst = appendTimestamp(dst, a.Modified)
	dst = appendTimestamp(dst, a.Accessed)
	dst = append(dst, byte(a.Permissions>>1), a.entryFlags())
	return dst
}

func indexRecordLen(e indexEntry) int {
	return indexRecordFixedLen + len(e.Path) + len(e.Attributes.Owner) + len(e.Attributes.Group) + len(e.Attributes.WebLink)
}

// appendTimestamp writes t as 6 little-endian bytes of Unix milliseconds.
func appendTimestamp(dst []byte, t time.Time) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], timestampMillis(t))
	return append(dst, buf[:6]...)
}

// timestampMillis truncates t to the 48-bit field. The zero time and instants
// before the epoch are stored as 0.
func timestampMillis(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}
	return uint64(ms) & maxTimestamp
}

func millisTimestamp(ms uint64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms)).UTC()
}

// cursor reads little-endian fields from a body with bounds checks.
type cursor struct {
	b   []byte
	off int
}

func (c *cursor) remaining() int { return len(c.b) - c.off }

func (c *cursor) take(n int, what string) ([]byte, error) {
	if n < 0 || n > c.remaining() {
		return nil, fmt.Errorf("%w: truncated %s at offset %d", ErrInvalidPayload, what, c.off)
	}
	b := c.b[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *cursor) u16(what string) (uint16, error) {
	b, err := c.take(2, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *cursor) u32(what string) (uint32, error) {
	b, err := c.take(4, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) u64(what string) (uint64, error) {
	b, err := c.take(8, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *cursor) timestamp(what string) (time.Time, error) {
	b, err := c.take(6, what)
	if err != nil {
		return time.Time{}, err
	}
	var buf [8]byte
	copy(buf[:], b)
	return millisTimestamp(binary.LittleEndian.Uint64(buf[:])), nil
}

func (c *cursor) str16(what string) (string, error) {
	n, err := c.u16(what + " length")
	if err != nil {
		return "", err
	}
	b, err := c.take(int(n), what)
	return string(b), err
}

// checkSize rejects declared sizes that do not fit an int unless allowUnsafe.
func checkSize(size uint64, allowUnsafe bool) error {
	if size > math.MaxInt && !allowUnsafe {
		return &UnsafeOperationError{Reason: fmt.Sprintf("declared size %d cannot be represented safely", size)}
	}
	return nil
}

// readIndexRecord decodes one v4/v5 record at c.
func readIndexRecord(c *cursor, allowUnsafe bool) (indexEntry, error) {
	var e indexEntry
	var err error
	if e.Size, err = c.u64("content length"); err != nil {
		return e, err
	}
	if err := checkSize(e.Size, allowUnsafe); err != nil {
		return e, err
	}
	if e.Path, err = c.str16("name"); err != nil {
		return e, err
	}
	a := &e.Attributes
	if a.Owner, err = c.str16("owner"); err != nil {
		return e, err
	}
	if a.Group, err = c.str16("group"); err != nil {
		return e, err
	}
	n, err := c.u32("web link length")
	if err != nil {
		return e, err
	}
	link, err := c.take(int(n), "web link")
	if err != nil {
		return e, err
	}
	a.WebLink = string(link)
	if a.Created, err = c.timestamp("created"); err != nil {
		return e, err
	}
	if a.Modified, err = c.timestamp("modified"); err != nil {
		return e, err
	}
	if a.Accessed, err = c.timestamp("accessed"); err != nil {
		return e, err
	}
	perm, err := c.take(2, "permissions")
	if err != nil {
		return e, err
	}
	a.setEntryFlags(perm[0], perm[1])
	return e, nil
}

// readIndex decodes count v4/v5 records from the start of body and returns
// them with the offset where the content region begins.
func readIndex(body []byte, count uint32, allowUnsafe bool) ([]indexEntry, int, error) {
	c := &cursor{b: body}
	entries := make([]indexEntry, 0, min(int(count), len(body)/indexRecordFixedLen+1))
	for i := uint32(0); i < count; i++ {
		e, err := readIndexRecord(c, allowUnsafe)
		if err != nil {
			return nil, 0, fmt.Errorf("index entry %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, c.off, nil
}

// appendLegacyRecord appends a v1-v3 record: length, name length, name, data
// and then as many zero bytes as the name is long.
func appendLegacyRecord(dst []byte, f File) []byte {
	name := f.Path
	if f.Attributes.IsDirectory {
		name = legacyDirPrefix + name
	}
	dst = binary.LittleEndian.AppendUint64(dst, f.size())
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(name)))
	dst = append(dst, name...)
	if !f.Attributes.IsDirectory {
		dst = append(dst, f.Contents...)
	}
	return append(dst, make([]byte, len(name))...)
}

func legacyRecordLen(f File) int {
	n := len(f.Path)
	if f.Attributes.IsDirectory {
		n += len(legacyDirPrefix)
	}
	return 10 + 2*n + int(f.size())
}

// readLegacyBody decodes count interleaved v1-v3 records. mainFile is the
// 1-based header index of the main file, 0 for none.
func readLegacyBody(body []byte, count, mainFile uint32, allowUnsafe bool) ([]File, error) {
	c := &cursor{b: body}
	files := make([]File, 0, min(int(count), len(body)/10+1))
	for i := uint32(0); i < count; i++ {
		size, err := c.u64("content length")
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if err := checkSize(size, allowUnsafe); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		nameLen, err := c.u16("name length")
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		name, err := c.take(int(nameLen), "name")
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if size > uint64(c.remaining()) {
			return nil, fmt.Errorf("record %d: %w: content of %d bytes exceeds body", i, ErrInvalidPayload, size)
		}
		data, _ := c.take(int(size), "content")
		if _, err := c.take(int(nameLen), "name padding"); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		f := File{Path: string(name), Attributes: DefaultAttributes()}
		if strings.HasPrefix(f.Path, legacyDirPrefix) {
			f.Path = strings.TrimPrefix(f.Path, legacyDirPrefix)
			f.Attributes.IsDirectory = true
		} else {
			f.Contents = append([]byte{}, data...)
		}
		files = append(files, f)
	}
	if mainFile > 0 && int(mainFile) <= len(files) {
		files[mainFile-1].Attributes.IsMainFile = true
	}
	return files, nil
}
