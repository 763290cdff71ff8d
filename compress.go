package hssp

import (
	"bytes"
	"fmt"
	"errors"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"
)

// NoCompression is the header code written when the body is not compressed.
const NoCompression = "NONE"

// Codec compresses and decompresses whole bodies. Decompress must not produce
// more than limit bytes; it returns an error wrapping ErrLimitExceeded instead.
type Codec interface {
	Compress(data []byte, level int) ([]byte, error)
	Decompress(data []byte, limit uint64) ([]byte, error)
}

// CodecFuncs adapts a pair of functions to the Codec interface.
type CodecFuncs struct {
	CompressFunc   func(data []byte, level int) ([]byte, error)
	DecompressFunc func(data []byte, limit uint64) ([]byte, error)
}

func (c CodecFuncs) Compress(data []byte, level int) ([]byte, error) {
	return c.CompressFunc(data, level)
}

func (c CodecFuncs) Decompress(data []byte, limit uint64) ([]byte, error) {
	return c.DecompressFunc(data, limit)
}

type registryEntry struct {
	code  [4]byte
	codec Codec
}

// Registry maps algorithm names to 4-byte header codes and codecs. The zero
// value is not usable; use NewRegistry or DefaultRegistry. A Registry is safe
// for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]registryEntry
	byCode map[[4]byte]string
}

// NewRegistry returns a registry that only knows "no compression".
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]registryEntry),
		byCode: make(map[[4]byte]string),
	}
}

// DefaultRegistry returns a new registry holding the built-in algorithms.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, b := range builtinCodecs {
		if err := r.Register(b.name, b.code, b.codec); err != nil {
			panic(err)
		}
	}
	return r
}

var builtinCodecs = []struct {
	name  string
	code  string
	codec Codec
}{
	{"deflate", "DFLT", CodecFuncs{deflateCompress, deflateDecompress}},
	{"gzip", "GZIP", CodecFuncs{gzipCompress, gzipDecompress}},
	{"zstd", "ZSTD", CodecFuncs{zstdCompress, zstdDecompress}},
	{"lz4", "LZ4F", CodecFuncs{lz4Compress, lz4Decompress}},
	{"brotli", "BROT", CodecFuncs{brotliCompress, brotliDecompress}},
	{"lzma", "LZMA", CodecFuncs{lzmaCompress, lzmaDecompress}},
}

// Register adds or replaces an algorithm. code must be exactly 4 ASCII bytes
// other than "NONE" and must not already belong to another name.
func (r *Registry) Register(name, code string, c Codec) error {
	if name == "" || c == nil {
		return fmt.Errorf("%w: compression name and codec are required", ErrValidation)
	}
	if len(code) != 4 || code == NoCompression {
		return fmt.Errorf("%w: invalid compression code %q", ErrValidation, code)
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 0x20 || code[i] > 0x7e {
			return fmt.Errorf("%w: compression code %q must be printable ASCII", ErrValidation, code)
		}
	}
	var k [4]byte
	copy(k[:], code)

	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.byCode[k]; ok && owner != name {
		return fmt.Errorf("%w: compression code %q already used by %q", ErrValidation, code, owner)
	}
	if old, ok := r.byName[name]; ok {
		delete(r.byCode, old.code)
	}
	r.byName[name] = registryEntry{code: k, codec: c}
	r.byCode[k] = name
	return nil
}

// Names lists the registered algorithms in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (registryEntry, error) {
	r.mu.RLock()
	e, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return registryEntry{}, &UnknownCompressionError{Name: name}
	}
	return e, nil
}

// Compress runs the named algorithm. An empty name returns data unchanged.
func (r *Registry) Compress(name string, data []byte, level int) ([]byte, error) {
	if level < MinCompressionLevel || level > MaxCompressionLevel {
		return nil, &CompressionLevelError{Level: level}
	}
	if name == "" {
		return data, nil
	}
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.codec.Compress(data, level)
}

// Decompress reverses Compress, producing at most limit bytes. An empty name
// returns data unchanged.
func (r *Registry) Decompress(name string, data []byte, limit uint64) ([]byte, error) {
	if name == "" {
		if uint64(len(data)) > limit {
			return nil, errBodyLimit(limit)
		}
		return data, nil
	}
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.codec.Decompress(data, limit)
}

// CodeFor returns the header code of name, or "NONE" for an empty name.
func (r *Registry) CodeFor(name string) ([4]byte, error) {
	if name == "" {
		var none [4]byte
		copy(none[:], NoCompression)
		return none, nil
	}
	e, err := r.lookup(name)
	if err != nil {
		return [4]byte{}, err
	}
	return e.code, nil
}

// NameForCode resolves a header code. "NONE" resolves to the empty name.
func (r *Registry) NameForCode(code [4]byte) (string, error) {
	if string(code[:]) == NoCompression {
		return "", nil
	}
	r.mu.RLock()
	name, ok := r.byCode[code]
	r.mu.RUnlock()
	if !ok {
		return "", &UnknownCompressionError{Code: string(code[:])}
	}
	return name, nil
}

// Function variables for testing injection.
var (
	newZstdWriter = func(level int) (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	}
	newZstdReader = func(limit uint64) (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(limit))
	}
	newLZMAWriter = func(w io.Writer, level int) (*lzma.Writer, error) {
		return lzma.WriterConfig{DictCap: lzma.MinDictCap << level}.NewWriter(w)
	}
	readAll = io.ReadAll
)

func errBodyLimit(limit uint64) error {
	return fmt.Errorf("%w: decompressed body exceeds %d bytes", ErrLimitExceeded, limit)
}

// readLimited drains r but stops one byte past limit.
func readLimited(r io.Reader, limit uint64) ([]byte, error) {
	if limit < math.MaxInt64 {
		r = io.LimitReader(r, int64(limit)+1)
	}
	out, err := readAll(r)
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) > limit {
		return nil, errBodyLimit(limit)
	}
	return out, nil
}

// deflateCompress writes a zlib-wrapped (RFC 1950) DEFLATE stream.
func deflateCompress(in []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(in); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deflateDecompress(in []byte, limit uint64) ([]byte, error) {
	fr, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer fr.Close()
	return readLimited(fr, limit)
}

func gzipCompress(in []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := gw.Write(in); err != nil {
		_ = gw.Close()
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(in []byte, limit uint64) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return readLimited(gr, limit)
}

// zstdCompress maps the 0-9 level onto the closest zstd encoder level.
func zstdCompress(in []byte, level int) ([]byte, error) {
	enc, err := newZstdWriter(level)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(in, nil), nil
}

// zstdMinWindow is the largest window our own encoder emits. Decoder memory
// never drops below it so small limits still accept our frames.
const zstdMinWindow = 8 << 20

// zstdDecompress streams the frame so a lying frame header cannot make the
// decoder allocate much more than limit.
func zstdDecompress(in []byte, limit uint64) ([]byte, error) {
	dec, err := newZstdReader(min(max(limit, zstdMinWindow), 1<<62))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	if err := dec.Reset(bytes.NewReader(in)); err != nil {
		return nil, err
	}
	out, err := readLimited(dec, limit)
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
		return nil, errBodyLimit(limit)
	}
	return out, err
}

// lz4Level maps 0 to the fast mode and 1-9 to lz4.Level1-lz4.Level9, which
// start at 1<<9.
func lz4Level(level int) lz4.CompressionLevel {
	if level <= 0 {
		return lz4.Fast
	}
	return lz4.CompressionLevel(1 << (8 + level))
}

func lz4Compress(in []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if err := zw.Apply(lz4.CompressionLevelOption(lz4Level(level))); err != nil {
		return nil, err
	}
	if _, err := zw.Write(in); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lz4Decompress(in []byte, limit uint64) ([]byte, error) {
	return readLimited(lz4.NewReader(bytes.NewReader(in)), limit)
}

func brotliCompress(in []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	bw := brotli.NewWriterLevel(&buf, level)
	if _, err := bw.Write(in); err != nil {
		_ = bw.Close()
		return nil, err
	}
	if err := bw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func brotliDecompress(in []byte, limit uint64) ([]byte, error) {
	return readLimited(brotli.NewReader(bytes.NewReader(in)), limit)
}

// lzmaCompress writes the classic .lzma format; the level selects the
// dictionary size (4 KiB at level 0 up to 2 MiB at level 9).
func lzmaCompress(in []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	lw, err := newLZMAWriter(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := lw.Write(in); err != nil {
		_ = lw.Close()
		return nil, err
	}
	if err := lw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lzmaDecompress(in []byte, limit uint64) ([]byte, error) {
	lr, err := lzma.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	return readLimited(lr, limit)
}
