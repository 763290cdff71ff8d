package hssp

import (
	"errors"
	"fmt"
)

// Parse decodes an archive of any revision.
//
// The decoding process:
//  1. Detects the revision (unless WithReadVersion is given) and reads the header
//  2. Verifies the body checksum
//  3. Verifies the password and decrypts the body, if it is encrypted
//  4. Decompresses the body, if it is compressed
//  5. Decodes the index and the file contents
//
// Parse returns a *ChecksumError (ErrInvalidChecksum) for corrupt bodies,
// *MissingPasswordError or *PasswordError for encrypted archives opened without
// the right password, *UnknownCompressionError for unregistered codes and
// *VersionError for unknown revisions. The returned files never alias buf.
func Parse(buf []byte, opts ...ReadOption) (*Archive, error) {
	cfg := newReadConfig(opts)
	h, body, err := openArchive(buf, cfg, false)
	if err != nil {
		return nil, err
	}
	rep := newReport(h, body)
	if !rep.Checksum.Valid {
		return nil, &ChecksumError{Expected: rep.Checksum.Stored, Actual: rep.Checksum.Computed}
	}
	plain, err := readPlainBody(h, body, cfg)
	if err != nil {
		return nil, err
	}
	rep.Compression, _ = h.compressionName(cfg.registry)
	rep.Password.Supplied = cfg.gate != nil
	rep.Password.Correct = h.encrypted()
	files, err := decodeFiles(h, plain, cfg)
	if err != nil {
		return nil, err
	}
	return &Archive{Files: files, Report: rep}, nil
}

// openArchive resolves the revision of buf and splits it into header and body.
// With lenient set, an HSSP buffer that cannot be a v3, v4 or v5 archive is
// read as a v2 archive whose checksum no longer matches.
func openArchive(buf []byte, cfg readConfig, lenient bool) (fixedHeader, []byte, error) {
	v := cfg.version
	if v == 0 {
		var err error
		var ve *VersionError
		v, err = DetectVersion(buf)
		switch {
		case lenient && (errors.As(err, &ve) || (err == nil && !v.legacy() && len(buf) < headerSize)):
			cfg.logger.Debug().Int("bytes", len(buf)).Msg("unrecognized HSSP header, reading as v2")
			v = VersionV2
		case err != nil:
			return fixedHeader{}, nil, err
		default:
			cfg.logger.Debug().Stringer("version", v).Int("bytes", len(buf)).Msg("detected archive version")
		}
	}
	h, err := readFixedHeader(v, buf)
	if err != nil {
		return fixedHeader{}, nil, err
	}
	if int64(h.FileCount) > int64(cfg.limits.MaxFiles) {
		return fixedHeader{}, nil, fmt.Errorf("%w: %d files", ErrLimitExceeded, h.FileCount)
	}
	if err := checkSize(h.SplitOffset, cfg.allowUnsafe); err != nil {
		return fixedHeader{}, nil, err
	}
	return h, buf[v.headerSize():], nil
}

// readPlainBody decrypts and decompresses an already verified body.
func readPlainBody(h fixedHeader, body []byte, cfg readConfig) ([]byte, error) {
	plain := body
	if h.encrypted() {
		var err error
		if plain, err = cfg.gate.decrypt(body, h.Verifier, h.IV); err != nil {
			return nil, err
		}
	}
	name, err := h.compressionName(cfg.registry)
	if err != nil {
		return nil, err
	}
	plain, err = cfg.registry.Decompress(name, plain, cfg.limits.MaxBodySize)
	switch {
	case errors.Is(err, ErrLimitExceeded):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%w: decompress %s: %w", ErrInvalidPayload, name, err)
	}
	return plain, nil
}

// decodeFiles turns a plain body into files.
func decodeFiles(h fixedHeader, plain []byte, cfg readConfig) ([]File, error) {
	if h.Version.legacy() {
		return readLegacyBody(plain, h.FileCount, h.MainFile, cfg.allowUnsafe)
	}
	entries, off, err := readIndex(plain, h.FileCount, cfg.allowUnsafe)
	if err != nil {
		return nil, err
	}
	data := plain[off:]
	files := make([]File, len(entries))
	for i, e := range entries {
		f := File{Path: e.Path, Attributes: e.Attributes}
		n := e.Size
		if avail := uint64(len(data)); n > avail {
			// Only the last entry of a split volume may continue in the next volume.
			if i != len(entries)-1 || !h.split() {
				return nil, fmt.Errorf("%w: content of %q declares %d bytes, %d remain", ErrInvalidPayload, e.Path, n, avail)
			}
			f.Attributes.AfterMissingBytes = n - avail
			n = avail
		}
		if !f.Attributes.IsDirectory {
			f.Contents = append([]byte{}, data[:n]...)
		}
		data = data[n:]
		if i == 0 && h.SplitOffset > 0 {
			f.Attributes.PreMissingBytes = h.SplitOffset
		}
		files[i] = f
	}
	if len(data) > 0 {
		return nil, fmt.Errorf("%w: %d trailing body bytes", ErrInvalidPayload, len(data))
	}
	return files, nil
}
