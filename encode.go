package hssp

// Create encodes files into a single archive.
//
// By default Create writes a v5 archive without compression or encryption.
// Use WriteOption functions to change this:
//   - WithVersion(v): write revision v (1-5)
//   - WithPassword(p): encrypt the body with AES-256-CBC
//   - WithCompression(name), WithCompressionLevel(l): compress the body (v4/v5 only)
//   - WithComment(c): store a comment of up to 16 bytes (v4/v5 only)
//
// Input files are never modified.
func Create(files []File, opts ...WriteOption) ([]byte, error) {
	cfg := newWriteConfig(opts)
	if err := validateWriteConfig(cfg); err != nil {
		return nil, err
	}
	entries := make([]volumeEntry, len(files))
	for i, f := range files {
		entries[i] = volumeEntry{File: f, declared: f.size()}
	}
	buf, _, err := encodeArchive(entries, cfg, nil)
	return buf, err
}

// volumeEntry is a file as it goes into one archive. declared is written as
// the content length and exceeds len(Contents) for fragments of split files.
type volumeEntry struct {
	File
	declared uint64
}

// splitFields carries the v4/v5 header fields of a split volume.
type splitFields struct {
	totalFiles uint64
	offset     uint64
	id         uint32
}

// encodeArchive builds header and body for entries and returns the archive
// together with its body checksum.
func encodeArchive(entries []volumeEntry, cfg writeConfig, split *splitFields) ([]byte, uint32, error) {
	files := make([]File, len(entries))
	for i, e := range entries {
		files[i] = e.File
	}
	if err := validateFiles(files, cfg.version, cfg.limits); err != nil {
		return nil, 0, err
	}

	h := fixedHeader{Version: cfg.version, FileCount: uint32(len(entries))}
	var body []byte
	var err error
	if cfg.version.legacy() {
		body = encodeLegacyBody(files)
		for i, f := range files {
			if f.Attributes.IsMainFile {
				h.MainFile = uint32(i + 1)
			}
		}
	} else {
		body = encodeIndexedBody(entries)
		if body, err = cfg.registry.Compress(cfg.compression, body, cfg.level); err != nil {
			return nil, 0, err
		}
		if h.Compression, err = cfg.registry.CodeFor(cfg.compression); err != nil {
			return nil, 0, err
		}
		h.Flags.Compressed = cfg.compression != ""
		h.Comment = cfg.comment
		h.Generator = Generator
		if split != nil {
			h.Flags.Split = true
			h.TotalFiles = split.totalFiles
			h.SplitOffset = split.offset
			h.SplitID = split.id
		}
	}

	if cfg.gate != nil {
		if h.IV, body, err = cfg.gate.encrypt(body); err != nil {
			return nil, 0, err
		}
		h.Verifier = cfg.gate.verifier
		h.Flags.Encrypted = true
	}

	h.Checksum = Checksum(body)
	out := writeFixedHeader(h)
	out = append(out, body...)
	cfg.logger.Debug().
		Stringer("version", cfg.version).
		Int("files", len(entries)).
		Int("body_bytes", len(body)).
		Str("compression", cfg.compression).
		Bool("encrypted", cfg.gate != nil).
		Msg("encoded archive")
	return out, h.Checksum, nil
}

func encodeLegacyBody(files []File) []byte {
	n := 0
	for _, f := range files {
		n += legacyRecordLen(f)
	}
	body := make([]byte, 0, n)
	for _, f := range files {
		body = appendLegacyRecord(body, f)
	}
	return body
}

// encodeIndexedBody lays out all index records followed by all contents.
func encodeIndexedBody(entries []volumeEntry) []byte {
	indexLen, dataLen := 0, 0
	for _, e := range entries {
		indexLen += indexRecordLen(indexEntry{Path: e.Path, Attributes: e.Attributes})
		dataLen += int(e.size())
	}
	body := make([]byte, 0, indexLen+dataLen)
	for _, e := range entries {
		body = appendIndexRecord(body, indexEntry{Path: e.Path, Size: e.declared, Attributes: e.Attributes})
	}
	for _, e := range entries {
		if !e.Attributes.IsDirectory {
			body = append(body, e.Contents...)
		}
	}
	return body
}
