package hssp

import "encoding/hex"

// Report describes an archive header and, where readable, its index.
type Report struct {
	Version         Version        `json:"version"`
	Generator       string         `json:"generator,omitempty"`
	Comment         string         `json:"comment,omitempty"`
	FileCount       uint32         `json:"file_count"`
	Checksum        ChecksumReport `json:"checksum"`
	Encrypted       bool           `json:"encrypted"`
	Password        PasswordReport `json:"password"`
	Compression     string         `json:"compression,omitempty"`
	CompressionCode string         `json:"compression_code,omitempty"`
	Split           SplitReport    `json:"split"`

	// Entries and IndexError are only filled by Metadata.
	Entries    []EntryInfo `json:"entries,omitempty"`
	IndexError string      `json:"index_error,omitempty"`
}

type ChecksumReport struct {
	Valid    bool   `json:"valid"`
	Stored   uint32 `json:"stored"`
	Computed uint32 `json:"computed"`
}

// PasswordReport tells whether a password was supplied and whether it matched
// the stored verifier. Correct is always false for unencrypted archives.
type PasswordReport struct {
	Supplied bool   `json:"supplied"`
	Correct  bool   `json:"correct"`
	Verifier string `json:"verifier,omitempty"`
}

// SplitReport holds the multi-volume fields of v4 and v5 headers.
type SplitReport struct {
	Split          bool   `json:"split"`
	TotalFileCount uint64 `json:"total_file_count"`
	Offset         uint64 `json:"offset"`
	PrevChecksum   uint32 `json:"prev_checksum"`
	NextChecksum   uint32 `json:"next_checksum"`
	ID             uint32 `json:"id"`
	IsFirst        bool   `json:"is_first"`
	IsLast         bool   `json:"is_last"`
}

// EntryInfo is one index entry without its contents.
type EntryInfo struct {
	Path       string     `json:"path"`
	Size       uint64     `json:"size"`
	Attributes Attributes `json:"attributes"`
}

func newReport(h fixedHeader, body []byte) Report {
	computed := Checksum(body)
	rep := Report{
		Version:   h.Version,
		Generator: h.Generator,
		Comment:   h.Comment,
		FileCount: h.FileCount,
		Checksum:  ChecksumReport{Valid: computed == h.Checksum, Stored: h.Checksum, Computed: computed},
		Encrypted: h.encrypted(),
		Split: SplitReport{
			Split:          h.split(),
			TotalFileCount: h.TotalFiles,
			Offset:         h.SplitOffset,
			PrevChecksum:   h.PrevChecksum,
			NextChecksum:   h.NextChecksum,
			ID:             h.SplitID,
			IsFirst:        h.PrevChecksum == 0,
			IsLast:         h.NextChecksum == 0,
		},
	}
	if rep.Encrypted {
		rep.Password.Verifier = hex.EncodeToString(h.Verifier[:])
	}
	if !h.Version.legacy() {
		rep.CompressionCode = string(h.Compression[:])
	}
	return rep
}

// Metadata inspects buf without trusting it. Unlike Parse it does not fail on
// a checksum mismatch, a missing or wrong password or an unreadable index;
// those outcomes are reported in the returned Report. It only fails when no
// header can be read at all. An HSSP buffer with an unrecognized version byte
// is reported as a v2 archive with an invalid checksum.
//
// The index of an encrypted archive is read only when the password supplied
// with WithReadPassword is correct. A body with a bad checksum is still read on
// a best-effort basis.
func Metadata(buf []byte, opts ...ReadOption) (*Report, error) {
	cfg := newReadConfig(opts)
	h, body, err := openArchive(buf, cfg, true)
	if err != nil {
		return nil, err
	}
	rep := newReport(h, body)
	rep.Password.Supplied = cfg.gate != nil
	if name, err := h.compressionName(cfg.registry); err == nil {
		rep.Compression = name
	}
	if rep.Encrypted {
		if err := cfg.gate.check(h.Verifier); err != nil {
			rep.IndexError = err.Error()
			return &rep, nil
		}
		rep.Password.Correct = true
	}
	plain, err := readPlainBody(h, body, cfg)
	if err != nil {
		rep.IndexError = err.Error()
		return &rep, nil
	}
	entries, err := readEntryInfo(h, plain, cfg)
	if err != nil {
		rep.IndexError = err.Error()
		return &rep, nil
	}
	rep.Entries = entries
	return &rep, nil
}

func readEntryInfo(h fixedHeader, plain []byte, cfg readConfig) ([]EntryInfo, error) {
	if h.Version.legacy() {
		files, err := readLegacyBody(plain, h.FileCount, h.MainFile, cfg.allowUnsafe)
		if err != nil {
			return nil, err
		}
		out := make([]EntryInfo, len(files))
		for i, f := range files {
			out[i] = EntryInfo{Path: f.Path, Size: f.size(), Attributes: f.Attributes}
		}
		return out, nil
	}
	entries, _, err := readIndex(plain, h.FileCount, cfg.allowUnsafe)
	if err != nil {
		return nil, err
	}
	out := make([]EntryInfo, len(entries))
	for i, e := range entries {
		out[i] = EntryInfo{Path: e.Path, Size: e.Size, Attributes: e.Attributes}
	}
	return out, nil
}
