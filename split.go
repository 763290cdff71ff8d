package hssp

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// CreateSplit spreads files over count volumes, each a complete v4 or v5
// archive (v5 unless WithVersion selects v4).
//
// The contents of all files form one byte pool that is cut into count equal
// ranges; the last volume also takes the remainder. A file crossing a range
// boundary is stored as a fragment in every volume it touches. Adjacent
// volumes are linked through the previous/next checksum header fields.
//
// CreateSplit returns a *FileCountError if count is below 1 or above the total
// number of content bytes.
func CreateSplit(files []File, count int, opts ...WriteOption) ([][]byte, error) {
	cfg := newWriteConfig(opts)
	if err := validateWriteConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.version.legacy() {
		return nil, fmt.Errorf("%w: %s archives cannot be split", ErrValidation, cfg.version)
	}
	if err := validateFiles(files, cfg.version, cfg.limits); err != nil {
		return nil, err
	}
	var total uint64
	for _, f := range files {
		total += f.size()
	}
	if count < 1 || uint64(count) > total || count > math.MaxUint32 {
		return nil, &FileCountError{Count: count}
	}

	plans := planVolumes(files, total, count)
	volumes := make([][]byte, count)
	sums := make([]uint32, count)
	var g errgroup.Group
	for i, p := range plans {
		g.Go(func() error {
			split := &splitFields{totalFiles: uint64(len(files)), offset: p.offset, id: uint32(i)}
			buf, sum, err := encodeArchive(p.entries, cfg, split)
			if err != nil {
				return fmt.Errorf("volume %d: %w", i, err)
			}
			volumes[i], sums[i] = buf, sum
			cfg.logger.Debug().Int("volume", i).Int("entries", len(p.entries)).Uint64("split_offset", p.offset).Msg("built split volume")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Body checksums do not cover the header, so the chain is patched in place.
	for i := 1; i < count; i++ {
		binary.LittleEndian.PutUint32(volumes[i][offPrevChecksum:], sums[i-1])
	}
	for i := count - 2; i >= 0; i-- {
		binary.LittleEndian.PutUint32(volumes[i][offNextChecksum:], sums[i+1])
	}
	return volumes, nil
}

// volumePlan lists the entries of one volume and how many bytes of its first
// entry earlier volumes already hold.
type volumePlan struct {
	entries []volumeEntry
	offset  uint64
}

// planVolumes assigns byte range [i*avg, (i+1)*avg) of the content pool to
// volume i, the last range ending at total. Empty files and directories go to
// the volume whose range contains their pool position.
func planVolumes(files []File, total uint64, count int) []volumePlan {
	avg := total / uint64(count)
	volumeAt := func(pos uint64) int {
		return int(min(pos/avg, uint64(count-1)))
	}
	plans := make([]volumePlan, count)
	var pos uint64
	for _, f := range files {
		start, end := pos, pos+f.size()
		pos = end
		if start == end {
			v := volumeAt(start)
			plans[v].entries = append(plans[v].entries, volumeEntry{File: f})
			continue
		}
		for v := volumeAt(start); v <= volumeAt(end-1); v++ {
			lo := max(start, uint64(v)*avg)
			hi := end
			if v < count-1 {
				hi = min(end, uint64(v+1)*avg)
			}
			frag := f
			frag.Contents = f.Contents[lo-start : hi-start]
			if lo > start && len(plans[v].entries) == 0 {
				plans[v].offset = lo - start
			}
			plans[v].entries = append(plans[v].entries, volumeEntry{File: frag, declared: end - lo})
		}
	}
	return plans
}

// Join parses the volumes of a split set, in order, and reassembles the
// original files.
//
// Join verifies that every volume's previous and next checksum fields match
// its neighbours (ErrBrokenChain) and that each continuation fragment lines up
// with the bytes gathered so far (ErrIncompleteSplit). The returned files have
// zero PreMissingBytes and AfterMissingBytes.
func Join(volumes [][]byte, opts ...ReadOption) ([]File, error) {
	if len(volumes) == 0 {
		return nil, fmt.Errorf("%w: no volumes", ErrIncompleteSplit)
	}
	cfg := newReadConfig(opts)
	parts := make([]*Archive, len(volumes))
	var g errgroup.Group
	for i, vol := range volumes {
		g.Go(func() error {
			a, err := Parse(vol, opts...)
			if err != nil {
				return fmt.Errorf("volume %d: %w", i, err)
			}
			parts[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := verifyChain(parts); err != nil {
		return nil, err
	}

	var out []File
	var pending uint64 // bytes the last gathered file still expects
	for vi, a := range parts {
		for fi, f := range a.Files {
			if fi == 0 && f.Attributes.PreMissingBytes > 0 {
				if err := continueFile(out, f, pending); err != nil {
					return nil, fmt.Errorf("volume %d: %w", vi, err)
				}
				last := &out[len(out)-1]
				last.Contents = append(last.Contents[:f.Attributes.PreMissingBytes], f.Contents...)
				pending = f.Attributes.AfterMissingBytes
				continue
			}
			if pending != 0 {
				return nil, fmt.Errorf("%w: volume %d: %q is missing %d bytes", ErrIncompleteSplit, vi, out[len(out)-1].Path, pending)
			}
			out = append(out, f)
			pending = f.Attributes.AfterMissingBytes
		}
		cfg.logger.Debug().Int("volume", vi).Int("files", len(out)).Msg("merged split volume")
	}
	if pending != 0 {
		return nil, fmt.Errorf("%w: %q is missing its last %d bytes", ErrIncompleteSplit, out[len(out)-1].Path, pending)
	}
	if total := parts[0].Report.Split.TotalFileCount; parts[0].Report.Split.Split && total != uint64(len(out)) {
		return nil, fmt.Errorf("%w: recovered %d of %d files", ErrIncompleteSplit, len(out), total)
	}
	for i := range out {
		out[i].Attributes.PreMissingBytes = 0
		out[i].Attributes.AfterMissingBytes = 0
	}
	return out, nil
}

// verifyChain checks the previous/next checksum links of adjacent volumes.
func verifyChain(parts []*Archive) error {
	for i, a := range parts {
		s := a.Report.Split
		if len(parts) > 1 && !s.Split {
			return fmt.Errorf("%w: volume %d is not part of a split set", ErrBrokenChain, i)
		}
		var prev, next uint32
		if i > 0 {
			prev = parts[i-1].Report.Checksum.Computed
		}
		if i < len(parts)-1 {
			next = parts[i+1].Report.Checksum.Computed
		}
		if s.PrevChecksum != prev {
			return fmt.Errorf("%w: volume %d links back to %#08x, previous volume is %#08x", ErrBrokenChain, i, s.PrevChecksum, prev)
		}
		if s.NextChecksum != next {
			return fmt.Errorf("%w: volume %d links forward to %#08x, next volume is %#08x", ErrBrokenChain, i, s.NextChecksum, next)
		}
	}
	return nil
}

// continueFile checks that fragment f continues the last file of out.
// pending is the AfterMissingBytes of that file as seen by the previous volume.
func continueFile(out []File, f File, pending uint64) error {
	if len(out) == 0 {
		return fmt.Errorf("%w: %q continues a file from a missing volume", ErrIncompleteSplit, f.Path)
	}
	last := out[len(out)-1]
	if last.Path != f.Path {
		return fmt.Errorf("%w: fragment of %q follows %q", ErrIncompleteSplit, f.Path, last.Path)
	}
	if uint64(len(last.Contents)) != f.Attributes.PreMissingBytes {
		return fmt.Errorf("%w: %q resumes at byte %d, have %d", ErrIncompleteSplit, f.Path, f.Attributes.PreMissingBytes, len(last.Contents))
	}
	if declared := uint64(len(f.Contents)) + f.Attributes.AfterMissingBytes; declared != pending {
		return fmt.Errorf("%w: %q expects %d more bytes, fragment declares %d", ErrIncompleteSplit, f.Path, pending, declared)
	}
	return nil
}
