package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/logicossoftware/go-hssp"
	"github.com/logicossoftware/go-hssp/internal/log"
)

// collectTree walks root in lexical order and returns its directories and
// regular files with slash-separated paths relative to root.
func collectTree(root string) ([]hssp.File, error) {
	var files []hssp.File
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		var f hssp.File
		switch {
		case d.IsDir():
			f = hssp.NewDirectory(rel)
		case info.Mode().IsRegular():
			b, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			f = hssp.NewFile(rel, b)
		default:
			log.Warn().Str("path", rel).Stringer("mode", info.Mode()).Msg("skipping non-regular file")
			return nil
		}

		perm := info.Mode().Perm()
		f.Attributes.Permissions = uint16(perm)
		f.Attributes.Modified = info.ModTime()
		f.Attributes.IsHidden = strings.HasPrefix(d.Name(), ".")
		f.Attributes.IsReadOnly = perm&0o200 == 0
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// writeTree extracts files below root and returns the number of regular files
// written. Paths that would leave root are rejected.
func writeTree(root string, files []hssp.File) (int, error) {
	written := 0
	for _, f := range files {
		rel := filepath.FromSlash(f.Path)
		if !filepath.IsLocal(rel) {
			return written, fmt.Errorf("refusing to extract %q outside %s", f.Path, root)
		}
		p := filepath.Join(root, rel)

		if f.Attributes.IsDirectory {
			if err := os.MkdirAll(p, 0o755); err != nil {
				return written, err
			}
			continue
		}
		if f.Attributes.PreMissingBytes > 0 || f.Attributes.AfterMissingBytes > 0 {
			log.Warn().
				Str("path", f.Path).
				Uint64("pre_missing", f.Attributes.PreMissingBytes).
				Uint64("after_missing", f.Attributes.AfterMissingBytes).
				Msg("extracting a fragment of a split file, use join for the whole set")
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return written, err
		}
		perm := os.FileMode(f.Attributes.Permissions)
		if perm == 0 {
			perm = 0o644
		}
		if err := os.WriteFile(p, f.Contents, perm); err != nil {
			return written, err
		}
		if mod := f.Attributes.Modified; !mod.IsZero() {
			atime := f.Attributes.Accessed
			if atime.IsZero() {
				atime = mod
			}
			if err := os.Chtimes(p, atime, mod); err != nil {
				return written, err
			}
		}
		written++
		log.Debug().Str("file", p).Int("bytes", len(f.Contents)).Msg("extracted")
	}
	return written, nil
}
