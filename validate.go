package hssp

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

func validateWriteConfig(cfg writeConfig) error {
	if !cfg.version.Valid() {
		return &VersionError{Byte: byte(cfg.version)}
	}
	if cfg.level < MinCompressionLevel || cfg.level > MaxCompressionLevel {
		return &CompressionLevelError{Level: cfg.level}
	}
	if cfg.version.legacy() {
		if cfg.compression != "" {
			return fmt.Errorf("%w: %s archives cannot be compressed", ErrValidation, cfg.version)
		}
		if cfg.comment != "" {
			return fmt.Errorf("%w: %s archives cannot carry a comment", ErrValidation, cfg.version)
		}
		return nil
	}
	return validateTextField("comment", cfg.comment)
}

func validateFiles(files []File, v Version, limits Limits) error {
	if len(files) > limits.MaxFiles || uint64(len(files)) > math.MaxUint32 {
		return fmt.Errorf("%w: too many files (%d)", ErrLimitExceeded, len(files))
	}
	seen := make(map[string]struct{}, len(files))
	mainFile := ""
	for i := range files {
		f := &files[i]
		if err := validatePath(f.Path, v); err != nil {
			return fmt.Errorf("%w: file %d path: %v", ErrValidation, i, err)
		}
		if _, ok := seen[f.Path]; ok {
			return fmt.Errorf("%w: duplicate path %q", ErrValidation, f.Path)
		}
		seen[f.Path] = struct{}{}
		if f.Attributes.IsDirectory && len(f.Contents) > 0 {
			return fmt.Errorf("%w: directory %q has contents", ErrValidation, f.Path)
		}
		if f.Attributes.IsMainFile {
			if mainFile != "" {
				return fmt.Errorf("%w: both %q and %q are marked as main file", ErrValidation, mainFile, f.Path)
			}
			mainFile = f.Path
		}
		if v.legacy() {
			continue
		}
		a := f.Attributes
		if a.Permissions > MaxPermissions {
			return fmt.Errorf("%w: %q permissions %#o exceed %#o", ErrValidation, f.Path, a.Permissions, MaxPermissions)
		}
		if len(a.Owner) > math.MaxUint16 || len(a.Group) > math.MaxUint16 {
			return fmt.Errorf("%w: %q owner or group too long", ErrValidation, f.Path)
		}
		if uint64(len(a.WebLink)) > math.MaxUint32 {
			return fmt.Errorf("%w: %q web link too long", ErrValidation, f.Path)
		}
	}
	return nil
}

func validatePath(p string, v Version) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("path is empty")
	}
	if !utf8.ValidString(p) {
		return fmt.Errorf("path is not valid UTF-8")
	}
	limit := math.MaxUint16
	if v.legacy() {
		if strings.HasPrefix(p, legacyDirPrefix) {
			return fmt.Errorf("path must not start with %q", legacyDirPrefix)
		}
		limit -= len(legacyDirPrefix)
	}
	if len(p) > limit {
		return fmt.Errorf("path is %d bytes, at most %d fit", len(p), limit)
	}
	return nil
}
