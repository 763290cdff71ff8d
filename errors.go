package hssp

import (
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrInvalidMagic            = errors.New("hssp: invalid magic")
	ErrInvalidHeader           = errors.New("hssp: invalid header")
	ErrInvalidPayload          = errors.New("hssp: invalid payload")
	ErrLimitExceeded           = errors.New("hssp: limit exceeded")
	ErrValidation              = errors.New("hssp: validation failed")
	ErrInvalidChecksum         = errors.New("hssp: invalid checksum")
	ErrMissingPassword         = errors.New("hssp: missing password")
	ErrInvalidPassword         = errors.New("hssp: invalid password")
	ErrUnknownCompression      = errors.New("hssp: unknown compression algorithm")
	ErrInvalidCompressionLevel = errors.New("hssp: invalid compression level")
	ErrInvalidFileCount        = errors.New("hssp: invalid file count")
	ErrVersionNotSupported     = errors.New("hssp: version not supported")
	ErrUnsafeOperation         = errors.New("hssp: unsafe operation")
	ErrBrokenChain             = errors.New("hssp: broken volume checksum chain")
	ErrIncompleteSplit         = errors.New("hssp: incomplete split set")
)

// ChecksumError reports a mismatch between the stored and the computed body checksum.
type ChecksumError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%v: expected %#08x, got %#08x", ErrInvalidChecksum, e.Expected, e.Actual)
}

func (e *ChecksumError) Unwrap() error { return ErrInvalidChecksum }

// MissingPasswordError is returned when an encrypted archive is parsed without a password.
type MissingPasswordError struct {
	Verifier [32]byte
}

func (e *MissingPasswordError) Error() string {
	return fmt.Sprintf("%v: password verifier is %s", ErrMissingPassword, hex.EncodeToString(e.Verifier[:]))
}

func (e *MissingPasswordError) Unwrap() error { return ErrMissingPassword }

// PasswordError is returned when the supplied password does not match the
// verifier stored in the header. Both fields are verifier hashes, never keys.
type PasswordError struct {
	Expected [32]byte
	Actual   [32]byte
}

func (e *PasswordError) Error() string {
	return fmt.Sprintf("%v: expected verifier %s, got %s", ErrInvalidPassword,
		hex.EncodeToString(e.Expected[:]), hex.EncodeToString(e.Actual[:]))
}

func (e *PasswordError) Unwrap() error { return ErrInvalidPassword }

// UnknownCompressionError names an algorithm or a 4-byte code that is not registered.
type UnknownCompressionError struct {
	Name string
	Code string
}

func (e *UnknownCompressionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%v: code %q", ErrUnknownCompression, e.Code)
	}
	return fmt.Sprintf("%v: %q", ErrUnknownCompression, e.Name)
}

func (e *UnknownCompressionError) Unwrap() error { return ErrUnknownCompression }

// CompressionLevelError reports a level outside [MinCompressionLevel, MaxCompressionLevel].
type CompressionLevelError struct {
	Level int
}

func (e *CompressionLevelError) Error() string {
	return fmt.Sprintf("%v: %d", ErrInvalidCompressionLevel, e.Level)
}

func (e *CompressionLevelError) Unwrap() error { return ErrInvalidCompressionLevel }

// FileCountError reports a split volume count that cannot be satisfied.
type FileCountError struct {
	Count int
}

func (e *FileCountError) Error() string {
	return fmt.Sprintf("%v: got %d, must be at least 1 and at most the total content size", ErrInvalidFileCount, e.Count)
}

func (e *FileCountError) Unwrap() error { return ErrInvalidFileCount }

// VersionError reports an unrecognized header version byte.
type VersionError struct {
	Byte byte
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%v: version byte %d", ErrVersionNotSupported, e.Byte)
}

func (e *VersionError) Unwrap() error { return ErrVersionNotSupported }

// UnsafeOperationError is returned when a declared size cannot be represented
// safely. Parsing may opt in to bypass it with WithAllowUnsafe.
type UnsafeOperationError struct {
	Reason string
}

func (e *UnsafeOperationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrUnsafeOperation, e.Reason)
}

func (e *UnsafeOperationError) Unwrap() error { return ErrUnsafeOperation }
