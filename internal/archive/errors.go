package archive

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidArchive is returned when the magic, header or index of a
	// container cannot be made sense of.
	ErrInvalidArchive = errors.New("invalid archive format")

	// ErrSubjectNameTooLong is returned by Finalize when the subject name does
	// not fit the one-byte length field of the header.
	ErrSubjectNameTooLong = errors.New("subject name longer than 255 bytes")

	// ErrSubjectNameInvalid is returned by Finalize when the subject name is
	// not valid UTF-8.
	ErrSubjectNameInvalid = errors.New("subject name is not valid UTF-8")
)

// ChecksumMismatchError reports an entry whose payload does not hash to the
// checksum recorded in the index. Cause is set when the payload could not be
// decompressed at all, in which case Actual is empty.
type ChecksumMismatchError struct {
	Path     string
	Expected string
	Actual   string
	Cause    error
}

func (e *ChecksumMismatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("checksum mismatch for %s - expected: %s, payload undecodable: %v", e.Path, e.Expected, e.Cause)
	}
	return fmt.Sprintf("checksum mismatch for %s - expected: %s, actual: %s", e.Path, e.Expected, e.Actual)
}

func (e *ChecksumMismatchError) Unwrap() error {
	return e.Cause
}

// FileNotFoundError is returned by Extract for a logical path the index does
// not contain.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found in archive: %s", e.Path)
}

// UnsupportedVersionError carries the version byte of a container written by
// an incompatible release.
type UnsupportedVersionError struct {
	Version uint8
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported archive version: %d (supported: %d)", e.Version, Version)
}

// SerializationError wraps a failure to encode or decode the index region.
type SerializationError struct {
	Cause error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("index serialization error: %v", e.Cause)
}

func (e *SerializationError) Unwrap() error {
	return e.Cause
}

// Error codes returned by Classify, suitable for user-facing messages.
const (
	CodeArchiveCorrupted   = "ARCHIVE_CORRUPTED"
	CodeInvalidArchive     = "INVALID_ARCHIVE"
	CodeUnsupportedVersion = "UNSUPPORTED_ARCHIVE_VERSION"
	CodeIOError            = "IO_ERROR"
)

// Classify maps an error returned by this package to one of the Code*
// constants. Errors of unknown origin are reported as I/O errors.
func Classify(err error) string {
	var (
		mismatch      *ChecksumMismatchError
		notFound      *FileNotFoundError
		unsupported   *UnsupportedVersionError
		serialization *SerializationError
	)

	switch {
	case errors.As(err, &mismatch), errors.As(err, &notFound):
		return CodeArchiveCorrupted
	case errors.As(err, &unsupported):
		return CodeUnsupportedVersion
	case errors.Is(err, ErrInvalidArchive), errors.As(err, &serialization):
		return CodeInvalidArchive
	default:
		return CodeIOError
	}
}
