package archive

import (
	"bytes"
	"encoding/binary"
	"io"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Magic identifies a container file.
var Magic = [8]byte{'A', 'L', 'E', 'T', 'H', 'E', 'I', 'A'}

// Version is the only container format version this package reads and writes.
const Version uint8 = 1

// Magic (8) + Version (1) + CreatedAt (8) + SubjectLen (1) + IndexOffset (8) + IndexSize (8) + EntryCount (4)
const MinHeaderSize = 38

// MaxSubjectNameLength is bounded by the one-byte length field.
const MaxSubjectNameLength = 255

// Header is the fixed-order prefix of every container.
type Header struct {
	Version     uint8
	CreatedAt   uint64 // Unix timestamp in seconds
	Subject     string
	IndexOffset uint64 // Absolute offset of the index region
	IndexSize   uint64 // Length of the index region in bytes
	EntryCount  uint32
}

// HeaderSize returns the on-disk size of a header carrying a subject name of
// nameLen bytes.
func HeaderSize(nameLen int) int {
	return MinHeaderSize + nameLen
}

// Size returns the on-disk size of h.
func (h *Header) Size() int {
	return HeaderSize(len(h.Subject))
}

// EncodeHeader serializes h, including the magic, into its wire format.
func EncodeHeader(h *Header) ([]byte, error) {
	subject := []byte(h.Subject)
	if len(subject) > MaxSubjectNameLength {
		return nil, ErrSubjectNameTooLong
	}
	if !utf8.Valid(subject) {
		return nil, ErrSubjectNameInvalid
	}

	buf := &bytes.Buffer{}
	buf.Grow(HeaderSize(len(subject)))

	buf.Write(Magic[:])
	buf.WriteByte(h.Version)
	if err := binary.Write(buf, binary.LittleEndian, h.CreatedAt); err != nil {
		return nil, err
	}
	buf.WriteByte(uint8(len(subject)))
	buf.Write(subject)
	if err := binary.Write(buf, binary.LittleEndian, h.IndexOffset); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, h.IndexSize); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, h.EntryCount); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodeHeader reads a header from r.
//
// The magic is checked first and the version second, so a file written by a
// different format version is reported as UnsupportedVersionError rather than
// as corruption. A header cut short by the end of the stream is invalid.
func DecodeHeader(r io.Reader) (*Header, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, headerReadError(err, "read magic")
	}
	if magic != Magic {
		return nil, ErrInvalidArchive
	}

	h := &Header{}

	if err := binary.Read(r, binary.LittleEndian, &h.Version); err != nil {
		return nil, headerReadError(err, "read version")
	}
	if h.Version != Version {
		return nil, &UnsupportedVersionError{Version: h.Version}
	}

	if err := binary.Read(r, binary.LittleEndian, &h.CreatedAt); err != nil {
		return nil, headerReadError(err, "read creation time")
	}

	var subjectLen uint8
	if err := binary.Read(r, binary.LittleEndian, &subjectLen); err != nil {
		return nil, headerReadError(err, "read subject length")
	}
	subject := make([]byte, subjectLen)
	if _, err := io.ReadFull(r, subject); err != nil {
		return nil, headerReadError(err, "read subject")
	}
	if !utf8.Valid(subject) {
		return nil, errors.Wrap(ErrInvalidArchive, "subject name is not valid UTF-8")
	}
	h.Subject = string(subject)

	if err := binary.Read(r, binary.LittleEndian, &h.IndexOffset); err != nil {
		return nil, headerReadError(err, "read index offset")
	}
	if err := binary.Read(r, binary.LittleEndian, &h.IndexSize); err != nil {
		return nil, headerReadError(err, "read index size")
	}
	if err := binary.Read(r, binary.LittleEndian, &h.EntryCount); err != nil {
		return nil, headerReadError(err, "read entry count")
	}

	return h, nil
}

func headerReadError(err error, msg string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrap(ErrInvalidArchive, msg)
	}
	return errors.Wrap(err, msg)
}
