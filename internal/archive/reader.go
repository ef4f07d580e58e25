package archive

import (
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/0xRadioAc7iv/go-aletheia/internal/checksum"
)

// Reader gives access to the entries of a verified container.
//
// Extraction only reads from the underlying file at absolute offsets, so a
// Reader may be shared between goroutines once Open has returned.
type Reader struct {
	file    *os.File
	header  *Header
	entries []Entry
	lookup  map[string]int // logical path -> index into entries
	decoder *zstd.Decoder
}

// Open reads the header and index of the container at path and verifies the
// checksum of every entry. Any failure closes the file; the container is
// either usable as a whole or not at all.
func Open(path string) (_ *Reader, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open archive")
	}

	r := &Reader{file: f}
	defer func() {
		if err != nil {
			r.Close()
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat archive")
	}

	r.header, err = DecodeHeader(f)
	if err != nil {
		return nil, err
	}

	if err := r.readIndex(uint64(info.Size())); err != nil {
		return nil, err
	}

	r.decoder, err = newDecoder()
	if err != nil {
		return nil, err
	}

	if err := r.verify(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Reader) readIndex(fileSize uint64) error {
	h := r.header
	headerSize := uint64(h.Size())

	if h.IndexOffset < headerSize || h.IndexOffset > fileSize || h.IndexSize > fileSize-h.IndexOffset {
		return errors.Wrap(ErrInvalidArchive, "index region out of bounds")
	}

	buf := make([]byte, h.IndexSize)
	if _, err := r.file.ReadAt(buf, int64(h.IndexOffset)); err != nil {
		return errors.Wrap(err, "read index")
	}

	entries, err := decodeIndex(buf)
	if err != nil {
		return err
	}
	if len(entries) != int(h.EntryCount) {
		return errors.Wrapf(ErrInvalidArchive, "index holds %d entries, header declares %d", len(entries), h.EntryCount)
	}

	r.lookup = make(map[string]int, len(entries))
	for i, e := range entries {
		if e.DataOffset < headerSize || e.DataOffset > h.IndexOffset || e.DataSize > h.IndexOffset-e.DataOffset {
			return errors.Wrapf(ErrInvalidArchive, "payload of %s out of bounds", e.LogicalPath)
		}
		if _, ok := r.lookup[e.LogicalPath]; !ok {
			r.lookup[e.LogicalPath] = i
		}
	}
	r.entries = entries

	return nil
}

func (r *Reader) verify() error {
	for _, e := range r.entries {
		data, err := r.payload(e)
		if err != nil {
			return err
		}

		if actual := checksum.Bytes(data); actual != e.Checksum {
			return &ChecksumMismatchError{Path: e.LogicalPath, Expected: e.Checksum, Actual: actual}
		}
	}
	return nil
}

// payload returns the uncompressed content of e. A frame that fails to decode
// is reported as a checksum mismatch, since the stored bytes are not what the
// writer produced.
func (r *Reader) payload(e Entry) ([]byte, error) {
	raw := make([]byte, e.DataSize)
	if _, err := r.file.ReadAt(raw, int64(e.DataOffset)); err != nil {
		return nil, errors.Wrapf(err, "read payload of %s", e.LogicalPath)
	}

	switch e.Compression {
	case CompressionNone:
		return raw, nil
	case CompressionZstd:
		data, err := r.decoder.DecodeAll(raw, nil)
		if err != nil {
			return nil, &ChecksumMismatchError{Path: e.LogicalPath, Expected: e.Checksum, Cause: err}
		}
		return data, nil
	default:
		return nil, errors.Wrapf(ErrInvalidArchive, "unknown compression %s for %s", e.Compression, e.LogicalPath)
	}
}

// Extract writes the content of the entry stored under logicalPath to
// destination and sets its modification time to the recorded one. An unknown
// path fails with FileNotFoundError before anything is written.
func (r *Reader) Extract(logicalPath, destination string) error {
	entry, ok := r.Lookup(logicalPath)
	if !ok {
		return &FileNotFoundError{Path: logicalPath}
	}

	data, err := r.payload(entry)
	if err != nil {
		return err
	}

	if err := os.WriteFile(destination, data, 0644); err != nil {
		return errors.Wrap(err, "write extracted file")
	}
	if err := os.Chtimes(destination, time.Time{}, entry.Modified); err != nil {
		return errors.Wrap(err, "set modification time")
	}

	return nil
}

// ReadEntry returns the uncompressed content of the entry stored under
// logicalPath.
func (r *Reader) ReadEntry(logicalPath string) ([]byte, error) {
	entry, ok := r.Lookup(logicalPath)
	if !ok {
		return nil, &FileNotFoundError{Path: logicalPath}
	}
	return r.payload(entry)
}

// Lookup returns the entry stored under logicalPath.
func (r *Reader) Lookup(logicalPath string) (Entry, bool) {
	i, ok := r.lookup[logicalPath]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Entries returns a copy of the index in stored order.
func (r *Reader) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Subject returns the name of the subject the container belongs to.
func (r *Reader) Subject() string {
	return r.header.Subject
}

// CreatedAt returns the creation time recorded in the header.
func (r *Reader) CreatedAt() time.Time {
	return time.Unix(int64(r.header.CreatedAt), 0)
}

// Header returns a copy of the decoded header.
func (r *Reader) Header() Header {
	return *r.header
}

// Close releases the file handle.
func (r *Reader) Close() error {
	if r.decoder != nil {
		r.decoder.Close()
		r.decoder = nil
	}
	if r.file == nil {
		return nil
	}

	err := r.file.Close()
	r.file = nil
	return err
}
