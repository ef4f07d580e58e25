package archive

import (
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

type pendingEntry struct {
	logicalPath string
	source      string
	checksum    string
}

// Writer accumulates entries and serializes them into a new container.
//
// A Writer does not touch the disk until Finalize. It is not safe for
// concurrent use.
type Writer struct {
	subject string
	path    string
	pending []pendingEntry
	byPath  map[string]int // logical path -> index into pending
	now     func() time.Time
}

// NewWriter returns a writer that will create the container at path for the
// given subject.
func NewWriter(subject, path string) *Writer {
	return &Writer{
		subject: subject,
		path:    path,
		byPath:  make(map[string]int),
		now:     time.Now,
	}
}

// AddEntry registers source to be stored under logicalPath with its
// precomputed checksum.
//
// Registering the same logical path twice keeps the position of the first
// registration but the source and checksum of the last one.
func (w *Writer) AddEntry(logicalPath, source, checksum string) {
	p := pendingEntry{logicalPath: logicalPath, source: source, checksum: checksum}

	if i, ok := w.byPath[logicalPath]; ok {
		w.pending[i] = p
		return
	}

	w.byPath[logicalPath] = len(w.pending)
	w.pending = append(w.pending, p)
}

// Len returns the number of distinct logical paths registered so far.
func (w *Writer) Len() int {
	return len(w.pending)
}

// Path returns the destination of the container.
func (w *Writer) Path() string {
	return w.path
}

// Finalize writes the container. With no registered entries it does nothing.
//
// On failure the destination may be left partially written; it must not be
// used for restore. The file handle is released on every path.
func (w *Writer) Finalize() (err error) {
	if len(w.pending) == 0 {
		return nil
	}
	if len(w.subject) > MaxSubjectNameLength {
		return ErrSubjectNameTooLong
	}
	if !utf8.ValidString(w.subject) {
		return ErrSubjectNameInvalid
	}

	f, err := os.Create(w.path)
	if err != nil {
		return errors.Wrap(err, "create archive file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close archive file")
		}
	}()

	headerSize := HeaderSize(len(w.subject))
	if _, err := f.Write(make([]byte, headerSize)); err != nil {
		return errors.Wrap(err, "reserve header")
	}

	offset := uint64(headerSize)
	entries := make([]Entry, 0, len(w.pending))

	for _, p := range w.pending {
		entry, err := writePayload(f, p, offset)
		if err != nil {
			return err
		}

		entries = append(entries, entry)
		offset += entry.DataSize
	}

	index, err := encodeIndex(entries)
	if err != nil {
		return err
	}
	if _, err := f.Write(index); err != nil {
		return errors.Wrap(err, "write index")
	}

	header, err := EncodeHeader(&Header{
		Version:     Version,
		CreatedAt:   uint64(w.now().Unix()),
		Subject:     w.subject,
		IndexOffset: offset,
		IndexSize:   uint64(len(index)),
		EntryCount:  uint32(len(entries)),
	})
	if err != nil {
		return err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "seek to header")
	}
	if _, err := f.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}

	return errors.Wrap(f.Sync(), "sync archive file")
}

// writePayload appends the content of p.source at the current position of f,
// which must equal offset.
func writePayload(f *os.File, p pendingEntry, offset uint64) (Entry, error) {
	info, err := os.Stat(p.source)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "stat %s", p.source)
	}

	src, err := os.Open(p.source)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "open %s", p.source)
	}
	defer src.Close()

	compression := compressionFor(info.Size())

	switch compression {
	case CompressionZstd:
		if err := compressTo(f, src); err != nil {
			return Entry{}, errors.Wrapf(err, "store %s", p.source)
		}
	default:
		if _, err := io.Copy(f, src); err != nil {
			return Entry{}, errors.Wrapf(err, "store %s", p.source)
		}
	}

	end, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return Entry{}, errors.Wrap(err, "locate end of payload")
	}

	return Entry{
		LogicalPath: p.logicalPath,
		Checksum:    p.checksum,
		Compression: compression,
		DataOffset:  offset,
		DataSize:    uint64(end) - offset,
		Modified:    info.ModTime(),
	}, nil
}
