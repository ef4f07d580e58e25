package archive

import (
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Files of at least this many uncompressed bytes are stored as zstd frames.
const CompressionThreshold = 1024

// ZstdLevel is the zstd compression level used for payloads.
const ZstdLevel = 3

// compressionFor picks the tag for a file of the given uncompressed size.
func compressionFor(size int64) Compression {
	if size >= CompressionThreshold {
		return CompressionZstd
	}
	return CompressionNone
}

// compressTo streams r into w as a single zstd frame.
func compressTo(w io.Writer, r io.Reader) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(ZstdLevel)))
	if err != nil {
		return errors.Wrap(err, "create zstd encoder")
	}

	if _, err := io.Copy(enc, r); err != nil {
		enc.Close()
		return errors.Wrap(err, "compress payload")
	}

	return errors.Wrap(enc.Close(), "finish zstd frame")
}

func newDecoder() (*zstd.Decoder, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, errors.Wrap(err, "create zstd decoder")
	}
	return dec, nil
}
