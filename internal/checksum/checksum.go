package checksum

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
	"lukechampine.com/blake3"
)

// Size is the digest length in bytes (BLAKE3-256).
const Size = 32

const readBufferSize = 64 * 1024

// Bytes returns the lowercase hex BLAKE3-256 digest of data.
func Bytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Reader streams r through the hasher and returns the hex digest.
func Reader(r io.Reader) (string, error) {
	hasher := blake3.New(Size, nil)

	buf := make([]byte, readBufferSize)
	if _, err := io.CopyBuffer(hasher, r, buf); err != nil {
		return "", errors.Wrap(err, "read data during hashing")
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// File hashes the content of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open file before hashing")
	}
	defer f.Close()

	return Reader(f)
}

// Validate reports whether data hashes to the expected digest.
func Validate(data []byte, expected string) bool {
	return Bytes(data) == expected
}
