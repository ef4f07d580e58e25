// Package archive implements the single-file container used to store one
// snapshot of a game's save data.
//
// A container has three regions, always in this order:
//
//	header  | payloads | index
//
// The header is fixed-size plus the subject name:
//
//	magic "ALETHEIA" (8) | version (1) | created-at u64 (8) | name length u8 (1) |
//	name (N) | index offset u64 (8) | index size u64 (8) | entry count u32 (4)
//
// All integers are little-endian. Payloads are either the raw file bytes or a
// zstd frame, depending on the file's uncompressed size. The index is a YAML
// sequence of entries describing where each payload lives and the BLAKE3
// checksum of its uncompressed content.
//
// The writer reserves the header with zero bytes, streams every payload,
// appends the index, and only then seeks back and writes the real header. An
// interrupted write therefore leaves a zeroed header, which fails the magic
// check on open.
//
// Open verifies every entry before returning; a reader that was successfully
// opened can extract any entry without further integrity checks.
package archive
