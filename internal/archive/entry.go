package archive

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Compression tags how an entry's payload is stored.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

func (c Compression) MarshalYAML() (interface{}, error) {
	switch c {
	case CompressionNone, CompressionZstd:
		return c.String(), nil
	default:
		return nil, fmt.Errorf("unknown compression tag %d", uint8(c))
	}
}

func (c *Compression) UnmarshalYAML(value *yaml.Node) error {
	var tag string
	if err := value.Decode(&tag); err != nil {
		return err
	}

	switch tag {
	case "None":
		*c = CompressionNone
	case "Zstd":
		*c = CompressionZstd
	default:
		return fmt.Errorf("unknown compression tag %q", tag)
	}
	return nil
}

// Entry describes one stored file.
type Entry struct {
	LogicalPath string      // Portable path the file was backed up under
	Checksum    string      // Hex BLAKE3 digest of the uncompressed content
	Compression Compression // How the payload is stored
	DataOffset  uint64      // Absolute offset of the payload
	DataSize    uint64      // Stored (possibly compressed) payload length
	Modified    time.Time   // Modification time of the source file
}

// systemTime is the on-disk timestamp representation: whole seconds plus the
// nanosecond remainder since the Unix epoch.
type systemTime struct {
	Secs  uint64 `yaml:"secs_since_epoch"`
	Nanos uint32 `yaml:"nanos_since_epoch"`
}

func toSystemTime(t time.Time) systemTime {
	if t.Before(time.Unix(0, 0)) {
		return systemTime{}
	}
	return systemTime{Secs: uint64(t.Unix()), Nanos: uint32(t.Nanosecond())}
}

func (st systemTime) time() time.Time {
	return time.Unix(int64(st.Secs), int64(st.Nanos))
}

type indexEntry struct {
	Checksum    string      `yaml:"checksum"`
	Compression Compression `yaml:"compression"`
	DataOffset  uint64      `yaml:"data_offset"`
	DataSize    uint64      `yaml:"data_size"`
	Modified    systemTime  `yaml:"modified"`
	ShrunkPath  string      `yaml:"shrunk_path"`
}

func encodeIndex(entries []Entry) ([]byte, error) {
	doc := make([]indexEntry, 0, len(entries))
	for _, e := range entries {
		doc = append(doc, indexEntry{
			Checksum:    e.Checksum,
			Compression: e.Compression,
			DataOffset:  e.DataOffset,
			DataSize:    e.DataSize,
			Modified:    toSystemTime(e.Modified),
			ShrunkPath:  e.LogicalPath,
		})
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, &SerializationError{Cause: err}
	}
	return data, nil
}

func decodeIndex(data []byte) ([]Entry, error) {
	var doc []indexEntry
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &SerializationError{Cause: err}
	}

	entries := make([]Entry, 0, len(doc))
	for _, ie := range doc {
		entries = append(entries, Entry{
			LogicalPath: ie.ShrunkPath,
			Checksum:    ie.Checksum,
			Compression: ie.Compression,
			DataOffset:  ie.DataOffset,
			DataSize:    ie.DataSize,
			Modified:    ie.Modified.time(),
		})
	}
	return entries, nil
}
