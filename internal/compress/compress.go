// Package compress holds the codecs used for tombstone snapshots.
package compress

import "fmt"

const (
	NameNop    = "none"
	NameGZip   = "gzip"
	NameBrotli = "brotli"
	NameLZ4    = "lz4"
)

type Compress interface {
	Name() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// New returns the codec registered under name. An empty name selects gzip.
func New(name string) (Compress, error) {
	switch name {
	case NameGZip, "":
		return NewGZip(), nil
	case NameNop:
		return NewNop(), nil
	case NameBrotli:
		return NewBrotli(), nil
	case NameLZ4:
		return NewLZ4(), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
}
