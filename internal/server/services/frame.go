package services

import (
	"encoding/binary"
	"fmt"

	"github.com/crateport/crateport/internal/common"
)

// Frame is a decoded publish request body: a 4-byte little-endian length,
// that many bytes of JSON metadata, another 4-byte little-endian length, and
// that many bytes of archive.
type Frame struct {
	Metadata []byte
	Crate    []byte
}

// ParseFrame decodes the two length-prefixed sections of a publish body.
// Lengths above the configured bounds, or lengths overrunning the body, fail
// with malformed-upload.
func ParseFrame(body []byte, maxMetadata, maxCrate uint32) (*Frame, error) {
	metadata, rest, err := readSection(body, maxMetadata)
	if err != nil {
		return nil, fmt.Errorf("metadata section: %w", err)
	}
	crate, _, err := readSection(rest, maxCrate)
	if err != nil {
		return nil, fmt.Errorf("archive section: %w", err)
	}
	return &Frame{Metadata: metadata, Crate: crate}, nil
}

func readSection(body []byte, max uint32) ([]byte, []byte, error) {
	if len(body) < 4 {
		return nil, nil, fmt.Errorf("%w: truncated length prefix", common.ErrMalformedUpload)
	}
	n := binary.LittleEndian.Uint32(body)
	if n > max {
		return nil, nil, fmt.Errorf("%w: declared length %d exceeds limit %d", common.ErrMalformedUpload, n, max)
	}
	body = body[4:]
	if uint32(len(body)) < n {
		return nil, nil, fmt.Errorf("%w: declared length %d overruns body", common.ErrMalformedUpload, n)
	}
	return body[:n], body[n:], nil
}
