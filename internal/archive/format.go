// Package archive implements the on-disk container that holds every food
// record once, addressed by (index name, index value).
//
// File layout (.fcar):
//
//	[64-byte header][payload region][directory][32-byte footer]
//
// Each payload is compressed on its own with zstd so a lookup reads and
// decodes only the bytes it needs. The directory is a zstd-compressed JSON
// document listing, per index, every value with either the location of its
// payload or the targets of its link. The footer repeats the directory
// location and carries a CRC-32 of the compressed directory bytes.
package archive

import (
	"encoding/binary"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

const (
	// MagicBytes spells "FCAR" in little-endian order.
	MagicBytes    uint32 = 0x52414346
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32
)

// Header is the fixed-size block at offset 0.
type Header struct {
	Magic         uint32
	Version       uint32
	IndexCount    uint32
	EntryCount    uint32
	LinkCount     uint32
	CreatedAt     int64
	PayloadOffset int64
	PayloadSize   int64
	DirOffset     int64
	DirSize       int64
}

func (h Header) encode() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.IndexCount)
	binary.LittleEndian.PutUint32(b[12:16], h.EntryCount)
	binary.LittleEndian.PutUint32(b[16:20], h.LinkCount)
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.PayloadOffset))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.PayloadSize))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.DirOffset))
	binary.LittleEndian.PutUint64(b[56:64], uint64(h.DirSize))
	return b
}

func decodeHeader(b []byte) (Header, error) {
	h := Header{
		Magic:         binary.LittleEndian.Uint32(b[0:4]),
		Version:       binary.LittleEndian.Uint32(b[4:8]),
		IndexCount:    binary.LittleEndian.Uint32(b[8:12]),
		EntryCount:    binary.LittleEndian.Uint32(b[12:16]),
		LinkCount:     binary.LittleEndian.Uint32(b[16:20]),
		CreatedAt:     int64(binary.LittleEndian.Uint64(b[24:32])),
		PayloadOffset: int64(binary.LittleEndian.Uint64(b[32:40])),
		PayloadSize:   int64(binary.LittleEndian.Uint64(b[40:48])),
		DirOffset:     int64(binary.LittleEndian.Uint64(b[48:56])),
		DirSize:       int64(binary.LittleEndian.Uint64(b[56:64])),
	}
	if h.Magic != MagicBytes {
		return h, fmt.Errorf("%w: bad magic bytes %x", apperrors.ErrCorrupt, h.Magic)
	}
	if h.Version != FormatVersion {
		return h, fmt.Errorf("%w: unsupported format version %d", apperrors.ErrCorrupt, h.Version)
	}
	return h, nil
}

type footer struct {
	Checksum   uint32
	EntryCount uint32
	DirOffset  int64
	DirSize    int64
	LinkCount  uint32
}

func (f footer) encode() []byte {
	b := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(b[0:4], f.Checksum)
	binary.LittleEndian.PutUint32(b[4:8], f.EntryCount)
	binary.LittleEndian.PutUint64(b[8:16], uint64(f.DirOffset))
	binary.LittleEndian.PutUint64(b[16:24], uint64(f.DirSize))
	binary.LittleEndian.PutUint32(b[24:28], f.LinkCount)
	binary.LittleEndian.PutUint32(b[28:32], MagicBytes)
	return b
}

func decodeFooter(b []byte) (footer, error) {
	if m := binary.LittleEndian.Uint32(b[28:32]); m != MagicBytes {
		return footer{}, fmt.Errorf("%w: bad footer magic %x (truncated file?)", apperrors.ErrCorrupt, m)
	}
	return footer{
		Checksum:   binary.LittleEndian.Uint32(b[0:4]),
		EntryCount: binary.LittleEndian.Uint32(b[4:8]),
		DirOffset:  int64(binary.LittleEndian.Uint64(b[8:16])),
		DirSize:    int64(binary.LittleEndian.Uint64(b[16:24])),
		LinkCount:  binary.LittleEndian.Uint32(b[24:28]),
	}, nil
}

// Target names the (index, value) pair a link resolves to.
type Target struct {
	Index string `json:"i"`
	Value string `json:"v"`
}

// Entry is a payload to be stored under one index value.
type Entry struct {
	Value string
	Data  []byte
}

// Link aliases one index value to one or more payload entries. Several
// targets model many:1 keys such as a category shared by many foods.
type Link struct {
	Value   string
	Targets []Target
}

// dirEntry is a directory row. Exactly one of the payload location and
// Targets is set.
type dirEntry struct {
	Value   string   `json:"v"`
	Offset  int64    `json:"o,omitempty"`
	Size    int64    `json:"s,omitempty"`
	RawSize int64    `json:"r,omitempty"`
	Targets []Target `json:"t,omitempty"`
}

func (e *dirEntry) isLink() bool {
	return len(e.Targets) > 0
}

type indexDir struct {
	Name    string     `json:"n"`
	Entries []dirEntry `json:"e"`
}

type directory struct {
	Indices []indexDir `json:"i"`
}
