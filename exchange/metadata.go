// Package exchange implements the parameter exchange protocol (C6):
// password gate, filename/hash/size metadata exchange, and resume-point
// negotiation, plus the on-disk file resolution a receiver performs before
// it can answer with a resume point.
package exchange

import "encoding/binary"

// FileMetadata is the sender-declared identity of a file being offered:
// its name, its content hash (treated purely as an identity key, never
// verified against delivered bytes), and its size.
type FileMetadata struct {
	Name string
	Hash []byte
	Size int32
}

// encodeInt32 / decodeInt32 are the little-endian combinators used for
// both the file-size field and the resume-point field.
func encodeInt32(v int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

func decodeInt32(buf []byte) int32 {
	return int32(binary.LittleEndian.Uint32(buf))
}
