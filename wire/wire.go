// Package wire implements the primitive, fixed-width codec shared by every
// message this module puts on the wire: trees, file headers, and chunk
// frames alike.
//
// The U32/U64/String codecs are little-endian. Outer frame lengths (the
// length prefixes session.Session writes around a whole tree, a file
// header, or a file chunk) are big-endian, written with the BE32/BE64
// helpers below — see the session package doc for the frame layout.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// MaxStringLen bounds the length a single WriteString/ReadString call will
// accept, as a cheap defense against a corrupt or hostile length prefix
// driving an enormous allocation.
const MaxStringLen = 1 << 20

// WriteU8 writes a single byte.
func WriteU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return errors.Wrap(err, "writing u8")
}

// ReadU8 reads a single byte.
func ReadU8(r io.Reader) (uint8, error) {
	var buf [1]byte
	_, err := io.ReadFull(r, buf[:])
	return buf[0], errors.Wrap(err, "reading u8")
}

// WriteU32 writes a 32-bit little-endian integer.
func WriteU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "writing u32")
}

// ReadU32 reads a 32-bit little-endian integer.
func ReadU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	_, err := io.ReadFull(r, buf[:])
	if err != nil {
		return 0, errors.Wrap(err, "reading u32")
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// WriteU64 writes a 64-bit little-endian integer.
func WriteU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "writing u64")
}

// ReadU64 reads a 64-bit little-endian integer.
func ReadU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	_, err := io.ReadFull(r, buf[:])
	if err != nil {
		return 0, errors.Wrap(err, "reading u64")
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// WriteString writes a u32 length prefix followed by the UTF-8 bytes of s.
func WriteString(w io.Writer, s string) error {
	if err := WriteU32(w, uint32(len(s))); err != nil {
		return errors.Wrap(err, "writing string length")
	}
	_, err := io.WriteString(w, s)
	return errors.Wrap(err, "writing string bytes")
}

// ReadString reads a u32 length prefix followed by that many UTF-8 bytes.
func ReadString(r io.Reader) (string, error) {
	n, err := ReadU32(r)
	if err != nil {
		return "", errors.Wrap(err, "reading string length")
	}
	if n > MaxStringLen {
		return "", errors.Errorf("string length %d exceeds limit %d", n, MaxStringLen)
	}
	buf := make([]byte, n)
	_, err = io.ReadFull(r, buf)
	if err != nil {
		return "", errors.Wrap(err, "reading string bytes")
	}
	return string(buf), nil
}

// WriteBE64 writes a 64-bit big-endian integer.
// This is used only for the outer frame lengths the session layer puts
// around a tree payload or a file header; integers inside a frame are
// little-endian (see the package doc).
func WriteBE64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "writing be64")
}

// ReadBE64 reads a 64-bit big-endian integer.
func ReadBE64(r io.Reader) (uint64, error) {
	var buf [8]byte
	_, err := io.ReadFull(r, buf[:])
	if err != nil {
		return 0, errors.Wrap(err, "reading be64")
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// WriteBE32 writes a 32-bit big-endian integer, used for file-chunk length
// frames (see the session package).
func WriteBE32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "writing be32")
}

// ReadBE32 reads a 32-bit big-endian integer.
func ReadBE32(r io.Reader) (uint32, error) {
	var buf [4]byte
	_, err := io.ReadFull(r, buf[:])
	if err != nil {
		return 0, errors.Wrap(err, "reading be32")
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}
