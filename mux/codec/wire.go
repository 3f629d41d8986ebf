package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// maxStringLength bounds decoded length-prefixed fields so a corrupt
// prefix cannot trigger an unbounded allocation.
const maxStringLength = 1 << 20

var errStringTooLong = errors.New("sshmux: string field exceeds maximum length")

// writeString appends s in RFC 4251 string encoding: a big-endian
// uint32 length followed by the bytes.
func writeString(buf *bytes.Buffer, s []byte) {
	binary.Write(buf, binary.BigEndian, uint32(len(s)))
	buf.Write(s)
}

func readString(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length > maxStringLength {
		return nil, errStringTooLong
	}
	s := make([]byte, length)
	if _, err := io.ReadFull(r, s); err != nil {
		return nil, err
	}
	return s, nil
}

func readBool(r io.Reader) (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}
