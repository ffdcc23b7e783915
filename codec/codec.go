// Package codec turns a pvData container into bytes and back.
//
// Every codec carries the introspection data with the values, so a decoded
// PVStructure is equal to the encoded one (pvdata.Equal), type identifiers
// included.
package codec

import (
	"errors"
	"fmt"

	"malcolm-pva/pvdata"
)

type CodecType byte

const (
	CodecTypeJSON   CodecType = 0
	CodecTypeBinary CodecType = 1
	CodecTypeCBOR   CodecType = 2
)

func (t CodecType) String() string {
	switch t {
	case CodecTypeJSON:
		return "json"
	case CodecTypeBinary:
		return "binary"
	case CodecTypeCBOR:
		return "cbor"
	}
	return fmt.Sprintf("CodecType(%d)", byte(t))
}

// ParseCodecType maps a codec name ("json", "binary", "cbor") to its type.
func ParseCodecType(name string) (CodecType, error) {
	for _, t := range []CodecType{CodecTypeJSON, CodecTypeBinary, CodecTypeCBOR} {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown codec %q", name)
}

// ErrMalformed is returned when encoded data cannot be decoded.
var ErrMalformed = errors.New("codec: malformed data")

type Codec interface {
	Encode(pv *pvdata.PVStructure) ([]byte, error)
	Decode(data []byte) (*pvdata.PVStructure, error)
	Type() CodecType
}

// GetCodec returns the codec for codecType. Unknown types get the binary codec.
func GetCodec(codecType CodecType) Codec {
	switch codecType {
	case CodecTypeJSON:
		return &JSONCodec{}
	case CodecTypeCBOR:
		return &CBORCodec{}
	}
	return &BinaryCodec{}
}

// Valid reports whether t names a codec.
func (t CodecType) Valid() bool {
	return t == CodecTypeJSON || t == CodecTypeBinary || t == CodecTypeCBOR
}
