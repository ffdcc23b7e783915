// Package protocol frames encoded pvData structures exchanged with a
// device.
//
// A frame is a fixed 14-byte header followed by the body. The receiver
// reads the header first, then exactly bodyLen bytes.
//
// Frame format:
//
//	0      3  4  5  6         10        14
//	┌──────┬──┬──┬──┬─────────┬─────────┬───────────────┐
//	│magic │v │ct│fk│   seq   │ bodyLen │    body ...    │
//	│ pva  │01│  │  │ uint32  │ uint32  │ bodyLen bytes  │
//	└──────┴──┴──┴──┴─────────┴─────────┴───────────────┘
//
// The body of a request or response frame is a structure encoded with the
// codec named in the header. The body of an error frame is the error
// message as UTF-8 text. The low nibble of the codec byte names the
// codec and the high nibble the body's Compression; bodyLen counts the
// bytes on the wire.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"malcolm-pva/codec"
)

// Magic number bytes: "pva".
const (
	MagicNumber byte = 0x70 // 'p'
	MagicByte2  byte = 0x76 // 'v'
	MagicByte3  byte = 0x61 // 'a'
	Version     byte = 0x01
	HeaderSize  int  = 14 // 3 (magic) + 1 (version) + 1 (codec) + 1 (kind) + 4 (seq) + 4 (bodyLen)
)

// FrameKind distinguishes requests, replies and error replies.
type FrameKind byte

const (
	FrameRequest  FrameKind = 0 // client → device
	FrameResponse FrameKind = 1 // device → client, body is the reply structure
	FrameError    FrameKind = 2 // device → client, body is the error message
)

func (k FrameKind) String() string {
	switch k {
	case FrameRequest:
		return "request"
	case FrameResponse:
		return "response"
	case FrameError:
		return "error"
	}
	return fmt.Sprintf("FrameKind(%d)", byte(k))
}

// Header is the fixed frame header.
type Header struct {
	CodecType   codec.CodecType
	Compression Compression
	Kind        FrameKind
	Seq         uint32 // id of the message, matches a reply to its request
	BodyLen     uint32 // compressed length
}

// Encode compresses body as h says and writes a complete frame to w.
// BodyLen is taken from the compressed body. Callers sharing w between
// goroutines must serialise calls.
func Encode(w io.Writer, h *Header, body []byte) error {
	if !h.Compression.Valid() {
		return fmt.Errorf("unsupported compression: %d", byte(h.Compression))
	}
	body, err := compress(h.Compression, body)
	if err != nil {
		return err
	}
	buf := make([]byte, HeaderSize, HeaderSize+len(body))
	copy(buf[0:3], []byte{MagicNumber, MagicByte2, MagicByte3})
	buf[3] = Version
	buf[4] = byte(h.Compression)<<4 | byte(h.CodecType)&0x0f
	buf[5] = byte(h.Kind)
	binary.BigEndian.PutUint32(buf[6:10], h.Seq)
	binary.BigEndian.PutUint32(buf[10:14], uint32(len(body)))
	_, err = w.Write(append(buf, body...))
	return err
}

// Decode reads a complete frame from r, validates its header and returns
// the decompressed body.
func Decode(r io.Reader) (*Header, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, nil, err
	}

	if headerBuf[0] != MagicNumber || headerBuf[1] != MagicByte2 || headerBuf[2] != MagicByte3 {
		return nil, nil, fmt.Errorf("invalid magic number: %x", headerBuf[0:3])
	}
	if headerBuf[3] != Version {
		return nil, nil, fmt.Errorf("unsupported version: %d", headerBuf[3])
	}
	ct := codec.CodecType(headerBuf[4] & 0x0f)
	if !ct.Valid() {
		return nil, nil, fmt.Errorf("unsupported codec type: %d", ct)
	}
	compression := Compression(headerBuf[4] >> 4)
	if !compression.Valid() {
		return nil, nil, fmt.Errorf("unsupported compression: %d", compression)
	}
	kind := FrameKind(headerBuf[5])
	if kind != FrameRequest && kind != FrameResponse && kind != FrameError {
		return nil, nil, fmt.Errorf("unsupported frame kind: %d", headerBuf[5])
	}

	seq := binary.BigEndian.Uint32(headerBuf[6:10])
	bodyLen := binary.BigEndian.Uint32(headerBuf[10:14])
	if bodyLen > MaxBodySize {
		return nil, nil, fmt.Errorf("frame body of %d bytes exceeds %d", bodyLen, MaxBodySize)
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, err
	}
	body, err := decompress(compression, body)
	if err != nil {
		return nil, nil, err
	}

	return &Header{
		CodecType:   ct,
		Compression: compression,
		Kind:        kind,
		Seq:         seq,
		BodyLen:     bodyLen,
	}, body, nil
}
