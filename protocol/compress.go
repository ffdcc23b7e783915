package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression names the algorithm a frame body is compressed with. It is
// carried in the high nibble of the codec byte, so an uncompressed frame
// is laid out exactly as before compression existed.
type Compression byte

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1 // LZ4 frame format
	CompressionZstd Compression = 2
)

// MaxBodySize bounds the decompressed size of a frame body.
const MaxBodySize = 64 << 20

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	}
	return fmt.Sprintf("Compression(%d)", byte(c))
}

// Valid reports whether c is a known algorithm.
func (c Compression) Valid() bool {
	return c <= CompressionZstd
}

// ParseCompression maps an algorithm name ("none", "lz4", "zstd") to its
// Compression.
func ParseCompression(name string) (Compression, error) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown compression %q", name)
}

// The zstd encoder and decoder are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("protocol: zstd encoder: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxBodySize))
	if err != nil {
		panic("protocol: zstd decoder: " + err.Error())
	}
}

func compress(c Compression, body []byte) ([]byte, error) {
	if len(body) == 0 {
		return body, nil
	}
	switch c {
	case CompressionNone:
		return body, nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(body); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(body, nil), nil
	}
	return nil, fmt.Errorf("unsupported compression: %d", byte(c))
}

func decompress(c Compression, body []byte) ([]byte, error) {
	if len(body) == 0 {
		return body, nil
	}
	switch c {
	case CompressionNone:
		return body, nil
	case CompressionLZ4:
		out, err := io.ReadAll(io.LimitReader(lz4.NewReader(bytes.NewReader(body)), MaxBodySize+1))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if len(out) > MaxBodySize {
			return nil, fmt.Errorf("lz4 decompress: body exceeds %d bytes", MaxBodySize)
		}
		return out, nil
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported compression: %d", byte(c))
}
