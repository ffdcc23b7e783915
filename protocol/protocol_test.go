package protocol

import (
	"bytes"
	"strings"
	"testing"

	"malcolm-pva/codec"
)

func TestEncodeDecode(t *testing.T) {
	header := Header{
		CodecType: codec.CodecTypeCBOR,
		Kind:      FrameRequest,
		Seq:       12345,
	}
	body := []byte("hello world")

	var buf bytes.Buffer
	if err := Encode(&buf, &header, body); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if buf.Len() != HeaderSize+len(body) {
		t.Fatalf("frame is %d bytes, want %d", buf.Len(), HeaderSize+len(body))
	}
	if got := buf.Bytes()[:3]; string(got) != "pva" {
		t.Errorf("magic = %q", got)
	}

	decoded, decodedBody, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.CodecType != header.CodecType {
		t.Errorf("CodecType mismatch: got %s, want %s", decoded.CodecType, header.CodecType)
	}
	if decoded.Kind != header.Kind {
		t.Errorf("Kind mismatch: got %s, want %s", decoded.Kind, header.Kind)
	}
	if decoded.Seq != header.Seq {
		t.Errorf("Seq mismatch: got %d, want %d", decoded.Seq, header.Seq)
	}
	if decoded.BodyLen != uint32(len(body)) {
		t.Errorf("BodyLen mismatch: got %d, want %d", decoded.BodyLen, len(body))
	}
	if !bytes.Equal(decodedBody, body) {
		t.Errorf("Body mismatch: got %s, want %s", decodedBody, body)
	}
}

func TestDecodeInvalidHeader(t *testing.T) {
	cases := []struct {
		name  string
		frame []byte
		want  string
	}{
		{"magic", []byte{'m', 'r', 'p', Version, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0}, "invalid magic number"},
		{"version", []byte{'p', 'v', 'a', 0xFF, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0}, "unsupported version"},
		{"codec", []byte{'p', 'v', 'a', Version, 9, 0, 0, 0, 0, 1, 0, 0, 0, 0}, "unsupported codec type"},
		{"kind", []byte{'p', 'v', 'a', Version, 1, 7, 0, 0, 0, 1, 0, 0, 0, 0}, "unsupported frame kind"},
		{"compression", []byte{'p', 'v', 'a', Version, 0x31, 0, 0, 0, 0, 1, 0, 0, 0, 0}, "unsupported compression"},
		{"size", []byte{'p', 'v', 'a', Version, 1, 0, 0, 0, 0, 1, 0x7f, 0, 0, 0}, "exceeds"},
	}
	for _, c := range cases {
		_, _, err := Decode(bytes.NewReader(c.frame))
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Errorf("%s: Decode = %v, want %q", c.name, err, c.want)
		}
	}
}

func TestDecodeEmptyErrorFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, &Header{CodecType: codec.CodecTypeJSON, Kind: FrameError, Seq: 3}, nil); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	h, body, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if h.Kind != FrameError || h.BodyLen != 0 || len(body) != 0 {
		t.Errorf("header = %+v, body = %q", h, body)
	}
}

func TestDecodeLargeBody(t *testing.T) {
	largeBody := make([]byte, 1024*1024)
	for i := range largeBody {
		largeBody[i] = byte(i % 256)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, &Header{CodecType: codec.CodecTypeBinary, Kind: FrameResponse, Seq: 999}, largeBody); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	_, decodedBody, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(decodedBody, largeBody) {
		t.Errorf("large body mismatch")
	}
}

func TestDecodeTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, &Header{CodecType: codec.CodecTypeBinary, Kind: FrameRequest}, []byte("abcdef")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Decode(bytes.NewReader(buf.Bytes()[:buf.Len()-2])); err == nil {
		t.Errorf("Decode of a truncated frame succeeded")
	}
}

func TestCompressedFrames(t *testing.T) {
	body := bytes.Repeat([]byte("scanpointgenerator:generator/LineGenerator:1.0 "), 200)
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			h := &Header{CodecType: codec.CodecTypeJSON, Compression: c, Kind: FrameResponse, Seq: 7}
			if err := Encode(&buf, h, body); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if c != CompressionNone && buf.Len() >= HeaderSize+len(body) {
				t.Errorf("compressed frame is %d bytes, body alone is %d", buf.Len(), len(body))
			}
			if got := buf.Bytes()[4]; got != byte(c)<<4|byte(codec.CodecTypeJSON) {
				t.Errorf("codec byte = %#x", got)
			}
			decoded, decodedBody, err := Decode(&buf)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if decoded.Compression != c || decoded.CodecType != codec.CodecTypeJSON {
				t.Errorf("header = %+v", decoded)
			}
			if !bytes.Equal(decodedBody, body) {
				t.Errorf("body mismatch after %s", c)
			}
		})
	}
}

func TestCompressedEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, &Header{Compression: CompressionZstd, Kind: FrameError}, nil); err != nil {
		t.Fatal(err)
	}
	h, body, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if h.BodyLen != 0 || len(body) != 0 {
		t.Errorf("header = %+v, body = %q", h, body)
	}
}

func TestCorruptCompressedBody(t *testing.T) {
	frame := []byte{'p', 'v', 'a', Version, 0x21, 0, 0, 0, 0, 1, 0, 0, 0, 4, 1, 2, 3, 4}
	if _, _, err := Decode(bytes.NewReader(frame)); err == nil || !strings.Contains(err.Error(), "zstd") {
		t.Errorf("Decode = %v, want a zstd error", err)
	}
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		got, err := ParseCompression(c.String())
		if err != nil || got != c {
			t.Errorf("ParseCompression(%q) = %v, %v", c, got, err)
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Errorf("ParseCompression(gzip) succeeded")
	}
	if err := Encode(&bytes.Buffer{}, &Header{Compression: 5}, []byte("x")); err == nil {
		t.Errorf("Encode with compression 5 succeeded")
	}
}
