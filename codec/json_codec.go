package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"malcolm-pva/pvdata"
)

// JSONCodec writes the structure as a typed JSON document.
// Pros: human-readable, easy to debug.
// Cons: larger payload, NaN and Inf cannot be encoded.
type JSONCodec struct{}

func (c *JSONCodec) Encode(pv *pvdata.PVStructure) ([]byte, error) {
	doc, err := newDocument(pv)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func (c *JSONCodec) Decode(data []byte) (*pvdata.PVStructure, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	// Numbers stay json.Number so 64-bit integers survive.
	dec.UseNumber()
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return doc.structure()
}

func (c *JSONCodec) Type() CodecType {
	return CodecTypeJSON
}
