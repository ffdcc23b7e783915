package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"malcolm-pva/pvdata"
)

// encMode uses Core Deterministic Encoding, so equal structures always
// produce identical bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORCodec writes the same typed document as JSONCodec in CBOR.
// Pros: compact, deterministic, carries NaN and Inf.
type CBORCodec struct{}

func (c *CBORCodec) Encode(pv *pvdata.PVStructure) ([]byte, error) {
	doc, err := newDocument(pv)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(doc)
}

func (c *CBORCodec) Decode(data []byte) (*pvdata.PVStructure, error) {
	var doc document
	if err := decMode.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return doc.structure()
}

func (c *CBORCodec) Type() CodecType {
	return CodecTypeCBOR
}

// Diagnose returns the CBOR diagnostic notation of data.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
