package marshal

import (
	"fmt"

	"malcolm-pva/message"
	"malcolm-pva/pvdata"
)

var (
	methodStructure = mustStructure(pvdata.NewFieldBuilder().Add("method", pvdata.PVString))

	emptyStructure = mustStructure(pvdata.NewFieldBuilder())

	getStructure = mustStructure(pvdata.NewFieldBuilder().
			Add("type", pvdata.PVString).
			Add("id", pvdata.PVLong).
			AddArray("endpoint", pvdata.PVString))

	// valueStructure carries the value of a PUT and of every reply.
	valueStructure = mustStructure(pvdata.NewFieldBuilder().AddField("value", pvdata.VariantUnion()))
)

// MarshalMessage returns the structure a CALL, GET or PUT message is sent
// as. The arguments of a CALL become its parameters structure: a map's
// entries are its fields, nil arguments leave it empty.
func MarshalMessage(msg *message.MalcolmMessage) (*pvdata.PVStructure, error) {
	switch msg.Type {
	case message.TypeCall:
		return marshalCall(msg)
	case message.TypeGet:
		pv := pvdata.CreatePVStructure(getStructure)
		w := &fieldWriter{pv: pv}
		put(w, "type", string(msg.Type))
		put(w, "id", msg.ID)
		putArray(w, "endpoint", msg.Endpoint)
		if w.err != nil {
			return nil, w.err
		}
		return pv, nil
	case message.TypePut:
		return MarshalValue(msg.Value)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnexpectedMessageType, msg.Type)
}

func marshalCall(msg *message.MalcolmMessage) (*pvdata.PVStructure, error) {
	params := emptyStructure
	if !isNil(msg.Arguments) {
		var err error
		if params, err = StructureFor(msg.Arguments); err != nil {
			return nil, fmt.Errorf("%s arguments: %w", msg.Method, err)
		}
	}
	s, err := pvdata.NewFieldBuilder().
		AddField("method", methodStructure).
		AddField("parameters", params).
		CreateStructure()
	if err != nil {
		return nil, err
	}
	pv := pvdata.CreatePVStructure(s)
	if err := pvdata.Put(pv, "method.method", string(msg.Method)); err != nil {
		return nil, err
	}
	if params.NumFields() > 0 {
		ps, err := pv.StructureField("parameters")
		if err != nil {
			return nil, err
		}
		if err := Populate(ps, msg.Arguments); err != nil {
			return nil, fmt.Errorf("%s arguments: %w", msg.Method, err)
		}
	}
	return pv, nil
}

// MarshalValue wraps v in a value structure. A nil v leaves the value
// empty.
func MarshalValue(v any) (*pvdata.PVStructure, error) {
	pv := pvdata.CreatePVStructure(valueStructure)
	if isNil(v) {
		return pv, nil
	}
	f, err := marshalField(v)
	if err != nil {
		return nil, err
	}
	u, err := pv.UnionField("value")
	if err != nil {
		return nil, err
	}
	if err := u.Set(f); err != nil {
		return nil, err
	}
	return pv, nil
}

// UnmarshalValue returns the value held by a value structure.
func UnmarshalValue(pv *pvdata.PVStructure) (any, error) {
	u, err := pv.UnionField("value")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedMessageType, err)
	}
	return unmarshalField(u.Get())
}

// UnmarshalMessage recognises a CALL, GET or PUT structure by its fields.
// A PUT does not carry its endpoint, nor a CALL or PUT its id.
func UnmarshalMessage(pv *pvdata.PVStructure) (*message.MalcolmMessage, error) {
	s := pv.Structure()
	switch {
	case s.Field("method") != nil && s.Field("parameters") != nil:
		return unmarshalCall(pv)
	case s.Field("endpoint") != nil:
		r := &fieldReader{pv: pv}
		typ := get[string](r, "type")
		msg := &message.MalcolmMessage{
			Type:     message.Type(typ),
			ID:       get[int64](r, "id"),
			Endpoint: getArray[string](r, "endpoint"),
		}
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedMessageType, r.err)
		}
		if msg.Type != message.TypeGet {
			return nil, fmt.Errorf("%w: %q", ErrUnexpectedMessageType, typ)
		}
		return msg, nil
	case s.NumFields() == 1 && s.Field("value") != nil:
		v, err := UnmarshalValue(pv)
		if err != nil {
			return nil, err
		}
		return &message.MalcolmMessage{Type: message.TypePut, Value: v}, nil
	}
	return nil, fmt.Errorf("%w: structure with fields %v", ErrUnexpectedMessageType, s.FieldNames())
}

func unmarshalCall(pv *pvdata.PVStructure) (*message.MalcolmMessage, error) {
	name, err := pvdata.Get[string](pv, "method.method")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedMessageType, err)
	}
	params, err := pv.StructureField("parameters")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedMessageType, err)
	}
	msg := &message.MalcolmMessage{Type: message.TypeCall, Method: message.Method(name)}
	if params.NumFields() > 0 {
		if msg.Arguments, err = Unmarshal(params); err != nil {
			return nil, fmt.Errorf("%s arguments: %w", name, err)
		}
	}
	return msg, nil
}

// UnmarshalReply turns the structure a device answered request id with
// into a RETURN message.
func UnmarshalReply(pv *pvdata.PVStructure, id int64) (*message.MalcolmMessage, error) {
	v, err := UnmarshalValue(pv)
	if err != nil {
		return nil, err
	}
	return &message.MalcolmMessage{Type: message.TypeReturn, ID: id, Value: v}, nil
}
