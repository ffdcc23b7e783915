// Package message defines the Malcolm message exchanged between a client
// and a Malcolm device.
//
// MalcolmMessage is the envelope for every request and reply. It gets
// marshalled into a PVStructure, serialized by the codec layer and wrapped
// in a protocol frame.
package message

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Type is the kind of a message.
type Type string

const (
	TypeCall        Type = "CALL"
	TypeGet         Type = "GET"
	TypePut         Type = "PUT"
	TypeSubscribe   Type = "SUBSCRIBE"
	TypeUnsubscribe Type = "UNSUBSCRIBE"
	TypeReturn      Type = "RETURN"
	TypeError       Type = "ERROR"
)

// Method is a method of a Malcolm scan block.
type Method string

const (
	MethodValidate  Method = "validate"
	MethodConfigure Method = "configure"
	MethodRun       Method = "run"
	MethodAbort     Method = "abort"
	MethodDisable   Method = "disable"
	MethodReset     Method = "reset"
	MethodPause     Method = "pause"
	MethodResume    Method = "resume"
)

// MalcolmMessage carries a single request or reply.
//
//   - CALL:  Method is set, Arguments holds the parameters (or nil).
//   - GET:   Endpoint is the path of the attribute to read.
//   - PUT:   Endpoint is the attribute to write, Value the new value.
//   - RETURN: Value holds the result, ERROR: Message holds the reason.
type MalcolmMessage struct {
	Type      Type
	ID        int64
	Endpoint  []string
	Method    Method
	Arguments any
	Value     any
	Message   string
}

func (m *MalcolmMessage) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s #%d", m.Type, m.ID)
	if m.Method != "" {
		fmt.Fprintf(&b, " %s", m.Method)
	}
	if len(m.Endpoint) > 0 {
		fmt.Fprintf(&b, " %s", strings.Join(m.Endpoint, "."))
	}
	if m.Message != "" {
		fmt.Fprintf(&b, ": %s", m.Message)
	}
	return b.String()
}

// IsError reports whether m is an ERROR reply.
func (m *MalcolmMessage) IsError() bool { return m.Type == TypeError }

// Reply returns a RETURN message answering m.
func (m *MalcolmMessage) Reply(value any) *MalcolmMessage {
	return &MalcolmMessage{Type: TypeReturn, ID: m.ID, Value: value}
}

// Errorf returns an ERROR message answering m.
func (m *MalcolmMessage) Errorf(format string, args ...any) *MalcolmMessage {
	return &MalcolmMessage{Type: TypeError, ID: m.ID, Message: fmt.Sprintf(format, args...)}
}

// Generator creates request messages with increasing ids. It is safe for
// concurrent use.
type Generator struct {
	lastID atomic.Int64
}

func (g *Generator) nextID() int64 { return g.lastID.Add(1) }

// CreateCallMessage calls method with args, which may be nil.
func (g *Generator) CreateCallMessage(method Method, args any) *MalcolmMessage {
	return &MalcolmMessage{Type: TypeCall, ID: g.nextID(), Method: method, Arguments: args}
}

// CreateGetMessage reads the attribute at endpoint.
func (g *Generator) CreateGetMessage(endpoint ...string) *MalcolmMessage {
	return &MalcolmMessage{Type: TypeGet, ID: g.nextID(), Endpoint: endpoint}
}

// CreatePutMessage writes value to the attribute at endpoint.
func (g *Generator) CreatePutMessage(endpoint []string, value any) *MalcolmMessage {
	return &MalcolmMessage{Type: TypePut, ID: g.nextID(), Endpoint: endpoint, Value: value}
}

// CreateSubscribeMessage subscribes to the attribute at endpoint.
func (g *Generator) CreateSubscribeMessage(endpoint ...string) *MalcolmMessage {
	return &MalcolmMessage{Type: TypeSubscribe, ID: g.nextID(), Endpoint: endpoint}
}

// CreateUnsubscribeMessage cancels the subscription with the given id.
func (g *Generator) CreateUnsubscribeMessage(id int64) *MalcolmMessage {
	return &MalcolmMessage{Type: TypeUnsubscribe, ID: id}
}
