// Package server implements an in-process Malcolm scan block.
//
// A Device answers request frames the way a Malcolm device answers
// pvAccess requests:
//
//	RoundTrip(frame) → protocol.Decode → Codec.Decode → marshal.UnmarshalMessage
//	  → middleware chain → handle (attributes, methods)
//	  → marshal.MarshalValue → Codec.Encode → response frame
//
// A failed request is answered with an error frame carrying the message.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"malcolm-pva/codec"
	"malcolm-pva/malcolm"
	"malcolm-pva/marshal"
	"malcolm-pva/message"
	"malcolm-pva/middleware"
	"malcolm-pva/protocol"
)

// ErrClosed is returned by RoundTrip after Shutdown.
var ErrClosed = errors.New("server: device is shut down")

// Device is a scan block with attributes and methods. It is safe for
// concurrent use.
type Device struct {
	mri    string
	logger *zap.Logger
	delay  time.Duration

	mu         sync.Mutex
	attributes map[string]any
	methods    map[message.Method]MethodFunc
	calls      []*message.MalcolmMessage

	middlewares []middleware.Middleware
	handler     atomic.Pointer[middleware.HandlerFunc]
	wg          sync.WaitGroup
	shutdown    atomic.Bool
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the logger. The default logs nothing.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Device) { d.logger = logger }
}

// WithResponseDelay makes every request take at least delay.
func WithResponseDelay(delay time.Duration) Option {
	return func(d *Device) { d.delay = delay }
}

// NewDevice returns a Ready device named mri.
func NewDevice(mri string, opts ...Option) *Device {
	d := &Device{
		mri:    mri,
		logger: zap.NewNop(),
		attributes: map[string]any{
			malcolm.AttributeState:            string(malcolm.StateReady),
			malcolm.AttributeHealth:           "OK",
			malcolm.AttributeBusy:             false,
			malcolm.AttributeCompletedSteps:   int32(0),
			malcolm.AttributeConfiguredSteps:  int32(0),
			malcolm.AttributeTotalSteps:       int32(0),
			malcolm.AttributeAxesToMove:       []string{},
			malcolm.AttributeSimultaneousAxes: []string{},
			malcolm.AttributeDetectors:        malcolm.DetectorsTable(nil),
		},
		methods: defaultMethods(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	d.logger = d.logger.With(zap.String("mri", mri))
	d.buildHandler()
	return d
}

// MRI returns the name of the device.
func (d *Device) MRI() string { return d.mri }

// Use adds a middleware around the request handler. Middlewares run in the
// order they are added.
func (d *Device) Use(mw middleware.Middleware) {
	d.mu.Lock()
	d.middlewares = append(d.middlewares, mw)
	d.mu.Unlock()
	d.buildHandler()
}

func (d *Device) buildHandler() {
	d.mu.Lock()
	h := middleware.Chain(d.middlewares...)(d.handle)
	d.mu.Unlock()
	d.handler.Store(&h)
}

// Register adds or replaces a method.
func (d *Device) Register(method message.Method, fn MethodFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.methods[method] = fn
}

// SetAttribute sets the value of an attribute.
func (d *Device) SetAttribute(name string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attributes[name] = value
}

// Attribute returns the value of an attribute.
func (d *Device) Attribute(name string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.attributes[name]
	return v, ok
}

// Calls returns the CALL messages received so far.
func (d *Device) Calls() []*message.MalcolmMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*message.MalcolmMessage(nil), d.calls...)
}

// state and setState need d.mu.
func (d *Device) state() malcolm.DeviceState {
	s, _ := d.attributes[malcolm.AttributeState].(string)
	return malcolm.DeviceState(s)
}

func (d *Device) setState(s malcolm.DeviceState) {
	d.logger.Debug("state change", zap.String("from", string(d.state())), zap.String("to", string(s)))
	d.attributes[malcolm.AttributeState] = string(s)
}

// RoundTrip answers one request frame. endpoint is the dotted attribute
// path of a PUT, which the PUT structure does not carry.
func (d *Device) RoundTrip(ctx context.Context, endpoint string, frame []byte) ([]byte, error) {
	if d.shutdown.Load() {
		return nil, ErrClosed
	}
	d.wg.Add(1)
	defer d.wg.Done()

	header, body, err := protocol.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}
	if header.Kind != protocol.FrameRequest {
		return nil, fmt.Errorf("server: unexpected %s frame", header.Kind)
	}
	c := codec.GetCodec(header.CodecType)
	reply := d.serve(ctx, header, c, endpoint, body)
	return d.replyFrame(header, c, reply)
}

func (d *Device) serve(ctx context.Context, header *protocol.Header, c codec.Codec, endpoint string, body []byte) *message.MalcolmMessage {
	fail := &message.MalcolmMessage{ID: int64(header.Seq)}
	pv, err := c.Decode(body)
	if err != nil {
		return fail.Errorf("%v", err)
	}
	req, err := marshal.UnmarshalMessage(pv)
	if err != nil {
		return fail.Errorf("%v", err)
	}
	req.ID = int64(header.Seq)
	if req.Type == message.TypePut && endpoint != "" {
		req.Endpoint = strings.Split(endpoint, ".")
	}
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return req.Errorf("%v", ctx.Err())
		}
	}
	return (*d.handler.Load())(ctx, req)
}

func (d *Device) replyFrame(header *protocol.Header, c codec.Codec, reply *message.MalcolmMessage) ([]byte, error) {
	h := &protocol.Header{CodecType: header.CodecType, Compression: header.Compression, Kind: protocol.FrameResponse, Seq: header.Seq}
	var body []byte
	if !reply.IsError() {
		pv, err := marshal.MarshalValue(reply.Value)
		if err == nil {
			body, err = c.Encode(pv)
		}
		if err != nil {
			d.logger.Error("cannot encode reply", zap.Int64("id", reply.ID), zap.Error(err))
			reply = reply.Errorf("cannot encode reply: %v", err)
		}
	}
	if reply.IsError() {
		h.Kind, body = protocol.FrameError, []byte(reply.Message)
	}
	var buf bytes.Buffer
	if err := protocol.Encode(&buf, h, body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// handle is the innermost handler of the middleware chain.
func (d *Device) handle(ctx context.Context, req *message.MalcolmMessage) *message.MalcolmMessage {
	switch req.Type {
	case message.TypeGet:
		v, err := d.get(req.Endpoint)
		if err != nil {
			return req.Errorf("%v", err)
		}
		return req.Reply(v)
	case message.TypePut:
		if err := d.put(req.Endpoint, req.Value); err != nil {
			return req.Errorf("%v", err)
		}
		return req.Reply(nil)
	case message.TypeCall:
		d.mu.Lock()
		fn, ok := d.methods[req.Method]
		d.calls = append(d.calls, req)
		d.mu.Unlock()
		if !ok {
			return req.Errorf("no method %q on %s", req.Method, d.mri)
		}
		v, err := fn(ctx, d, req.Arguments)
		if err != nil {
			return req.Errorf("%s: %v", req.Method, err)
		}
		return req.Reply(v)
	}
	return req.Errorf("unexpected message type %s", req.Type)
}

// attributeName resolves an endpoint, either the attribute or its value
// sub-field.
func attributeName(endpoint []string) (string, error) {
	switch {
	case len(endpoint) == 1:
		return endpoint[0], nil
	case len(endpoint) == 2 && endpoint[1] == "value":
		return endpoint[0], nil
	}
	return "", fmt.Errorf("no endpoint %q", strings.Join(endpoint, "."))
}

func (d *Device) get(endpoint []string) (any, error) {
	name, err := attributeName(endpoint)
	if err != nil {
		return nil, err
	}
	v, ok := d.Attribute(name)
	if !ok {
		return nil, fmt.Errorf("no attribute %q on %s", name, d.mri)
	}
	return v, nil
}

// put replaces an attribute with a value of the same type.
func (d *Device) put(endpoint []string, value any) error {
	name, err := attributeName(endpoint)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	old, ok := d.attributes[name]
	if !ok {
		return fmt.Errorf("no attribute %q on %s", name, d.mri)
	}
	if name == malcolm.AttributeState {
		return fmt.Errorf("attribute %q is read only", name)
	}
	if old != nil && reflect.TypeOf(old) != reflect.TypeOf(value) {
		return fmt.Errorf("attribute %q holds %T, got %T", name, old, value)
	}
	d.attributes[name] = value
	return nil
}

// Shutdown refuses new requests and waits for those in flight.
func (d *Device) Shutdown(timeout time.Duration) error {
	d.shutdown.Store(true)
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for ongoing requests to finish")
	}
}
