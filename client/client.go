// Package client sends Malcolm messages to a device.
//
// Send marshals a message, encodes it with the client's codec, frames it
// and hands the frame to a Transport. The reply frame is decoded the same
// way back into a RETURN or ERROR message. Every failure on the way,
// local or remote, comes back as an ERROR reply.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"malcolm-pva/codec"
	"malcolm-pva/malcolm"
	"malcolm-pva/marshal"
	"malcolm-pva/message"
	"malcolm-pva/middleware"
	"malcolm-pva/protocol"
)

// ErrDevice wraps the message of an ERROR reply.
var ErrDevice = errors.New("client: device error")

// Transport carries one request frame to a device and returns the reply
// frame. endpoint is the dotted path the request addresses, if any.
type Transport interface {
	RoundTrip(ctx context.Context, endpoint string, frame []byte) ([]byte, error)
}

// Client talks to one device. It is safe for concurrent use.
type Client struct {
	transport   Transport
	codec       codec.Codec
	compression protocol.Compression
	logger      *zap.Logger
	gen         message.Generator
	handler     middleware.HandlerFunc
}

// Option configures a Client.
type Option func(*Client)

// WithCodec selects the body encoding. The default is binary.
func WithCodec(ct codec.CodecType) Option {
	return func(c *Client) { c.codec = codec.GetCodec(ct) }
}

// WithCompression compresses request bodies. The device answers with the
// same compression.
func WithCompression(comp protocol.Compression) Option {
	return func(c *Client) { c.compression = comp }
}

// WithLogger sets the logger. The default logs nothing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMiddleware wraps every round trip. The first middleware is
// outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(c *Client) {
		c.handler = middleware.Chain(mws...)(c.handler)
	}
}

// NewClient returns a client sending through t.
func NewClient(t Transport, opts ...Option) *Client {
	c := &Client{
		transport: t,
		codec:     codec.GetCodec(codec.CodecTypeBinary),
		logger:    zap.NewNop(),
	}
	c.handler = c.roundTrip
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Send sends msg and waits for the reply.
func (c *Client) Send(ctx context.Context, msg *message.MalcolmMessage) *message.MalcolmMessage {
	return c.handler(ctx, msg)
}

func (c *Client) roundTrip(ctx context.Context, msg *message.MalcolmMessage) *message.MalcolmMessage {
	pv, err := marshal.MarshalMessage(msg)
	if err != nil {
		return msg.Errorf("%v", err)
	}
	body, err := c.codec.Encode(pv)
	if err != nil {
		return msg.Errorf("%v", err)
	}
	var frame bytes.Buffer
	header := &protocol.Header{CodecType: c.codec.Type(), Compression: c.compression, Kind: protocol.FrameRequest, Seq: uint32(msg.ID)}
	if err := protocol.Encode(&frame, header, body); err != nil {
		return msg.Errorf("%v", err)
	}

	c.logger.Debug("sending", zap.Stringer("message", msg), zap.Int("bytes", frame.Len()))
	data, err := c.transport.RoundTrip(ctx, strings.Join(msg.Endpoint, "."), frame.Bytes())
	if err != nil {
		return msg.Errorf("%v", err)
	}

	replyHeader, replyBody, err := protocol.Decode(bytes.NewReader(data))
	if err != nil {
		return msg.Errorf("%v", err)
	}
	if replyHeader.Seq != header.Seq {
		return msg.Errorf("reply to request %d, want %d", replyHeader.Seq, header.Seq)
	}
	switch replyHeader.Kind {
	case protocol.FrameError:
		return msg.Errorf("%s", replyBody)
	case protocol.FrameResponse:
	default:
		return msg.Errorf("unexpected %s frame", replyHeader.Kind)
	}
	replyPV, err := codec.GetCodec(replyHeader.CodecType).Decode(replyBody)
	if err != nil {
		return msg.Errorf("%v", err)
	}
	reply, err := marshal.UnmarshalReply(replyPV, msg.ID)
	if err != nil {
		return msg.Errorf("%v", err)
	}
	return reply
}

func result(reply *message.MalcolmMessage) (any, error) {
	if reply.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrDevice, reply.Message)
	}
	return reply.Value, nil
}

// Call calls method with args, which may be nil, and returns its result.
func (c *Client) Call(ctx context.Context, method message.Method, args any) (any, error) {
	return result(c.Send(ctx, c.gen.CreateCallMessage(method, args)))
}

// Get reads the attribute at endpoint.
func (c *Client) Get(ctx context.Context, endpoint ...string) (any, error) {
	return result(c.Send(ctx, c.gen.CreateGetMessage(endpoint...)))
}

// Put writes value to the attribute at endpoint.
func (c *Client) Put(ctx context.Context, endpoint []string, value any) error {
	_, err := result(c.Send(ctx, c.gen.CreatePutMessage(endpoint, value)))
	return err
}

// State reads the state of the device.
func (c *Client) State(ctx context.Context) (malcolm.DeviceState, error) {
	v, err := c.Get(ctx, malcolm.StateEndpoint...)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("client: state is %T, not a string", v)
	}
	return malcolm.DeviceState(s), nil
}

// Configure validates params locally and configures the device with them.
func (c *Client) Configure(ctx context.Context, params *malcolm.ConfigureParameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	_, err := c.Call(ctx, message.MethodConfigure, params)
	return err
}
