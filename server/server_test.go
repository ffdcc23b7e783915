package server

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"malcolm-pva/codec"
	"malcolm-pva/malcolm"
	"malcolm-pva/marshal"
	"malcolm-pva/message"
	"malcolm-pva/middleware"
	"malcolm-pva/points"
	"malcolm-pva/protocol"
)

// send runs msg through d and returns the reply frame's kind and body.
func send(t *testing.T, d *Device, ct codec.CodecType, msg *message.MalcolmMessage) (protocol.FrameKind, []byte) {
	t.Helper()
	pv, err := marshal.MarshalMessage(msg)
	if err != nil {
		t.Fatalf("MarshalMessage failed: %v", err)
	}
	body, err := codec.GetCodec(ct).Encode(pv)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var frame bytes.Buffer
	if err := protocol.Encode(&frame, &protocol.Header{CodecType: ct, Kind: protocol.FrameRequest, Seq: uint32(msg.ID)}, body); err != nil {
		t.Fatal(err)
	}
	reply, err := d.RoundTrip(context.Background(), strings.Join(msg.Endpoint, "."), frame.Bytes())
	if err != nil {
		t.Fatalf("RoundTrip failed: %v", err)
	}
	h, replyBody, err := protocol.Decode(bytes.NewReader(reply))
	if err != nil {
		t.Fatalf("reply frame: %v", err)
	}
	if h.Seq != uint32(msg.ID) || h.CodecType != ct {
		t.Fatalf("reply header = %+v", h)
	}
	return h.Kind, replyBody
}

func value(t *testing.T, ct codec.CodecType, body []byte) any {
	t.Helper()
	pv, err := codec.GetCodec(ct).Decode(body)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	v, err := marshal.UnmarshalValue(pv)
	if err != nil {
		t.Fatalf("UnmarshalValue failed: %v", err)
	}
	return v
}

func TestGetFrame(t *testing.T) {
	var gen message.Generator
	d := NewDevice("BL45P-ML-SCAN-01")
	kind, body := send(t, d, codec.CodecTypeCBOR, gen.CreateGetMessage(malcolm.HealthEndpoint...))
	if kind != protocol.FrameResponse {
		t.Fatalf("kind = %s, body %q", kind, body)
	}
	if v := value(t, codec.CodecTypeCBOR, body); v != "OK" {
		t.Errorf("health = %v", v)
	}

	kind, body = send(t, d, codec.CodecTypeJSON, gen.CreateGetMessage("layout", "value"))
	if kind != protocol.FrameError || !strings.Contains(string(body), `no attribute "layout"`) {
		t.Errorf("unknown attribute: %s %q", kind, body)
	}
	kind, body = send(t, d, codec.CodecTypeJSON, gen.CreateGetMessage("state", "value", "alarm"))
	if kind != protocol.FrameError || !strings.Contains(string(body), "no endpoint") {
		t.Errorf("deep endpoint: %s %q", kind, body)
	}
}

func TestPutUsesFrameEndpoint(t *testing.T) {
	var gen message.Generator
	d := NewDevice("BL45P-ML-SCAN-01")
	table := malcolm.DetectorsTable([]malcolm.DetectorInfo{{Enabled: true, Name: "DET", MRI: "BL45P-ML-DET-01", Exposure: 0.1, FramesPerStep: 1}})
	kind, body := send(t, d, codec.CodecTypeBinary, gen.CreatePutMessage([]string{malcolm.AttributeDetectors, "value"}, table))
	if kind != protocol.FrameResponse {
		t.Fatalf("kind = %s, body %q", kind, body)
	}
	got, _ := d.Attribute(malcolm.AttributeDetectors)
	if tbl, ok := got.(*malcolm.Table); !ok || !tbl.Equal(table) {
		t.Errorf("detectors = %v", got)
	}
}

func TestRejectsNonRequestFrames(t *testing.T) {
	d := NewDevice("BL45P-ML-SCAN-01")
	var frame bytes.Buffer
	if err := protocol.Encode(&frame, &protocol.Header{Kind: protocol.FrameResponse}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := d.RoundTrip(context.Background(), "", frame.Bytes()); err == nil {
		t.Errorf("RoundTrip accepted a response frame")
	}
	if _, err := d.RoundTrip(context.Background(), "", []byte("pva")); err == nil {
		t.Errorf("RoundTrip accepted a short frame")
	}
}

func TestUndecodableBody(t *testing.T) {
	d := NewDevice("BL45P-ML-SCAN-01")
	var frame bytes.Buffer
	if err := protocol.Encode(&frame, &protocol.Header{CodecType: codec.CodecTypeBinary, Kind: protocol.FrameRequest, Seq: 4}, []byte{0x80, 0x05}); err != nil {
		t.Fatal(err)
	}
	reply, err := d.RoundTrip(context.Background(), "", frame.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	h, _, err := protocol.Decode(bytes.NewReader(reply))
	if err != nil {
		t.Fatal(err)
	}
	if h.Kind != protocol.FrameError || h.Seq != 4 {
		t.Errorf("reply header = %+v", h)
	}
}

func TestStateTransitions(t *testing.T) {
	var gen message.Generator
	d := NewDevice("BL45P-ML-SCAN-01")
	steps := []struct {
		method message.Method
		ok     bool
		want   malcolm.DeviceState
	}{
		{message.MethodRun, false, malcolm.StateReady},
		{message.MethodPause, false, malcolm.StateReady},
		{message.MethodAbort, true, malcolm.StateAborted},
		{message.MethodReset, true, malcolm.StateReady},
		{message.MethodDisable, true, malcolm.StateDisabled},
		{message.MethodResume, false, malcolm.StateDisabled},
		{message.MethodReset, true, malcolm.StateReady},
	}
	for _, s := range steps {
		kind, body := send(t, d, codec.CodecTypeBinary, gen.CreateCallMessage(s.method, nil))
		if (kind == protocol.FrameResponse) != s.ok {
			t.Errorf("%s: %s %q", s.method, kind, body)
		}
		if got, _ := d.Attribute(malcolm.AttributeState); got != string(s.want) {
			t.Errorf("after %s state = %v, want %s", s.method, got, s.want)
		}
	}
}

func TestRegisteredMethod(t *testing.T) {
	var gen message.Generator
	d := NewDevice("BL45P-ML-SCAN-01")
	d.Register("seek", func(ctx context.Context, d *Device, args any) (any, error) {
		m, ok := args.(*malcolm.Map)
		if !ok {
			return nil, errors.New("no arguments")
		}
		v, _ := m.Get("completedSteps")
		d.SetAttribute(malcolm.AttributeCompletedSteps, v)
		return v, nil
	})
	kind, body := send(t, d, codec.CodecTypeJSON, gen.CreateCallMessage("seek", map[string]any{"completedSteps": int32(7)}))
	if kind != protocol.FrameResponse {
		t.Fatalf("seek: %s %q", kind, body)
	}
	if v := value(t, codec.CodecTypeJSON, body); v != int32(7) {
		t.Errorf("seek returned %v", v)
	}
	if v, _ := d.Attribute(malcolm.AttributeCompletedSteps); v != int32(7) {
		t.Errorf("completedSteps = %v", v)
	}
	kind, body = send(t, d, codec.CodecTypeJSON, gen.CreateCallMessage("seek", nil))
	if kind != protocol.FrameError || string(body) != "seek: no arguments" {
		t.Errorf("seek without arguments: %s %q", kind, body)
	}
}

func TestDeviceMiddleware(t *testing.T) {
	var gen message.Generator
	core, logs := observer.New(zapcore.DebugLevel)
	d := NewDevice("BL45P-ML-SCAN-01", WithLogger(zap.New(core)))
	d.Use(middleware.LoggingMiddleware(zap.New(core)))
	send(t, d, codec.CodecTypeBinary, gen.CreateGetMessage(malcolm.StateEndpoint...))
	if n := logs.FilterMessage("request").Len(); n != 1 {
		t.Errorf("%d request log entries, want 1", n)
	}
}

func TestScanSteps(t *testing.T) {
	line := &points.LineGenerator{Size: 4}
	cases := []struct {
		name string
		gen  *points.CompoundGenerator
		want int32
	}{
		{"empty", &points.CompoundGenerator{}, 1},
		{"grid", &points.CompoundGenerator{Generators: []points.Generator{line, &points.ArrayGenerator{Points: []float64{1, 2, 3}}}}, 12},
		{"nested", &points.CompoundGenerator{Generators: []points.Generator{line, &points.CompoundGenerator{Generators: []points.Generator{&points.LissajousGenerator{Size: 5}}}}}, 20},
		{"spiral", &points.CompoundGenerator{Generators: []points.Generator{line, &points.SpiralGenerator{}}}, 0},
	}
	for _, c := range cases {
		if got := scanSteps(c.gen); got != c.want {
			t.Errorf("%s: scanSteps = %d, want %d", c.name, got, c.want)
		}
	}
}
