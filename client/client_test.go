package client

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"malcolm-pva/codec"
	"malcolm-pva/malcolm"
	"malcolm-pva/message"
	"malcolm-pva/middleware"
	"malcolm-pva/points"
	"malcolm-pva/protocol"
	"malcolm-pva/server"
)

type transportFunc func(ctx context.Context, endpoint string, frame []byte) ([]byte, error)

func (f transportFunc) RoundTrip(ctx context.Context, endpoint string, frame []byte) ([]byte, error) {
	return f(ctx, endpoint, frame)
}

var allCodecs = []codec.CodecType{codec.CodecTypeBinary, codec.CodecTypeJSON, codec.CodecTypeCBOR}

func TestGetAndPut(t *testing.T) {
	for _, ct := range allCodecs {
		t.Run(ct.String(), func(t *testing.T) {
			ctx := context.Background()
			c := NewClient(server.NewDevice("BL45P-ML-SCAN-01"), WithCodec(ct))

			state, err := c.State(ctx)
			if err != nil {
				t.Fatalf("State failed: %v", err)
			}
			if state != malcolm.StateReady {
				t.Errorf("state = %s, want Ready", state)
			}

			endpoint := []string{malcolm.AttributeAxesToMove, "value"}
			if err := c.Put(ctx, endpoint, []string{"stage_x", "stage_y"}); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			got, err := c.Get(ctx, endpoint...)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if diff := cmp.Diff([]string{"stage_x", "stage_y"}, got); diff != "" {
				t.Errorf("axesToMove mismatch (-want +got):\n%s", diff)
			}

			if err := c.Put(ctx, malcolm.StateEndpoint, "Armed"); !errors.Is(err, ErrDevice) {
				t.Errorf("Put(state) = %v, want ErrDevice", err)
			}
			if err := c.Put(ctx, endpoint, 3.5); !errors.Is(err, ErrDevice) {
				t.Errorf("Put(wrong type) = %v, want ErrDevice", err)
			}
			if _, err := c.Get(ctx, "nothing", "value"); !errors.Is(err, ErrDevice) {
				t.Errorf("Get(unknown) = %v, want ErrDevice", err)
			}
		})
	}
}

func gridParameters(t testing.TB) *malcolm.ConfigureParameters {
	t.Helper()
	grid := points.NewTwoAxisGridPointsModel("stage_x", "stage_y")
	grid.BoundingBox = points.NewBoundingBox(0, 0, 10, 5)
	grid.XAxisPoints = 10
	grid.YAxisPoints = 5
	cm := points.NewCompoundModel(grid)
	cm.Regions = []points.ROI{points.NewCircularROI(2, 5, 2.5)}
	cm.Duration = 0.1
	cg, err := cm.Generator()
	if err != nil {
		t.Fatal(err)
	}
	return &malcolm.ConfigureParameters{
		Generator:    cg,
		AxesToMove:   []string{"stage_x", "stage_y"},
		FileDir:      "/dls/i15/data/tmp",
		FileTemplate: "i15-%s.h5",
		Detectors: malcolm.DetectorsTable([]malcolm.DetectorInfo{
			{Enabled: true, Name: "DET", MRI: "BL45P-ML-DET-01", Exposure: 0.1, FramesPerStep: 1},
		}),
	}
}

func TestConfigureAndRun(t *testing.T) {
	ctx := context.Background()
	device := server.NewDevice("BL45P-ML-SCAN-01")
	c := NewClient(device)
	params := gridParameters(t)

	validated, err := c.Call(ctx, message.MethodValidate, params)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	m, ok := validated.(*malcolm.Map)
	if !ok {
		t.Fatalf("validate returned %T", validated)
	}
	echoed, err := malcolm.ParametersFromMap(m)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(params, echoed); diff != "" {
		t.Errorf("validated parameters mismatch (-want +got):\n%s", diff)
	}

	if err := c.Configure(ctx, params); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if state, _ := c.State(ctx); state != malcolm.StateArmed {
		t.Errorf("state after configure = %s", state)
	}
	if steps, _ := c.Get(ctx, malcolm.AttributeTotalSteps, "value"); steps != int32(50) {
		t.Errorf("totalSteps = %v, want 50", steps)
	}

	if _, err := c.Call(ctx, message.MethodRun, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if steps, _ := c.Get(ctx, malcolm.CompletedStepsEndpoint...); steps != int32(50) {
		t.Errorf("completedSteps = %v, want 50", steps)
	}
	if _, err := c.Call(ctx, message.MethodRun, nil); !errors.Is(err, ErrDevice) {
		t.Errorf("second run = %v, want ErrDevice", err)
	}

	calls := device.Calls()
	if len(calls) != 4 {
		t.Fatalf("device saw %d calls, want 4", len(calls))
	}
	if calls[1].Method != message.MethodConfigure {
		t.Errorf("second call is %s", calls[1].Method)
	}
	if calls[2].Arguments != nil {
		t.Errorf("run arguments = %v, want nil", calls[2].Arguments)
	}
}

func TestConfigureInvalidParameters(t *testing.T) {
	c := NewClient(server.NewDevice("BL45P-ML-SCAN-01"))
	params := gridParameters(t)
	params.FileDir = ""
	if err := c.Configure(context.Background(), params); err == nil {
		t.Errorf("Configure without a file directory succeeded")
	}
}

func TestUnknownMethod(t *testing.T) {
	_, err := NewClient(server.NewDevice("BL45P-ML-SCAN-01")).Call(context.Background(), "jump", nil)
	if !errors.Is(err, ErrDevice) || !strings.Contains(err.Error(), `no method "jump"`) {
		t.Errorf("Call(jump) = %v", err)
	}
}

func TestTimeout(t *testing.T) {
	device := server.NewDevice("BL45P-ML-SCAN-01", server.WithResponseDelay(200*time.Millisecond))
	c := NewClient(device, WithMiddleware(middleware.TimeoutMiddleware(50*time.Millisecond)))
	_, err := c.Get(context.Background(), malcolm.StateEndpoint...)
	if err == nil || !strings.Contains(err.Error(), "request timed out") {
		t.Errorf("Get = %v, want a timeout", err)
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	params := gridParameters(t)
	for _, comp := range []protocol.Compression{protocol.CompressionLZ4, protocol.CompressionZstd} {
		t.Run(comp.String(), func(t *testing.T) {
			device := server.NewDevice("BL45P-ML-SCAN-01")
			var sent protocol.Compression
			spy := transportFunc(func(ctx context.Context, endpoint string, frame []byte) ([]byte, error) {
				h, _, err := protocol.Decode(bytes.NewReader(frame))
				if err != nil {
					return nil, err
				}
				sent = h.Compression
				return device.RoundTrip(ctx, endpoint, frame)
			})
			c := NewClient(spy, WithCodec(codec.CodecTypeCBOR), WithCompression(comp))
			if err := c.Configure(context.Background(), params); err != nil {
				t.Fatalf("Configure failed: %v", err)
			}
			if sent != comp {
				t.Errorf("request compression = %s, want %s", sent, comp)
			}
			if state, err := c.State(context.Background()); err != nil || state != malcolm.StateArmed {
				t.Errorf("State = %s, %v", state, err)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	c := NewClient(server.NewDevice("BL45P-ML-SCAN-01"), WithMiddleware(middleware.RateLimitMiddleware(1, 1)))
	ctx := context.Background()
	if _, err := c.Get(ctx, malcolm.StateEndpoint...); err != nil {
		t.Fatalf("first Get failed: %v", err)
	}
	if _, err := c.Get(ctx, malcolm.StateEndpoint...); err == nil || !strings.Contains(err.Error(), "rate limit exceeded") {
		t.Errorf("second Get = %v, want rate limited", err)
	}
}

func TestLocalFailuresBecomeErrorReplies(t *testing.T) {
	var gen message.Generator
	broken := transportFunc(func(ctx context.Context, endpoint string, frame []byte) ([]byte, error) {
		return nil, errors.New("connection refused")
	})
	reply := NewClient(broken).Send(context.Background(), gen.CreateGetMessage("state", "value"))
	if !reply.IsError() || reply.Message != "connection refused" {
		t.Errorf("reply = %s", reply)
	}

	garbage := transportFunc(func(ctx context.Context, endpoint string, frame []byte) ([]byte, error) {
		return []byte("not a frame at all"), nil
	})
	if reply := NewClient(garbage).Send(context.Background(), gen.CreateGetMessage("state")); !reply.IsError() {
		t.Errorf("reply to garbage = %s", reply)
	}

	reply = NewClient(broken).Send(context.Background(), gen.CreateSubscribeMessage("state"))
	if !reply.IsError() || !strings.Contains(reply.Message, "unexpected message type") {
		t.Errorf("subscribe reply = %s", reply)
	}
}

func TestDeviceShutdown(t *testing.T) {
	device := server.NewDevice("BL45P-ML-SCAN-01")
	if err := device.Shutdown(time.Second); err != nil {
		t.Fatal(err)
	}
	_, err := NewClient(device).Get(context.Background(), malcolm.StateEndpoint...)
	if err == nil || !strings.Contains(err.Error(), "shut down") {
		t.Errorf("Get after shutdown = %v", err)
	}
}
