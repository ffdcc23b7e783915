// Command pvscan shows how a scan description goes over the wire.
//
// It reads a YAML scan description, builds its compound generator and
// prints the pvData structure the generator marshals to. The structure
// can be encoded with any codec, printed as hex, digested, written out as
// a framed request and decoded again to check that nothing is lost. With --device
// the scan is configured and run on an in-process Malcolm device.
//
// Usage:
//
//	pvscan [flags] scan.yaml
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/pflag"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"malcolm-pva/client"
	"malcolm-pva/codec"
	"malcolm-pva/config"
	"malcolm-pva/malcolm"
	"malcolm-pva/marshal"
	"malcolm-pva/message"
	"malcolm-pva/middleware"
	"malcolm-pva/protocol"
	"malcolm-pva/pvdata"
	"malcolm-pva/server"
)

const deviceMRI = "PVSCAN-ML-SCAN-01"

// errCheck is returned when the decoded structure differs from the
// encoded one.
var errCheck = errors.New("round trip mismatch")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	codec    string
	compress string
	params   bool
	hex      bool
	diag     bool
	sum      bool
	out      string
	check    bool
	device   bool
	timeout  time.Duration
	colour   string
	verbose  bool
}

func run(args []string, stdout, stderr io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("pvscan", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&opts.codec, "codec", "c", "binary", "body encoding: json, binary or cbor")
	flagSet.StringVar(&opts.compress, "compress", "none", "frame compression: none, lz4 or zstd")
	flagSet.BoolVarP(&opts.params, "params", "p", false, "marshal the full configure parameters instead of the generator")
	flagSet.BoolVarP(&opts.hex, "hex", "x", false, "print a hex dump of the encoded body")
	flagSet.BoolVar(&opts.diag, "diag", false, "print CBOR diagnostic notation (cbor codec only)")
	flagSet.BoolVar(&opts.sum, "sum", false, "print the BLAKE3 digest of the encoded body")
	flagSet.StringVarP(&opts.out, "out", "o", "", "write the framed request to this file")
	flagSet.BoolVar(&opts.check, "check", false, "decode the encoded body and compare it with the original")
	flagSet.BoolVar(&opts.device, "device", false, "configure and run the scan on an in-process device")
	flagSet.DurationVar(&opts.timeout, "timeout", 5*time.Second, "timeout for each device request")
	flagSet.StringVar(&opts.colour, "color", "auto", "colour the dump: auto, always or never")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pvscan [flags] scan.yaml\n\nFlags:\n")
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return fmt.Errorf("expected one scan description, got %d arguments", flagSet.NArg())
	}

	ct, err := codec.ParseCodecType(opts.codec)
	if err != nil {
		return err
	}
	comp, err := protocol.ParseCompression(opts.compress)
	if err != nil {
		return err
	}
	if opts.diag && ct != codec.CodecTypeCBOR {
		return fmt.Errorf("--diag needs --codec cbor, not %s", ct)
	}
	style, err := dumpStyle(opts.colour, stdout)
	if err != nil {
		return err
	}
	logger := newLogger(opts.verbose, stderr)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(flagSet.Arg(0))
	if err != nil {
		return err
	}
	params, err := cfg.Parameters()
	if err != nil {
		return err
	}
	var value any = params.Generator
	if opts.params {
		value = params
	}
	pv, err := marshal.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := pvdata.Dump(stdout, pv, style); err != nil {
		return err
	}

	body, err := codec.GetCodec(ct).Encode(pv)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	logger.Debug("encoded scan",
		zap.Stringer("codec", ct),
		zap.Int("bytes", len(body)),
		zap.String("id", pv.Structure().ID()))
	if opts.hex {
		fmt.Fprint(stdout, hex.Dump(body))
	}
	if opts.diag {
		diag, err := codec.Diagnose(body)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, diag)
	}
	if opts.sum {
		digest := blake3.Sum256(body)
		fmt.Fprintf(stdout, "blake3 %s\n", hex.EncodeToString(digest[:]))
	}
	if opts.out != "" {
		n, err := writeFrame(opts.out, ct, comp, body)
		if err != nil {
			return err
		}
		logger.Info("wrote frame",
			zap.String("path", opts.out),
			zap.Stringer("compression", comp),
			zap.Int("bytes", n))
	}
	if opts.check {
		if err := check(ct, pv, value, body); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s round trip ok (%d bytes)\n", ct, len(body))
	}
	if opts.device {
		return runOnDevice(ct, comp, params, opts.timeout, logger, stdout)
	}
	return nil
}

// dumpStyle colours type ids, field names and values when stdout is a
// terminal or colour is forced.
func dumpStyle(mode string, w io.Writer) (*pvdata.Style, error) {
	var enabled bool
	switch mode {
	case "always":
		enabled = true
	case "never":
	case "auto":
		f, ok := w.(*os.File)
		enabled = ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	default:
		return nil, fmt.Errorf("unknown --color mode %q", mode)
	}
	if !enabled {
		return nil, nil
	}
	paint := func(attrs ...color.Attribute) func(string) string {
		c := color.New(attrs...)
		c.EnableColor()
		return func(s string) string { return c.Sprint(s) }
	}
	return &pvdata.Style{
		Type:  paint(color.FgCyan),
		Name:  paint(color.Bold),
		Value: paint(color.FgGreen),
	}, nil
}

func newLogger(verbose bool, w io.Writer) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), level)
	return zap.New(core)
}

// writeFrame writes body as a request frame and returns the frame size.
func writeFrame(path string, ct codec.CodecType, comp protocol.Compression, body []byte) (int, error) {
	var buf bytes.Buffer
	header := &protocol.Header{CodecType: ct, Compression: comp, Kind: protocol.FrameRequest}
	if err := protocol.Encode(&buf, header, body); err != nil {
		return 0, err
	}
	return buf.Len(), os.WriteFile(path, buf.Bytes(), 0o644)
}

// check decodes body and compares the result with pv, then unmarshals it
// and compares that with the value pv came from.
func check(ct codec.CodecType, pv *pvdata.PVStructure, value any, body []byte) error {
	decoded, err := codec.GetCodec(ct).Decode(body)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if !pvdata.Equal(pv, decoded) {
		return fmt.Errorf("%w: decoded structure differs\n%s", errCheck, lineDiff(pvdata.Sprint(pv), pvdata.Sprint(decoded)))
	}
	back, err := marshal.Unmarshal(decoded)
	if err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	again, err := marshal.Marshal(back)
	if err != nil {
		return fmt.Errorf("marshal decoded value: %w", err)
	}
	if !pvdata.Equal(pv, again) {
		return fmt.Errorf("%w: %T does not marshal back to the same structure\n%s", errCheck, value, lineDiff(pvdata.Sprint(pv), pvdata.Sprint(again)))
	}
	return nil
}

// lineDiff marks the lines of want missing from got with "-" and the
// lines only in got with "+".
func lineDiff(want, got string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	var out strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line != "" {
				out.WriteString(prefix + line)
			}
		}
	}
	return out.String()
}

// runOnDevice configures and runs the scan on a fresh device and reports
// the steps it completed.
func runOnDevice(ct codec.CodecType, comp protocol.Compression, params *malcolm.ConfigureParameters, timeout time.Duration, logger *zap.Logger, w io.Writer) error {
	device := server.NewDevice(deviceMRI, server.WithLogger(logger.Named("device")))
	defer func() { _ = device.Shutdown(timeout) }()

	c := client.NewClient(device,
		client.WithCodec(ct),
		client.WithCompression(comp),
		client.WithLogger(logger.Named("client")),
		client.WithMiddleware(
			middleware.LoggingMiddleware(logger.Named("client")),
			middleware.TimeoutMiddleware(timeout),
		))
	ctx := context.Background()
	if err := c.Configure(ctx, params); err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	if _, err := c.Call(ctx, message.MethodRun, nil); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	state, err := c.State(ctx)
	if err != nil {
		return err
	}
	steps, err := c.Get(ctx, malcolm.CompletedStepsEndpoint...)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %s, %v steps completed\n", deviceMRI, state, steps)
	return nil
}
