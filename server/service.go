package server

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"malcolm-pva/malcolm"
	"malcolm-pva/message"
	"malcolm-pva/points"
)

// ErrInvalidState is returned by a method called in a state that does not
// allow it.
var ErrInvalidState = errors.New("server: invalid state")

// MethodFunc implements a method of the device. args is nil when the call
// had no parameters.
type MethodFunc func(ctx context.Context, d *Device, args any) (any, error)

// defaultMethods are the methods of a scan block.
func defaultMethods() map[message.Method]MethodFunc {
	return map[message.Method]MethodFunc{
		message.MethodValidate:  validate,
		message.MethodConfigure: configure,
		message.MethodRun:       run,
		message.MethodAbort:     transition(malcolm.StateAborted),
		message.MethodDisable:   transition(malcolm.StateDisabled),
		message.MethodReset:     reset,
		message.MethodPause:     transition(malcolm.StatePaused, malcolm.StateArmed),
		message.MethodResume:    transition(malcolm.StateArmed, malcolm.StatePaused),
	}
}

func parameters(args any) (*malcolm.ConfigureParameters, error) {
	m, ok := args.(*malcolm.Map)
	if !ok {
		return nil, fmt.Errorf("parameters are %T, not a map", args)
	}
	params, err := malcolm.ParametersFromMap(m)
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// validate checks the parameters and returns them unchanged.
func validate(ctx context.Context, d *Device, args any) (any, error) {
	if _, err := parameters(args); err != nil {
		return nil, err
	}
	return args, nil
}

// configure arms the device for the scan described by the parameters.
func configure(ctx context.Context, d *Device, args any) (any, error) {
	params, err := parameters(args)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.state(); s != malcolm.StateReady && s != malcolm.StateArmed {
		return nil, fmt.Errorf("%w: cannot configure when %s", ErrInvalidState, s)
	}
	steps := scanSteps(params.Generator)
	d.attributes[malcolm.AttributeAxesToMove] = params.AxesToMove
	d.attributes[malcolm.AttributeConfiguredSteps] = steps
	d.attributes[malcolm.AttributeTotalSteps] = steps
	d.attributes[malcolm.AttributeCompletedSteps] = int32(0)
	if params.Detectors != nil {
		d.attributes[malcolm.AttributeDetectors] = params.Detectors
	}
	d.setState(malcolm.StateArmed)
	return args, nil
}

// run completes every configured step.
func run(ctx context.Context, d *Device, args any) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.state(); s != malcolm.StateArmed {
		return nil, fmt.Errorf("%w: cannot run when %s", ErrInvalidState, s)
	}
	d.attributes[malcolm.AttributeCompletedSteps] = d.attributes[malcolm.AttributeConfiguredSteps]
	d.setState(malcolm.StateReady)
	return nil, nil
}

func reset(ctx context.Context, d *Device, args any) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attributes[malcolm.AttributeCompletedSteps] = int32(0)
	d.setState(malcolm.StateReady)
	return nil, nil
}

// transition moves the device to state, from one of the given states or
// from any state when none are given.
func transition(to malcolm.DeviceState, from ...malcolm.DeviceState) MethodFunc {
	return func(ctx context.Context, d *Device, args any) (any, error) {
		d.mu.Lock()
		defer d.mu.Unlock()
		s := d.state()
		if len(from) > 0 && !slices.Contains(from, s) {
			return nil, fmt.Errorf("%w: cannot go from %s to %s", ErrInvalidState, s, to)
		}
		d.setState(to)
		return nil, nil
	}
}

// scanSteps is the number of points of g, or 0 when a generator has no
// fixed size.
func scanSteps(g *points.CompoundGenerator) int32 {
	steps := int32(1)
	for _, gen := range g.Generators {
		switch x := gen.(type) {
		case *points.LineGenerator:
			steps *= x.Size
		case *points.LissajousGenerator:
			steps *= x.Size
		case *points.ArrayGenerator:
			steps *= int32(len(x.Points))
		case *points.CompoundGenerator:
			steps *= scanSteps(x)
		case *points.SpiralGenerator:
			return 0
		}
	}
	return steps
}
