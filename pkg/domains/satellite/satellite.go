// Package satellite implements the satellite observation domain: satellites
// turn between directions, power and calibrate on-board instruments, and
// take images in the modes those instruments support.
package satellite

import (
	"github.com/openfroyo/goalnet/pkg/engine"
)

// Name is the domain name used in problem files and the catalog.
const Name = "satellite"

// Variable names. Satellites, instruments, modes and directions are boolean
// set variables; supports is a set fact keyed by engine.Key(instrument, mode).
const (
	VarSatellites        = "satellites"
	VarInstruments       = "instruments"
	VarModes             = "modes"
	VarDirections        = "directions"
	VarPowerAvail        = "power_avail"
	VarPointing          = "pointing"
	VarOnBoard           = "on_board"
	VarSupports          = "supports"
	VarCalibrationTarget = "calibration_target"
	VarPowerOn           = "power_on"
	VarCalibrated        = "calibrated"
	VarHaveImage         = "have_image"
)

// Register installs the satellite operators and methods into reg.
func Register(reg *engine.Registry) {
	reg.RegisterOperators(VarPointing, engine.NewOperator("turn_to", turnTo))
	reg.RegisterOperators(VarPowerOn,
		engine.NewOperator("switch_on", switchOn),
		engine.NewOperator("switch_off", switchOff),
	)
	reg.RegisterOperators(VarCalibrated, engine.NewOperator("calibrate", calibrate))
	reg.RegisterOperators(VarHaveImage, engine.NewOperator("take_image", takeImage))

	reg.RegisterMethods(VarPowerOn, engine.NewMethod("activate", activate))
	reg.RegisterMethods(VarCalibrated, engine.NewMethod("calibrate_instrument", calibrateInstrument))
	reg.RegisterMethods(VarHaveImage, engine.NewMethod("capture_image", captureImage))
}

// Supports records that instrument can take images in each of modes.
func Supports(s *engine.State, instrument string, modes ...string) {
	for _, m := range modes {
		s.Set(VarSupports, engine.Key(instrument, m), engine.Bool(true))
	}
}

func onBoard(s *engine.State, instrument string) string {
	return s.Str(VarOnBoard, instrument)
}

func pointing(s *engine.State, satellite string) string {
	return s.Str(VarPointing, satellite)
}

// findInstrument returns the first instrument, in name order, supporting mode.
func findInstrument(s *engine.State, mode string) (string, bool) {
	for _, i := range s.Members(VarInstruments) {
		if s.Has(VarSupports, engine.Key(i, mode)) {
			return i, true
		}
	}
	return "", false
}

func turnTo(s *engine.State, sat string, d engine.Value) (*engine.State, error) {
	dir, _ := d.Str()
	if !s.Has(VarSatellites, sat) || !s.Has(VarDirections, dir) {
		return engine.Inapplicable()
	}
	s.Set(VarPointing, sat, d)
	return s, nil
}

func switchOn(s *engine.State, i string, _ engine.Value) (*engine.State, error) {
	if !s.Has(VarInstruments, i) || !s.Has(VarPowerAvail, onBoard(s, i)) {
		return engine.Inapplicable()
	}
	s.Set(VarPowerOn, i, engine.Bool(true))
	s.Set(VarPowerAvail, onBoard(s, i), engine.Bool(false))
	return s, nil
}

func switchOff(s *engine.State, i string, _ engine.Value) (*engine.State, error) {
	if !s.Has(VarInstruments, i) || !s.Has(VarPowerOn, i) {
		return engine.Inapplicable()
	}
	s.Set(VarPowerOn, i, engine.Bool(false))
	s.Set(VarPowerAvail, onBoard(s, i), engine.Bool(true))
	return s, nil
}

func aimedAtTarget(s *engine.State, i string) bool {
	target := s.Str(VarCalibrationTarget, i)
	return target != "" && pointing(s, onBoard(s, i)) == target
}

func calibrate(s *engine.State, i string, _ engine.Value) (*engine.State, error) {
	if !s.Has(VarInstruments, i) || !s.Has(VarPowerOn, i) || !aimedAtTarget(s, i) {
		return engine.Inapplicable()
	}
	s.Set(VarCalibrated, i, engine.Bool(true))
	return s, nil
}

func takeImage(s *engine.State, d string, m engine.Value) (*engine.State, error) {
	mode, _ := m.Str()
	if !s.Has(VarDirections, d) || !s.Has(VarModes, mode) {
		return engine.Inapplicable()
	}
	i, ok := findInstrument(s, mode)
	if !ok {
		return engine.Inapplicable()
	}
	if !s.Has(VarPowerOn, i) || !s.Has(VarCalibrated, i) || pointing(s, onBoard(s, i)) != d {
		return engine.Inapplicable()
	}
	s.Set(VarHaveImage, d, m)
	return s, nil
}

func captureImage(s *engine.State, d string, m engine.Value) ([]engine.Goal, error) {
	mode, _ := m.Str()
	if !s.Has(VarDirections, d) || !s.Has(VarModes, mode) {
		return engine.NotApplicable()
	}
	i, ok := findInstrument(s, mode)
	if !ok {
		return engine.NotApplicable()
	}
	sat := onBoard(s, i)
	if s.Has(VarPowerOn, i) && s.Has(VarCalibrated, i) && pointing(s, sat) == d {
		return engine.NotApplicable()
	}
	return engine.Subgoals(
		engine.Goal{Variable: VarPowerOn, Object: i, Value: engine.Bool(true)},
		engine.Goal{Variable: VarCalibrated, Object: i, Value: engine.Bool(true)},
		engine.Goal{Variable: VarPointing, Object: sat, Value: engine.String(d)},
		engine.Goal{Variable: VarHaveImage, Object: d, Value: m},
	)
}

func calibrateInstrument(s *engine.State, i string, _ engine.Value) ([]engine.Goal, error) {
	if !s.Has(VarInstruments, i) || !s.Has(VarPowerOn, i) || aimedAtTarget(s, i) {
		return engine.NotApplicable()
	}
	target := s.Str(VarCalibrationTarget, i)
	if target == "" {
		return engine.NotApplicable()
	}
	return engine.Subgoals(
		engine.Goal{Variable: VarPointing, Object: onBoard(s, i), Value: engine.String(target)},
		engine.Goal{Variable: VarCalibrated, Object: i, Value: engine.Bool(true)},
	)
}

// activate frees the power of i's satellite by switching off another
// powered instrument on board, then switches i on.
func activate(s *engine.State, i string, _ engine.Value) ([]engine.Goal, error) {
	sat := onBoard(s, i)
	if !s.Has(VarInstruments, i) || s.Has(VarPowerAvail, sat) {
		return engine.NotApplicable()
	}
	for _, other := range s.Members(VarInstruments) {
		if other != i && onBoard(s, other) == sat && s.Has(VarPowerOn, other) {
			return engine.Subgoals(
				engine.Goal{Variable: VarPowerOn, Object: other, Value: engine.Bool(false)},
				engine.Goal{Variable: VarPowerOn, Object: i, Value: engine.Bool(true)},
			)
		}
	}
	return engine.NotApplicable()
}
