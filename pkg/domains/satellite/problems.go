package satellite

import (
	"github.com/openfroyo/goalnet/pkg/engine"
)

// instrument describes one on-board instrument of a bundled problem.
type instrument struct {
	satellite string
	target    string
	modes     []string
}

func build(name string, pointing map[string]string, instruments map[string]instrument, modes, directions, blank []string) *engine.State {
	s := engine.NewState(name)
	s.Declare(VarModes, modes...)
	s.Declare(VarDirections, directions...)

	for sat, dir := range pointing {
		s.Declare(VarSatellites, sat)
		s.Set(VarPowerAvail, sat, engine.Bool(true))
		s.Set(VarPointing, sat, engine.String(dir))
	}
	for id, inst := range instruments {
		s.Declare(VarInstruments, id)
		s.Set(VarOnBoard, id, engine.String(inst.satellite))
		s.Set(VarCalibrationTarget, id, engine.String(inst.target))
		s.Set(VarPowerOn, id, engine.Bool(false))
		s.Set(VarCalibrated, id, engine.Bool(false))
		Supports(s, id, inst.modes...)
	}
	for _, d := range blank {
		s.Set(VarHaveImage, d, engine.String(""))
	}
	return s
}

func image(direction, mode string) engine.Goal {
	return engine.Goal{Variable: VarHaveImage, Object: direction, Value: engine.String(mode)}
}

// Problem1State returns the single-satellite world of problem 1.
func Problem1State() *engine.State {
	return build("state1",
		map[string]string{"satellite0": "Phenomenon6"},
		map[string]instrument{
			"instrument0": {satellite: "satellite0", target: "GroundStation2", modes: []string{"thermograph0"}},
		},
		[]string{"image1", "spectrograph2", "thermograph0"},
		[]string{"Star0", "GroundStation1", "GroundStation2", "Phenomenon3", "Phenomenon4", "Star5", "Phenomenon6"},
		[]string{"Star0", "Phenomenon3", "Phenomenon4", "Star5", "Phenomenon6"},
	)
}

// Problem10State returns the five-satellite world of problem 10.
func Problem10State() *engine.State {
	return build("state2",
		map[string]string{
			"satellite0": "Star0",
			"satellite1": "Star4",
			"satellite2": "Star1",
			"satellite3": "GroundStation3",
			"satellite4": "Planet10",
		},
		map[string]instrument{
			"instrument0":  {"satellite0", "Star1", []string{"image4"}},
			"instrument1":  {"satellite0", "GroundStation3", []string{"infrared0", "spectrograph1"}},
			"instrument2":  {"satellite1", "GroundStation3", []string{"infrared0", "image2"}},
			"instrument3":  {"satellite1", "Star4", []string{"infrared3", "infrared0"}},
			"instrument4":  {"satellite2", "Star2", []string{"spectrograph1", "image4", "infrared0"}},
			"instrument5":  {"satellite2", "Star0", []string{"image2", "infrared0", "infrared3"}},
			"instrument6":  {"satellite3", "GroundStation3", []string{"infrared0", "infrared3"}},
			"instrument7":  {"satellite3", "Star4", []string{"image4", "spectrograph1", "infrared3"}},
			"instrument8":  {"satellite4", "Star4", []string{"spectrograph1", "image4"}},
			"instrument9":  {"satellite4", "Star2", []string{"infrared3"}},
			"instrument10": {"satellite4", "Star0", []string{"image2", "image4"}},
		},
		[]string{"infrared0", "spectrograph1", "image2", "infrared3", "image4"},
		[]string{
			"Star0", "Star1", "Star2", "GroundStation3", "Star4", "Planet5", "Star6", "Star7", "Phenomenon8",
			"Planet9", "Planet10", "Star11", "Star12", "Phenomenon13", "Phenomenon14", "Star15", "Star16",
		},
		[]string{
			"Star0", "Star1", "Star2", "Star4", "Planet5", "Star6", "Star7", "Phenomenon8",
			"Planet9", "Planet10", "Star11", "Star12", "Phenomenon13", "Phenomenon14", "Star15", "Star16",
		},
	)
}

// Problems returns the bundled satellite problems.
func Problems() []*engine.Problem {
	return []*engine.Problem{
		{
			Name:        "problem1",
			Domain:      Name,
			Description: "one satellite, one thermograph, three images",
			State:       Problem1State(),
			Goals: []engine.Goal{
				image("Phenomenon4", "thermograph0"),
				image("Star5", "thermograph0"),
				image("Phenomenon6", "thermograph0"),
			},
		},
		{
			Name:        "problem10",
			Domain:      Name,
			Description: "five satellites, eleven instruments, one pointing goal and eleven images",
			State:       Problem10State(),
			Goals: []engine.Goal{
				{Variable: VarPointing, Object: "satellite4", Value: engine.String("Planet9")},
				image("Planet5", "image4"),
				image("Star6", "infrared3"),
				image("Star7", "image4"),
				image("Phenomenon8", "image4"),
				image("Planet9", "infrared0"),
				image("Planet10", "infrared3"),
				image("Star12", "image4"),
				image("Phenomenon13", "image4"),
				image("Phenomenon14", "spectrograph1"),
				image("Star15", "spectrograph1"),
				image("Star16", "image2"),
			},
		},
	}
}
