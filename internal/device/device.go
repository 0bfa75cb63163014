package device

import (
	"fmt"

	"github.com/Agrid-Dev/fryerlab/internal/sim"
)

// Profile is an integer enum naming an appliance preset.
type Profile int

const (
	ProfileUnknown Profile = iota
	ProfileAirFryer
	ProfileOven
	ProfileDehydrator
)

func (p Profile) Valid() bool {
	return p == ProfileAirFryer || p == ProfileOven || p == ProfileDehydrator
}

func (p Profile) String() string {
	switch p {
	case ProfileAirFryer:
		return "airfryer"
	case ProfileOven:
		return "oven"
	case ProfileDehydrator:
		return "dehydrator"
	default:
		return "unknown"
	}
}

// ParseProfile is handy for config files / CLI.
func ParseProfile(s string) (Profile, error) {
	switch s {
	case "airfryer":
		return ProfileAirFryer, nil
	case "oven":
		return ProfileOven, nil
	case "dehydrator":
		return ProfileDehydrator, nil
	default:
		return ProfileUnknown, fmt.Errorf("invalid profile: %q", s)
	}
}

// Plant carries the physical parameters a profile implies.
type Plant struct {
	Tau       float64 // thermal time constant, seconds
	Ambient   float64 // resting temperature, °C
	OutputMin float64
	OutputMax float64
}

func (p Profile) Plant() Plant {
	switch p {
	case ProfileOven:
		return Plant{Tau: 600, Ambient: 20, OutputMin: 0, OutputMax: 250}
	case ProfileDehydrator:
		return Plant{Tau: 300, Ambient: 20, OutputMin: 0, OutputMax: 90}
	default:
		// The air fryer the model was originally fitted to.
		return Plant{Tau: 175, Ambient: 20, OutputMin: 0, OutputMax: 200}
	}
}

// Apply overwrites the plant-side parameters of cfg with the profile's
// preset, leaving controller gains and run settings untouched.
func (p Profile) Apply(cfg *sim.Config) {
	plant := p.Plant()
	cfg.Tau = plant.Tau
	cfg.Ambient = plant.Ambient
	cfg.OutputMin = plant.OutputMin
	cfg.OutputMax = plant.OutputMax
}
