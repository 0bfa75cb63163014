package sim

// Reference parameters of the countertop air fryer the model was fitted to.
const (
	DefaultSetpoint  = 180.0
	DefaultKp        = 2.0
	DefaultKi        = 0.001
	DefaultKd        = 5.0
	DefaultTau       = 175.0
	DefaultTimeStep  = 1.0
	DefaultDuration  = 3600.0
	DefaultDeadband  = 5.0
	DefaultAmbient   = 20.0
	DefaultOutputMin = 0.0
	DefaultOutputMax = 200.0
)

// Config holds the plant model and controller parameters for a single run.
type Config struct {
	Setpoint float64 // target temperature, °C
	Kp       float64 // proportional gain
	Ki       float64 // integral gain
	Kd       float64 // derivative gain

	Tau      float64 // plant time constant, seconds
	TimeStep float64 // integration step, seconds
	Duration float64 // total simulated time, seconds
	Deadband float64 // symmetric error tolerance, °C
	Ambient  float64 // ambient temperature, °C

	// Controller output clamp, in °C-equivalent power units.
	OutputMin float64
	OutputMax float64
}

func DefaultConfig() Config {
	return Config{
		Setpoint:  DefaultSetpoint,
		Kp:        DefaultKp,
		Ki:        DefaultKi,
		Kd:        DefaultKd,
		Tau:       DefaultTau,
		TimeStep:  DefaultTimeStep,
		Duration:  DefaultDuration,
		Deadband:  DefaultDeadband,
		Ambient:   DefaultAmbient,
		OutputMin: DefaultOutputMin,
		OutputMax: DefaultOutputMax,
	}
}

func (c *Config) Validate() error {
	if c.TimeStep <= 0 {
		return ErrNonPositiveTimeStep
	}
	if c.Tau <= 0 {
		return ErrNonPositiveTimeConstant
	}
	if c.Duration < 0 {
		return ErrNegativeDuration
	}
	if c.Deadband < 0 {
		return ErrNegativeDeadband
	}
	if c.OutputMin > c.OutputMax {
		return ErrInvalidOutputBounds
	}
	return nil
}
