package sim

import "errors"

var (
	ErrNonPositiveTimeStep     = errors.New("time step must be greater than zero")
	ErrNonPositiveTimeConstant = errors.New("plant time constant must be greater than zero")
	ErrNegativeDuration        = errors.New("duration must not be negative")
	ErrNegativeDeadband        = errors.New("deadband threshold must not be negative")
	ErrInvalidOutputBounds     = errors.New("output saturation low bound exceeds high bound")
)
