package sim

import "math"

// Run simulates the closed-loop thermal response of the plant under PID
// control with the given disturbance schedule. It returns one sample per
// time step, index 0 being the initial condition, and fails only on an
// invalid configuration: disturbance content is never an engine error.
//
// Each invocation is independent and deterministic; identical inputs
// produce bit-identical output series.
func Run(cfg Config, sched Schedule) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := int(cfg.Duration/cfg.TimeStep) + 1
	r := newResult(n, cfg)
	r.Temperature[0] = cfg.Ambient

	integral := 0.0
	prevEffective := 0.0

	for i := 1; i < n; i++ {
		t := float64(i) * cfg.TimeStep
		r.Time[i] = t

		r.Feedback[i] = r.Temperature[i-1]
		r.Error[i] = cfg.Setpoint - r.Feedback[i]

		// The deadband gates the error seen by all three PID terms,
		// not just the proportional one.
		effective := r.Error[i]
		if math.Abs(effective) < cfg.Deadband {
			effective = 0
		}
		r.EffectiveError[i] = effective

		// Inside the band the accumulator is frozen, not reset: the
		// bias built up so far keeps holding the steady-state offset.
		if effective != 0 {
			integral += effective * cfg.TimeStep
		}

		// Derivative on the gated error. A step into or out of the
		// band produces a one-step spike in the output.
		derivative := (effective - prevEffective) / cfg.TimeStep

		out := cfg.Kp*effective + cfg.Ki*integral + cfg.Kd*derivative
		if out < cfg.OutputMin {
			out = cfg.OutputMin
		}
		if out > cfg.OutputMax {
			out = cfg.OutputMax
		}
		r.Controller[i] = out

		prevEffective = effective

		p := sched.TotalAt(t)
		r.Disturbance[i] = p

		// Explicit Euler step of the first-order lag plus the additive
		// disturbance term. There is no anti-windup on the integral;
		// only the output clamp bounds the command.
		rate := (out-r.Temperature[i-1])/cfg.Tau + p
		temp := r.Temperature[i-1] + rate*cfg.TimeStep
		if temp < cfg.Ambient {
			temp = cfg.Ambient
		}
		r.Temperature[i] = temp
	}

	return r, nil
}
