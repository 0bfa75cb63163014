package sim

// Result holds the aligned per-step series produced by Run. Consumers must
// treat it as read-only; re-deriving quantities from it is fine, mutating
// it is not.
type Result struct {
	Config Config // parameters the run was produced with

	Time           []float64
	Temperature    []float64 // plant temperature θ_o
	Controller     []float64 // saturated controller output θ_c
	Feedback       []float64 // previous-step temperature fed back
	Error          []float64 // raw setpoint error
	EffectiveError []float64 // deadband-gated error driving the PID terms
	Disturbance    []float64 // summed active disturbance magnitudes
}

func newResult(n int, cfg Config) *Result {
	return &Result{
		Config:         cfg,
		Time:           make([]float64, n),
		Temperature:    make([]float64, n),
		Controller:     make([]float64, n),
		Feedback:       make([]float64, n),
		Error:          make([]float64, n),
		EffectiveError: make([]float64, n),
		Disturbance:    make([]float64, n),
	}
}

func (r *Result) Steps() int { return len(r.Time) }

// Summary reduces a run to its figures of merit.
type Summary struct {
	Steps            int
	FinalTemperature float64
	PeakTemperature  float64
	PeakTime         float64 // seconds, first time the peak is reached
	Overshoot        float64 // peak above setpoint, zero if never exceeded
	SaturatedSteps   int     // steps with the output at either clamp bound
	SteadyStateError float64 // mean raw error over the final tenth of the run
}

func (r *Result) Summary() Summary {
	n := r.Steps()
	s := Summary{Steps: n}
	if n == 0 {
		return s
	}

	s.FinalTemperature = r.Temperature[n-1]
	s.PeakTemperature = r.Temperature[0]
	for i, temp := range r.Temperature {
		if temp > s.PeakTemperature {
			s.PeakTemperature = temp
			s.PeakTime = r.Time[i]
		}
	}
	if over := s.PeakTemperature - r.Config.Setpoint; over > 0 {
		s.Overshoot = over
	}

	for i := 1; i < n; i++ {
		if r.Controller[i] <= r.Config.OutputMin || r.Controller[i] >= r.Config.OutputMax {
			s.SaturatedSteps++
		}
	}

	tail := n / 10
	if tail < 1 {
		tail = 1
	}
	sum := 0.0
	for i := n - tail; i < n; i++ {
		sum += r.Error[i]
	}
	s.SteadyStateError = sum / float64(tail)

	return s
}
