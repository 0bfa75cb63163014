package lab

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Agrid-Dev/fryerlab/internal/sim"
)

// Snapshot is the parameter set the next run will use.
type Snapshot struct {
	Config   sim.Config
	Schedule sim.Schedule
}

// Run is a completed simulation with its identity. The embedded Result is
// immutable; a run is never recomputed in place.
type Run struct {
	ID        string
	StartedAt time.Time
	Elapsed   time.Duration
	Result    *sim.Result
}

// Lab holds the mutable parameter set controllers edit and the last
// completed run. Runs themselves are pure: they snapshot the parameters at
// call time, so later edits never bleed into a produced Result.
type Lab struct {
	mu   sync.RWMutex
	s    Snapshot
	last *Run
}

func New(initial Snapshot) (*Lab, error) {
	if err := initial.Config.Validate(); err != nil {
		return nil, err
	}
	l := &Lab{s: initial}
	l.s.Schedule = cloneSchedule(initial.Schedule)
	return l, nil
}

func (l *Lab) Get() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := l.s
	s.Schedule = cloneSchedule(l.s.Schedule)
	return s
}

// update applies a mutation to a copy of the config and commits it only if
// the result still validates.
func (l *Lab) update(mutate func(*sim.Config)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.s.Config
	mutate(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	l.s.Config = next
	return nil
}

func (l *Lab) SetSetpoint(v float64) error {
	return l.update(func(c *sim.Config) { c.Setpoint = v })
}

func (l *Lab) SetGains(kp, ki, kd float64) error {
	return l.update(func(c *sim.Config) { c.Kp, c.Ki, c.Kd = kp, ki, kd })
}

func (l *Lab) SetTau(v float64) error {
	return l.update(func(c *sim.Config) { c.Tau = v })
}

func (l *Lab) SetDeadband(v float64) error {
	return l.update(func(c *sim.Config) { c.Deadband = v })
}

func (l *Lab) SetDuration(v float64) error {
	return l.update(func(c *sim.Config) { c.Duration = v })
}

func (l *Lab) SetAmbient(v float64) error {
	return l.update(func(c *sim.Config) { c.Ambient = v })
}

func (l *Lab) SetSchedule(sched sim.Schedule) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.s.Schedule = cloneSchedule(sched)
}

// Run executes the engine against the current parameters and records the
// outcome as the last run.
func (l *Lab) Run() (*Run, error) {
	l.mu.RLock()
	cfg := l.s.Config
	sched := cloneSchedule(l.s.Schedule)
	l.mu.RUnlock()

	started := time.Now()
	res, err := sim.Run(cfg, sched)
	if err != nil {
		return nil, err
	}
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: started,
		Elapsed:   time.Since(started),
		Result:    res,
	}

	l.mu.Lock()
	l.last = run
	l.mu.Unlock()
	return run, nil
}

func (l *Lab) LastRun() (*Run, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last, l.last != nil
}

func cloneSchedule(s sim.Schedule) sim.Schedule {
	if s == nil {
		return nil
	}
	c := make(sim.Schedule, len(s))
	copy(c, s)
	return c
}
