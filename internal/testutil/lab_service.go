package testutil

import (
	"github.com/Agrid-Dev/fryerlab/internal/lab"
	"github.com/Agrid-Dev/fryerlab/internal/sim"
)

// FakeLabService is a reusable fake implementing ports.LabService.
// Put ONLY what multiple test packages need here.
type FakeLabService struct {
	S lab.Snapshot

	SetSetpointCalled bool
	SetSetpointArg    float64
	SetSetpointErr    error

	SetGainsCalled bool
	SetGainsArgs   [3]float64
	SetGainsErr    error

	SetTauCalled bool
	SetTauArg    float64
	SetTauErr    error

	SetDeadbandCalled bool
	SetDeadbandArg    float64
	SetDeadbandErr    error

	SetDurationCalled bool
	SetDurationArg    float64
	SetDurationErr    error

	SetAmbientCalled bool
	SetAmbientArg    float64
	SetAmbientErr    error

	SetScheduleCalled bool
	SetScheduleArg    sim.Schedule

	RunCalled bool
	RunErr    error
	RunResult *lab.Run

	Last *lab.Run
}

func NewFakeLabService() *FakeLabService {
	return &FakeLabService{
		S: lab.Snapshot{
			Config:   sim.DefaultConfig(),
			Schedule: sim.Schedule{{Start: 600, Magnitude: -2, Duration: 40}},
		},
	}
}

func (f *FakeLabService) Get() lab.Snapshot { return f.S }

func (f *FakeLabService) SetSetpoint(v float64) error {
	f.SetSetpointCalled = true
	f.SetSetpointArg = v
	if f.SetSetpointErr != nil {
		return f.SetSetpointErr
	}
	f.S.Config.Setpoint = v
	return nil
}

func (f *FakeLabService) SetGains(kp, ki, kd float64) error {
	f.SetGainsCalled = true
	f.SetGainsArgs = [3]float64{kp, ki, kd}
	if f.SetGainsErr != nil {
		return f.SetGainsErr
	}
	f.S.Config.Kp, f.S.Config.Ki, f.S.Config.Kd = kp, ki, kd
	return nil
}

func (f *FakeLabService) SetTau(v float64) error {
	f.SetTauCalled = true
	f.SetTauArg = v
	if f.SetTauErr != nil {
		return f.SetTauErr
	}
	f.S.Config.Tau = v
	return nil
}

func (f *FakeLabService) SetDeadband(v float64) error {
	f.SetDeadbandCalled = true
	f.SetDeadbandArg = v
	if f.SetDeadbandErr != nil {
		return f.SetDeadbandErr
	}
	f.S.Config.Deadband = v
	return nil
}

func (f *FakeLabService) SetDuration(v float64) error {
	f.SetDurationCalled = true
	f.SetDurationArg = v
	if f.SetDurationErr != nil {
		return f.SetDurationErr
	}
	f.S.Config.Duration = v
	return nil
}

func (f *FakeLabService) SetAmbient(v float64) error {
	f.SetAmbientCalled = true
	f.SetAmbientArg = v
	if f.SetAmbientErr != nil {
		return f.SetAmbientErr
	}
	f.S.Config.Ambient = v
	return nil
}

func (f *FakeLabService) SetSchedule(s sim.Schedule) {
	f.SetScheduleCalled = true
	f.SetScheduleArg = s
	f.S.Schedule = s
}

func (f *FakeLabService) Run() (*lab.Run, error) {
	f.RunCalled = true
	if f.RunErr != nil {
		return nil, f.RunErr
	}
	if f.RunResult == nil {
		res, err := sim.Run(f.S.Config, f.S.Schedule)
		if err != nil {
			return nil, err
		}
		f.RunResult = &lab.Run{ID: "fake-run", Result: res}
	}
	f.Last = f.RunResult
	return f.RunResult, nil
}

func (f *FakeLabService) LastRun() (*lab.Run, bool) {
	return f.Last, f.Last != nil
}
