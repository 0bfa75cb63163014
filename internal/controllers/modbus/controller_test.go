package modbusctrl

import (
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/goburrow/modbus"

	"github.com/Agrid-Dev/fryerlab/internal/lab"
	"github.com/Agrid-Dev/fryerlab/internal/sim"
)

// fake service for tests
type spyLabService struct {
	mu sync.Mutex
	s  lab.Snapshot

	last *lab.Run

	// record calls
	setSetpointCalls []float64
	setGainsCalls    [][3]float64
	setTauCalls      []float64
	setDeadbandCalls []float64
	setDurationCalls []float64
	runCalls         int
}

func (f *spyLabService) Get() lab.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}

func (f *spyLabService) SetSetpoint(v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.Config.Setpoint = v
	f.setSetpointCalls = append(f.setSetpointCalls, v)
	return nil
}

func (f *spyLabService) SetGains(kp, ki, kd float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.Config.Kp, f.s.Config.Ki, f.s.Config.Kd = kp, ki, kd
	f.setGainsCalls = append(f.setGainsCalls, [3]float64{kp, ki, kd})
	return nil
}

func (f *spyLabService) SetTau(v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.Config.Tau = v
	f.setTauCalls = append(f.setTauCalls, v)
	return nil
}

func (f *spyLabService) SetDeadband(v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.Config.Deadband = v
	f.setDeadbandCalls = append(f.setDeadbandCalls, v)
	return nil
}

func (f *spyLabService) SetDuration(v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.Config.Duration = v
	f.setDurationCalls = append(f.setDurationCalls, v)
	return nil
}

func (f *spyLabService) SetAmbient(v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.Config.Ambient = v
	return nil
}

func (f *spyLabService) SetSchedule(s sim.Schedule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.Schedule = s
}

func (f *spyLabService) Run() (*lab.Run, error) {
	f.mu.Lock()
	cfg := f.s.Config
	sched := f.s.Schedule
	f.runCalls++
	f.mu.Unlock()

	res, err := sim.Run(cfg, sched)
	if err != nil {
		return nil, err
	}
	run := &lab.Run{ID: "spy-run", Result: res}

	f.mu.Lock()
	f.last = run
	f.mu.Unlock()
	return run, nil
}

func (f *spyLabService) LastRun() (*lab.Run, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.last != nil
}

func findFreeTCPAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	a := l.Addr().String()
	_ = l.Close()
	return a
}

const SyncInterval = 50 * time.Millisecond

func TestModbusControllerHandlers(t *testing.T) {
	fs := &spyLabService{}
	fs.s = lab.Snapshot{Config: sim.DefaultConfig()}
	fs.s.Config.Duration = 60

	addr := findFreeTCPAddr(t)

	ctrl, err := New(fs, Config{
		DeviceID:     "dev",
		Addr:         addr,
		UnitID:       1,
		SyncInterval: SyncInterval,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := t.Context()
	go func() {
		_ = ctrl.Run(ctx)
	}()

	time.Sleep(SyncInterval)

	handler := modbus.NewTCPClientHandler(addr)
	if err := handler.Connect(); err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer handler.Close()
	client := modbus.NewClient(handler)

	// Read holding registers 0..6
	res, err := client.ReadHoldingRegisters(0, holdingRegisters)
	if err != nil {
		t.Fatalf("read holding: %v", err)
	}
	if len(res) != holdingRegisters*2 {
		t.Fatalf("expected %d bytes got %d", holdingRegisters*2, len(res))
	}
	get := func(i int) uint16 { return binary.BigEndian.Uint16(res[i*2 : i*2+2]) }
	if get(0) != encodeScaled(sim.DefaultSetpoint, 100) {
		t.Fatalf("setpoint mismatch")
	}
	if get(2) != encodeScaled(sim.DefaultKi, 100000) {
		t.Fatalf("ki mismatch: got %d", get(2))
	}
	if get(6) != 60 {
		t.Fatalf("duration mismatch: got %d", get(6))
	}

	// Write setpoint register
	newSP := encodeScaled(165.25, 100)
	if _, err := client.WriteSingleRegister(0, newSP); err != nil {
		t.Fatalf("write register: %v", err)
	}
	time.Sleep(SyncInterval)
	fs.mu.Lock()
	if len(fs.setSetpointCalls) == 0 || fs.setSetpointCalls[len(fs.setSetpointCalls)-1] != decodeScaled(newSP, 100) {
		fs.mu.Unlock()
		t.Fatalf("setSetpoint not called")
	}
	fs.mu.Unlock()

	// Coil 0 reads off before any run
	coils, err := client.ReadCoils(0, 1)
	if err != nil {
		t.Fatalf("read coils: %v", err)
	}
	if coils[0]&0x01 != 0 {
		t.Fatalf("expected no completed run yet")
	}

	// Trigger a run via coil 0
	if _, err := client.WriteSingleCoil(0, 0xFF00); err != nil {
		t.Fatalf("write coil: %v", err)
	}
	time.Sleep(SyncInterval)
	fs.mu.Lock()
	if fs.runCalls != 1 {
		fs.mu.Unlock()
		t.Fatalf("expected one run, got %d", fs.runCalls)
	}
	fs.mu.Unlock()

	// Coil 0 now reads on and the input registers expose the summary.
	coils, err = client.ReadCoils(0, 1)
	if err != nil {
		t.Fatalf("read coils: %v", err)
	}
	if coils[0]&0x01 != 1 {
		t.Fatalf("expected completed run flag")
	}

	irs, err := client.ReadInputRegisters(0, 4)
	if err != nil {
		t.Fatalf("read input registers: %v", err)
	}
	final := decodeScaled(binary.BigEndian.Uint16(irs[0:2]), 100)
	if final < sim.DefaultAmbient {
		t.Fatalf("final temperature %v below ambient", final)
	}
}
