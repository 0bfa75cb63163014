package ports

import (
	"github.com/Agrid-Dev/fryerlab/internal/lab"
	"github.com/Agrid-Dev/fryerlab/internal/sim"
)

// LabService is the control-plane port used by controllers (HTTP/MQTT/Modbus).
type LabService interface {
	Get() lab.Snapshot
	SetSetpoint(float64) error
	SetGains(kp, ki, kd float64) error
	SetTau(float64) error
	SetDeadband(float64) error
	SetDuration(float64) error
	SetAmbient(float64) error
	SetSchedule(sim.Schedule)
	Run() (*lab.Run, error)
	LastRun() (*lab.Run, bool)
}
