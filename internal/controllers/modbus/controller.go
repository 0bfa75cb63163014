package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	mbserver "github.com/tbrandon/mbserver"

	"github.com/Agrid-Dev/fryerlab/internal/ports"
)

// Register map. Holding registers are read/write simulation parameters,
// input registers expose the last-run summary, coil 0 triggers a run.
//
//	HR 0  setpoint        x100
//	HR 1  kp              x100
//	HR 2  ki              x100000
//	HR 3  kd              x100
//	HR 4  tau             x10
//	HR 5  deadband        x100
//	HR 6  duration        x1, seconds
//	IR 0  final temp      x100
//	IR 1  peak temp       x100
//	IR 2  overshoot       x100
//	IR 3  saturated steps x1
const holdingRegisters = 7

// Config for the Modbus controller.
type Config struct {
	DeviceID string
	Addr     string
	UnitID   byte // UnitID (Modbus slave/unit ID). Use an integer 1..247.
	// SyncInterval retained in config to preserve API but unused when reads are handled by custom handlers.
	SyncInterval time.Duration
}

type Controller struct {
	svc ports.LabService
	cfg Config

	serv *mbserver.Server
}

func New(svc ports.LabService, cfg Config) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	// SyncInterval is optional; no polling is required because reads are handled directly.
	return &Controller{svc: svc, cfg: cfg}, nil
}

func (c *Controller) readHolding(addr int) (uint16, bool) {
	cfg := c.svc.Get().Config
	switch addr {
	case 0:
		return encodeScaled(cfg.Setpoint, 100), true
	case 1:
		return encodeScaled(cfg.Kp, 100), true
	case 2:
		return encodeScaled(cfg.Ki, 100000), true
	case 3:
		return encodeScaled(cfg.Kd, 100), true
	case 4:
		return encodeScaled(cfg.Tau, 10), true
	case 5:
		return encodeScaled(cfg.Deadband, 100), true
	case 6:
		return encodeScaled(cfg.Duration, 1), true
	default:
		return 0, false
	}
}

func (c *Controller) writeHolding(addr int, value uint16) error {
	switch addr {
	case 0:
		return c.svc.SetSetpoint(decodeScaled(value, 100))
	case 1:
		cur := c.svc.Get().Config
		return c.svc.SetGains(decodeScaled(value, 100), cur.Ki, cur.Kd)
	case 2:
		cur := c.svc.Get().Config
		return c.svc.SetGains(cur.Kp, decodeScaled(value, 100000), cur.Kd)
	case 3:
		cur := c.svc.Get().Config
		return c.svc.SetGains(cur.Kp, cur.Ki, decodeScaled(value, 100))
	case 4:
		return c.svc.SetTau(decodeScaled(value, 10))
	case 5:
		return c.svc.SetDeadband(decodeScaled(value, 100))
	case 6:
		return c.svc.SetDuration(decodeScaled(value, 1))
	default:
		return errors.New("modbus: unknown register")
	}
}

// Run starts the Modbus server and registers handlers that apply writes
// immediately and serve reads directly from the lab service. It blocks until
// ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers BEFORE starting the TCP listener to avoid races inside mbserver
	// between handler registration and the server's goroutines.
	// Read Coils (function 1) - coil 0 reports whether a run has completed.
	serv.RegisterFunctionHandler(1, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := binary.BigEndian.Uint16(data[0:2])
		qty := binary.BigEndian.Uint16(data[2:4])
		if qty == 0 || qty > 2000 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		if start != 0 || qty != 1 {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		coilByte := byte(0)
		if _, ok := c.svc.LastRun(); ok {
			coilByte = 0x01
		}
		// response: byte count (1) + coil bytes
		return []byte{1, coilByte}, &mbserver.Success
	})

	// Read Holding Registers (function 3) - simulation parameters.
	serv.RegisterFunctionHandler(3, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := int(binary.BigEndian.Uint16(data[0:2]))
		qty := int(binary.BigEndian.Uint16(data[2:4]))
		if qty == 0 || qty > 125 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		if start < 0 || start+qty > holdingRegisters {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		regs := make([]uint16, 0, qty)
		for i := 0; i < qty; i++ {
			v, ok := c.readHolding(start + i)
			if !ok {
				return []byte{}, &mbserver.IllegalDataAddress
			}
			regs = append(regs, v)
		}
		byteCount := len(regs) * 2
		resp := make([]byte, 1+byteCount)
		resp[0] = byte(byteCount)
		for i, r := range regs {
			binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
		}
		return resp, &mbserver.Success
	})

	// Read Input Registers (function 4) - last-run summary.
	serv.RegisterFunctionHandler(4, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := int(binary.BigEndian.Uint16(data[0:2]))
		qty := int(binary.BigEndian.Uint16(data[2:4]))
		if qty == 0 || qty > 125 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		if start < 0 || start+qty > 4 {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		run, ok := c.svc.LastRun()
		if !ok {
			// All-zero summary until the first run completes.
			resp := make([]byte, 1+qty*2)
			resp[0] = byte(qty * 2)
			return resp, &mbserver.Success
		}
		sum := run.Result.Summary()
		regs := make([]uint16, 0, qty)
		for i := 0; i < qty; i++ {
			switch start + i {
			case 0:
				regs = append(regs, encodeScaled(sum.FinalTemperature, 100))
			case 1:
				regs = append(regs, encodeScaled(sum.PeakTemperature, 100))
			case 2:
				regs = append(regs, encodeScaled(sum.Overshoot, 100))
			case 3:
				regs = append(regs, encodeScaled(float64(sum.SaturatedSteps), 1))
			default:
				return []byte{}, &mbserver.IllegalDataAddress
			}
		}
		byteCount := len(regs) * 2
		resp := make([]byte, 1+byteCount)
		resp[0] = byte(byteCount)
		for i, r := range regs {
			binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
		}
		return resp, &mbserver.Success
	})

	// Write Single Coil (function 5) - coil 0 on triggers a run.
	serv.RegisterFunctionHandler(5, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		addr := binary.BigEndian.Uint16(data[0:2])
		value := binary.BigEndian.Uint16(data[2:4])

		if addr != 0 {
			return []byte{}, &mbserver.IllegalDataAddress
		}

		switch value {
		case 0x0000:
			// writing "off" is a no-op; a run cannot be un-run
		case 0xFF00:
			if _, err := c.svc.Run(); err != nil {
				return []byte{}, &mbserver.IllegalDataValue
			}
		default:
			return []byte{}, &mbserver.IllegalDataValue
		}

		// echo request (address + value)
		resp := make([]byte, 4)
		copy(resp, data[0:4])
		return resp, &mbserver.Success
	})

	// Write Single Register (function 6)
	serv.RegisterFunctionHandler(6, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		addr := int(binary.BigEndian.Uint16(data[0:2]))
		value := binary.BigEndian.Uint16(data[2:4])

		if addr < 0 || addr >= holdingRegisters {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		if err := c.writeHolding(addr, value); err != nil {
			return []byte{}, &mbserver.IllegalDataValue
		}

		resp := make([]byte, 4)
		copy(resp, data[0:4])
		return resp, &mbserver.Success
	})

	// Write Multiple Registers (function 16)
	serv.RegisterFunctionHandler(16, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		d := frame.GetData()
		if len(d) < 5 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := binary.BigEndian.Uint16(d[0:2])
		quantity := binary.BigEndian.Uint16(d[2:4])
		byteCount := int(d[4])
		if byteCount != int(quantity)*2 || len(d) < 5+byteCount {
			return []byte{}, &mbserver.IllegalDataValue
		}
		for i := 0; i < int(quantity); i++ {
			addr := int(start) + i
			if addr < 0 || addr >= holdingRegisters {
				return []byte{}, &mbserver.IllegalDataAddress
			}
			val := binary.BigEndian.Uint16(d[5+i*2 : 5+i*2+2])
			if err := c.writeHolding(addr, val); err != nil {
				return []byte{}, &mbserver.IllegalDataValue
			}
		}

		resp := make([]byte, 4)
		binary.BigEndian.PutUint16(resp[0:2], start)
		binary.BigEndian.PutUint16(resp[2:4], quantity)
		return resp, &mbserver.Success
	})

	// Now start listening after all handlers are registered.
	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}

	// Block until ctx.Done()
	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

func encodeScaled(v float64, scale int) uint16 {
	r := min(max(int(math.Round(v*float64(scale))), math.MinInt16), math.MaxInt16)
	return uint16(int16(r))
}

func decodeScaled(u uint16, scale int) float64 {
	i := int16(u)
	return float64(i) / float64(scale)
}
