package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Agrid-Dev/fryerlab/internal/lab"
	"github.com/Agrid-Dev/fryerlab/internal/ports"
	"github.com/Agrid-Dev/fryerlab/internal/sim"
)

type Config struct {
	// Identity
	DeviceID string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainSnapshot  bool
	PublishInterval time.Duration

	Username string
	Password string
}

type Controller struct {
	svc ports.LabService
	cfg Config

	client mqtt.Client
}

func New(svc ports.LabService, cfg Config) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.DeviceID == "" {
		return nil, errors.New("mqtt: DeviceID is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "fryerlab/" + cfg.DeviceID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "fryerlab-" + cfg.DeviceID
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	return &Controller{
		svc: svc,
		cfg: cfg,
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		// Parameter writes plus the run command.
		for _, topic := range []string{c.topic("set/+"), c.topic("run")} {
			token := cl.Subscribe(topic, c.cfg.QoS, c.onMessage)
			token.Wait()
			// If subscribe fails, paho exposes token.Error().
		}
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	// Publish loop: publish snapshot on interval, and only when changed.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	var last lab.Snapshot
	first := true

	// publish immediately once
	c.publishSnapshot()

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			cur := c.svc.Get()
			if first || !reflect.DeepEqual(cur, last) {
				c.publishSnapshot()
				last = cur
				first = false
			}
		}
	}
}

func (c *Controller) publishSnapshot() {
	s := c.svc.Get()
	dto := snapshotDTO{
		Setpoint:     s.Config.Setpoint,
		Kp:           s.Config.Kp,
		Ki:           s.Config.Ki,
		Kd:           s.Config.Kd,
		Tau:          s.Config.Tau,
		TimeStep:     s.Config.TimeStep,
		Duration:     s.Config.Duration,
		Deadband:     s.Config.Deadband,
		Ambient:      s.Config.Ambient,
		Disturbances: s.Schedule.String(),
	}
	b, _ := json.Marshal(dto)
	c.client.Publish(c.topic("snapshot"), c.cfg.QoS, c.cfg.RetainSnapshot, b)
}

func (c *Controller) publishRun(r *lab.Run) {
	s := r.Result.Summary()
	dto := runSummaryDTO{
		RunID:            r.ID,
		Steps:            s.Steps,
		FinalTemperature: s.FinalTemperature,
		PeakTemperature:  s.PeakTemperature,
		Overshoot:        s.Overshoot,
		SaturatedSteps:   s.SaturatedSteps,
		SteadyStateError: s.SteadyStateError,
	}
	b, _ := json.Marshal(dto)
	c.client.Publish(c.topic("runs/"+r.ID), c.cfg.QoS, false, b)
}

type snapshotDTO struct {
	Setpoint     float64 `json:"setpoint"`
	Kp           float64 `json:"kp"`
	Ki           float64 `json:"ki"`
	Kd           float64 `json:"kd"`
	Tau          float64 `json:"tau"`
	TimeStep     float64 `json:"time_step"`
	Duration     float64 `json:"duration"`
	Deadband     float64 `json:"deadband"`
	Ambient      float64 `json:"ambient"`
	Disturbances string  `json:"disturbances"`
}

type runSummaryDTO struct {
	RunID            string  `json:"run_id"`
	Steps            int     `json:"steps"`
	FinalTemperature float64 `json:"final_temperature"`
	PeakTemperature  float64 `json:"peak_temperature"`
	Overshoot        float64 `json:"overshoot"`
	SaturatedSteps   int     `json:"saturated_steps"`
	SteadyStateError float64 `json:"steady_state_error"`
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	t := msg.Topic()

	// <base>/run triggers an execution; payload is ignored.
	if t == c.topic("run") {
		run, err := c.svc.Run()
		if err != nil {
			return
		}
		c.publishRun(run)
		return
	}

	// topic format: <base>/set/<field>
	prefix := c.cfg.BaseTopic + "/set/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	field := strings.TrimPrefix(t, prefix)

	payload := msg.Payload()

	// Dispatch by field
	switch field {
	case "setpoint":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		_ = c.svc.SetSetpoint(v)

	case "kp":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		cur := c.svc.Get().Config
		_ = c.svc.SetGains(v, cur.Ki, cur.Kd)

	case "ki":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		cur := c.svc.Get().Config
		_ = c.svc.SetGains(cur.Kp, v, cur.Kd)

	case "kd":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		cur := c.svc.Get().Config
		_ = c.svc.SetGains(cur.Kp, cur.Ki, v)

	case "tau":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		_ = c.svc.SetTau(v)

	case "deadband":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		_ = c.svc.SetDeadband(v)

	case "duration":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		_ = c.svc.SetDuration(v)

	case "ambient":
		v, err := decodeValueStrict[float64](payload)
		if err != nil {
			return
		}
		_ = c.svc.SetAmbient(v)

	case "disturbances":
		s, err := decodeValueStrict[string](payload)
		if err != nil {
			return
		}
		sched, err := sim.ParseSchedule(s)
		if err != nil {
			return
		}
		c.svc.SetSchedule(sched)
	}
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
