package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/Agrid-Dev/fryerlab/internal/device"
	"github.com/Agrid-Dev/fryerlab/internal/lab"
	"github.com/Agrid-Dev/fryerlab/internal/sim"
)

const envPrefix = "FRYERLAB_"

type Config struct {
	DeviceID string `koanf:"device_id"`
	// Serve keeps the controllers running instead of the one-shot
	// run-and-report mode.
	Serve bool `koanf:"serve"`

	Controllers struct {
		HTTP   HTTPConfig   `koanf:"http"`
		MQTT   MQTTConfig   `koanf:"mqtt"`
		MODBUS ModbusConfig `koanf:"modbus"`
	} `koanf:"controllers"`

	Simulation SimulationConfig `koanf:"simulation"`
	Output     OutputConfig     `koanf:"output"`
}

type SimulationConfig struct {
	Profile *string `koanf:"profile"` // "airfryer" | "oven" | "dehydrator"

	Setpoint *float64 `koanf:"setpoint"`
	Kp       *float64 `koanf:"kp"`
	Ki       *float64 `koanf:"ki"`
	Kd       *float64 `koanf:"kd"`

	Tau      *float64 `koanf:"tau"`
	TimeStep *float64 `koanf:"time_step"`
	Duration *float64 `koanf:"duration"`
	Deadband *float64 `koanf:"deadband"`
	Ambient  *float64 `koanf:"ambient"`

	// Semicolon-separated "start,magnitude,duration" triples.
	Disturbances *string `koanf:"disturbances"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BrokerURL       string        `koanf:"broker_url"`
	ClientID        string        `koanf:"client_id"`
	BaseTopic       string        `koanf:"base_topic"`
	QoS             byte          `koanf:"qos"`
	RetainSnapshot  bool          `koanf:"retain_snapshot"`
	PublishInterval time.Duration `koanf:"publish_interval"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
}

type ModbusConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Addr         string        `koanf:"addr"`
	UnitID       byte          `koanf:"unit_id"`
	SyncInterval time.Duration `koanf:"sync_interval"`
}

type OutputConfig struct {
	CSVPath  string `koanf:"csv_path"`
	PlotPath string `koanf:"plot_path"`
}

func LoadConfig(path string) (Config, error) {
	var cfg Config

	k := koanf.New(".")
	if err := k.Load(structs.Provider(baseConfig(), "koanf"), nil); err != nil {
		return cfg, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return cfg, err
		}
		if _, statErr := os.Stat(path); statErr != nil {
			if !os.IsNotExist(statErr) {
				return cfg, fmt.Errorf("read config: %w", statErr)
			}
			// Config file missing → defaults + env.
		} else if err := k.Load(file.Provider(path), parser); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyTransform(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return kyaml.Parser(), nil
	case ".json":
		return kjson.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}
}

// envKeyTransform maps FRYERLAB_-stripped environment keys to koanf paths:
// section prefixes become dotted paths ("CONTROLLERS_HTTP_ADDR" →
// "controllers.http.addr", "SIMULATION_TIME_STEP" → "simulation.time_step"),
// everything else passes through lowercased.
func envKeyTransform(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return ""
	}
	parts := strings.Split(key, "_")
	switch {
	case parts[0] == "controllers" && len(parts) >= 3:
		return "controllers." + parts[1] + "." + strings.Join(parts[2:], "_")
	case (parts[0] == "simulation" || parts[0] == "output") && len(parts) >= 2:
		return parts[0] + "." + strings.Join(parts[1:], "_")
	default:
		return key
	}
}

func baseConfig() Config {
	var cfg Config
	cfg.DeviceID = "default"
	cfg.Controllers.HTTP.Addr = ":8080"
	cfg.Controllers.MQTT.PublishInterval = 1 * time.Second
	cfg.Controllers.MODBUS.UnitID = 1
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.DeviceID == "" {
		cfg.DeviceID = "default"
	}
	if cfg.Controllers.HTTP.Addr == "" {
		cfg.Controllers.HTTP.Addr = ":8080"
	}
	if cfg.Serve && !cfg.Controllers.HTTP.Enabled && !cfg.Controllers.MQTT.Enabled && !cfg.Controllers.MODBUS.Enabled {
		cfg.Controllers.HTTP.Enabled = true
	}
	if cfg.Controllers.MQTT.PublishInterval == 0 {
		cfg.Controllers.MQTT.PublishInterval = 1 * time.Second
	}
	if cfg.Controllers.MODBUS.UnitID == 0 {
		cfg.Controllers.MODBUS.UnitID = 1
	}
}

// The disturbance windows the original appliance model ships with.
const defaultDisturbances = "600,-2.0,40;1800,-1.5,30;2700,-0.8,25"

// Snapshot resolves the simulation section into a validated lab snapshot:
// profile plant parameters first, then explicit overrides on top.
func (c Config) Snapshot() (lab.Snapshot, error) {
	simCfg := sim.DefaultConfig()

	if c.Simulation.Profile != nil {
		profile, err := device.ParseProfile(*c.Simulation.Profile)
		if err != nil {
			return lab.Snapshot{}, err
		}
		profile.Apply(&simCfg)
	}

	for _, override := range []struct {
		value *float64
		field *float64
	}{
		{c.Simulation.Setpoint, &simCfg.Setpoint},
		{c.Simulation.Kp, &simCfg.Kp},
		{c.Simulation.Ki, &simCfg.Ki},
		{c.Simulation.Kd, &simCfg.Kd},
		{c.Simulation.Tau, &simCfg.Tau},
		{c.Simulation.TimeStep, &simCfg.TimeStep},
		{c.Simulation.Duration, &simCfg.Duration},
		{c.Simulation.Deadband, &simCfg.Deadband},
		{c.Simulation.Ambient, &simCfg.Ambient},
	} {
		if override.value != nil {
			*override.field = *override.value
		}
	}

	disturbances := defaultDisturbances
	if c.Simulation.Disturbances != nil {
		disturbances = *c.Simulation.Disturbances
	}
	sched, err := sim.ParseSchedule(disturbances)
	if err != nil {
		return lab.Snapshot{}, err
	}

	if err := simCfg.Validate(); err != nil {
		return lab.Snapshot{}, err
	}

	return lab.Snapshot{Config: simCfg, Schedule: sched}, nil
}
