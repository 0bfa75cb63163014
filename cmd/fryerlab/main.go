package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Agrid-Dev/fryerlab/cmd/app"
	httpctrl "github.com/Agrid-Dev/fryerlab/internal/controllers/http"
	modbusctrl "github.com/Agrid-Dev/fryerlab/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/fryerlab/internal/controllers/mqtt"
	"github.com/Agrid-Dev/fryerlab/internal/lab"
	"github.com/Agrid-Dev/fryerlab/internal/report"
)

func main() {
	var (
		configPath string
		serve      bool
	)
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")
	flag.BoolVar(&serve, "serve", false, "keep the controllers running instead of a one-shot run")
	flag.Parse()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if serve {
		cfg.Serve = true
	}

	snap, err := cfg.Snapshot()
	if err != nil {
		log.Fatal(err)
	}

	l, err := lab.New(snap)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Serve {
		runServe(cfg, l)
		return
	}
	runOnce(cfg, l)
}

func runOnce(cfg app.Config, l *lab.Lab) {
	run, err := l.Run()
	if err != nil {
		log.Fatal(err)
	}

	summary := run.Result.Summary()
	log.Printf("run %s: %d steps in %s", run.ID, summary.Steps, run.Elapsed)
	log.Printf("final %.2f peak %.2f at t=%.0f overshoot %.2f saturated %d steady-state error %.3f",
		summary.FinalTemperature, summary.PeakTemperature, summary.PeakTime,
		summary.Overshoot, summary.SaturatedSteps, summary.SteadyStateError)

	if path := cfg.Output.CSVPath; path != "" {
		if err := report.WriteCSVFile(path, run.Result); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", path)
	}
	if path := cfg.Output.PlotPath; path != "" {
		if err := report.WritePNG(path, run.Result); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", path)
	}
}

func runServe(cfg app.Config, l *lab.Lab) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 3)

	if cfg.Controllers.HTTP.Enabled {
		srv := httpctrl.New(l, cfg.Controllers.HTTP.Addr, cfg.DeviceID)
		log.Printf("http controller listening on %s", cfg.Controllers.HTTP.Addr)
		go func() { errCh <- srv.Run(ctx) }()
	}

	if cfg.Controllers.MQTT.Enabled {
		ctrl, err := mqttctrl.New(l, mqttctrl.Config{
			DeviceID:        cfg.DeviceID,
			BrokerURL:       cfg.Controllers.MQTT.BrokerURL,
			ClientID:        cfg.Controllers.MQTT.ClientID,
			BaseTopic:       cfg.Controllers.MQTT.BaseTopic,
			QoS:             cfg.Controllers.MQTT.QoS,
			RetainSnapshot:  cfg.Controllers.MQTT.RetainSnapshot,
			PublishInterval: cfg.Controllers.MQTT.PublishInterval,
			Username:        cfg.Controllers.MQTT.Username,
			Password:        cfg.Controllers.MQTT.Password,
		})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("mqtt controller connecting to %s", cfg.Controllers.MQTT.BrokerURL)
		go func() { errCh <- ctrl.Run(ctx) }()
	}

	if cfg.Controllers.MODBUS.Enabled {
		ctrl, err := modbusctrl.New(l, modbusctrl.Config{
			DeviceID:     cfg.DeviceID,
			Addr:         cfg.Controllers.MODBUS.Addr,
			UnitID:       cfg.Controllers.MODBUS.UnitID,
			SyncInterval: cfg.Controllers.MODBUS.SyncInterval,
		})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("modbus controller listening on %s", cfg.Controllers.MODBUS.Addr)
		go func() { errCh <- ctrl.Run(ctx) }()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			log.Printf("controller exited: %v", err)
		}
	}
}
