package main

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/Agrid-Dev/fryerlab/internal/sim"
)

// SweepProportionalGain runs the reference scenario across a range of Kp
// values and records the resulting run summaries so gains can be compared
// side by side in a spreadsheet.
func SweepProportionalGain(gains []float64, filename string) error {
	cfg := sim.DefaultConfig()
	sched, err := sim.ParseSchedule("600,-2.0,40;1800,-1.5,30;2700,-0.8,25")
	if err != nil {
		return fmt.Errorf("failed to parse disturbances: %v", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"Kp", "FinalTemperature", "PeakTemperature", "PeakTime", "Overshoot", "SaturatedSteps", "SteadyStateError"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, kp := range gains {
		cfg.Kp = kp

		result, err := sim.Run(cfg, sched)
		if err != nil {
			return fmt.Errorf("failed to run simulation with Kp=%g: %v", kp, err)
		}
		summary := result.Summary()

		if err := writer.Write([]string{
			fmt.Sprintf("%g", kp),
			fmt.Sprintf("%.2f", summary.FinalTemperature),
			fmt.Sprintf("%.2f", summary.PeakTemperature),
			fmt.Sprintf("%.0f", summary.PeakTime),
			fmt.Sprintf("%.2f", summary.Overshoot),
			fmt.Sprintf("%d", summary.SaturatedSteps),
			fmt.Sprintf("%.3f", summary.SteadyStateError),
		}); err != nil {
			return fmt.Errorf("failed to write CSV record: %v", err)
		}
	}

	return nil
}

func main() {
	gains := []float64{0.5, 1, 2, 4, 8, 16}
	if err := SweepProportionalGain(gains, "gain_sweep.csv"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
