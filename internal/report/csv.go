package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Agrid-Dev/fryerlab/internal/sim"
)

var csvHeader = []string{"time", "temperature", "controller", "feedback", "error", "effective_error", "disturbance"}

// WriteCSV dumps the aligned series of a run, one row per step.
func WriteCSV(w io.Writer, r *sim.Result) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for i := 0; i < r.Steps(); i++ {
		if err := writer.Write([]string{
			formatValue(r.Time[i]),
			formatValue(r.Temperature[i]),
			formatValue(r.Controller[i]),
			formatValue(r.Feedback[i]),
			formatValue(r.Error[i]),
			formatValue(r.EffectiveError[i]),
			formatValue(r.Disturbance[i]),
		}); err != nil {
			return fmt.Errorf("failed to write CSV record: %v", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func WriteCSVFile(filename string, r *sim.Result) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}

	if err := WriteCSV(file, r); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
