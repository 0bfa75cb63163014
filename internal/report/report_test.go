package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agrid-Dev/fryerlab/internal/sim"
)

func testRun(t *testing.T) *sim.Result {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.Duration = 120
	r, err := sim.Run(cfg, sim.Schedule{{Start: 30, Magnitude: -1, Duration: 10}})
	require.NoError(t, err)
	return r
}

func TestWriteCSV(t *testing.T) {
	r := testRun(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, r.Steps()+1)
	assert.Equal(t, csvHeader, records[0])

	// Row 1 (step 0) carries the initial condition.
	temp0, err := strconv.ParseFloat(records[1][1], 64)
	require.NoError(t, err)
	assert.Equal(t, r.Config.Ambient, temp0)

	// Disturbance column reflects the active window.
	p31, err := strconv.ParseFloat(records[32][6], 64)
	require.NoError(t, err)
	assert.Equal(t, -1.0, p31)
}

func TestWriteCSVFile(t *testing.T) {
	r := testRun(t)
	path := filepath.Join(t.TempDir(), "run.csv")

	require.NoError(t, WriteCSVFile(path, r))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestWritePNG(t *testing.T) {
	r := testRun(t)
	path := filepath.Join(t.TempDir(), "run.png")

	require.NoError(t, WritePNG(path, r))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), data[:8], "not a PNG file")
}

func TestWritePNGEmptyResult(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Duration = 0
	r, err := sim.Run(cfg, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "single.png")
	require.NoError(t, WritePNG(path, r))
}
