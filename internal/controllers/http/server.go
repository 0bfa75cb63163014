package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Agrid-Dev/fryerlab/internal/lab"
	"github.com/Agrid-Dev/fryerlab/internal/ports"
	"github.com/Agrid-Dev/fryerlab/internal/sim"
)

type Server struct {
	svc      ports.LabService
	srv      *http.Server
	deviceID string
}

// New returns a runnable server.
func New(svc ports.LabService, addr string, deviceID string) *Server {
	mux := http.NewServeMux()
	s := &Server{svc: svc, deviceID: deviceID}

	// Read
	mux.HandleFunc("GET /v1", s.handleGet)
	mux.HandleFunc("GET /v1/run", s.handleGetRun)

	// Write: one endpoint per variable
	mux.HandleFunc("POST /v1/setpoint", s.handlePostSetpoint)
	mux.HandleFunc("POST /v1/kp", s.handlePostKp)
	mux.HandleFunc("POST /v1/ki", s.handlePostKi)
	mux.HandleFunc("POST /v1/kd", s.handlePostKd)
	mux.HandleFunc("POST /v1/tau", s.handlePostTau)
	mux.HandleFunc("POST /v1/deadband", s.handlePostDeadband)
	mux.HandleFunc("POST /v1/duration", s.handlePostDuration)
	mux.HandleFunc("POST /v1/ambient", s.handlePostAmbient)
	mux.HandleFunc("POST /v1/disturbances", s.handlePostDisturbances)

	// Execute
	mux.HandleFunc("POST /v1/run", s.handlePostRun)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type snapshotDTO struct {
	DeviceID     string  `json:"device_id"`
	Setpoint     float64 `json:"setpoint"`
	Kp           float64 `json:"kp"`
	Ki           float64 `json:"ki"`
	Kd           float64 `json:"kd"`
	Tau          float64 `json:"tau"`
	TimeStep     float64 `json:"time_step"`
	Duration     float64 `json:"duration"`
	Deadband     float64 `json:"deadband"`
	Ambient      float64 `json:"ambient"`
	OutputMin    float64 `json:"output_min"`
	OutputMax    float64 `json:"output_max"`
	Disturbances string  `json:"disturbances"`
}

func toDTO(s lab.Snapshot) snapshotDTO {
	return snapshotDTO{
		Setpoint:     s.Config.Setpoint,
		Kp:           s.Config.Kp,
		Ki:           s.Config.Ki,
		Kd:           s.Config.Kd,
		Tau:          s.Config.Tau,
		TimeStep:     s.Config.TimeStep,
		Duration:     s.Config.Duration,
		Deadband:     s.Config.Deadband,
		Ambient:      s.Config.Ambient,
		OutputMin:    s.Config.OutputMin,
		OutputMax:    s.Config.OutputMax,
		Disturbances: s.Schedule.String(),
	}
}

type summaryDTO struct {
	RunID            string    `json:"run_id"`
	StartedAt        time.Time `json:"started_at"`
	ElapsedMillis    int64     `json:"elapsed_ms"`
	Steps            int       `json:"steps"`
	FinalTemperature float64   `json:"final_temperature"`
	PeakTemperature  float64   `json:"peak_temperature"`
	PeakTime         float64   `json:"peak_time"`
	Overshoot        float64   `json:"overshoot"`
	SaturatedSteps   int       `json:"saturated_steps"`
	SteadyStateError float64   `json:"steady_state_error"`
}

func toSummaryDTO(r *lab.Run) summaryDTO {
	s := r.Result.Summary()
	return summaryDTO{
		RunID:            r.ID,
		StartedAt:        r.StartedAt,
		ElapsedMillis:    r.Elapsed.Milliseconds(),
		Steps:            s.Steps,
		FinalTemperature: s.FinalTemperature,
		PeakTemperature:  s.PeakTemperature,
		PeakTime:         s.PeakTime,
		Overshoot:        s.Overshoot,
		SaturatedSteps:   s.SaturatedSteps,
		SteadyStateError: s.SteadyStateError,
	}
}

type runDTO struct {
	Summary        summaryDTO `json:"summary"`
	Time           []float64  `json:"time"`
	Temperature    []float64  `json:"temperature"`
	Controller     []float64  `json:"controller"`
	Feedback       []float64  `json:"feedback"`
	Error          []float64  `json:"error"`
	EffectiveError []float64  `json:"effective_error"`
	Disturbance    []float64  `json:"disturbance"`
}

func toRunDTO(r *lab.Run) runDTO {
	return runDTO{
		Summary:        toSummaryDTO(r),
		Time:           r.Result.Time,
		Temperature:    r.Result.Temperature,
		Controller:     r.Result.Controller,
		Feedback:       r.Result.Feedback,
		Error:          r.Result.Error,
		EffectiveError: r.Result.EffectiveError,
		Disturbance:    r.Result.Disturbance,
	}
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondSnapshot(w)
}

func (s *Server) handleGetRun(w http.ResponseWriter, _ *http.Request) {
	run, ok := s.svc.LastRun()
	if !ok {
		writeErr(w, http.StatusNotFound, "no run executed yet")
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(run))
}

func (s *Server) handlePostRun(w http.ResponseWriter, _ *http.Request) {
	run, err := s.svc.Run()
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(run))
}

func (s *Server) handlePostSetpoint(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetSetpoint(v)
	})
}

func (s *Server) handlePostKp(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		cur := s.svc.Get().Config
		return s.svc.SetGains(v, cur.Ki, cur.Kd)
	})
}

func (s *Server) handlePostKi(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		cur := s.svc.Get().Config
		return s.svc.SetGains(cur.Kp, v, cur.Kd)
	})
}

func (s *Server) handlePostKd(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		cur := s.svc.Get().Config
		return s.svc.SetGains(cur.Kp, cur.Ki, v)
	})
}

func (s *Server) handlePostTau(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetTau(v)
	})
}

func (s *Server) handlePostDeadband(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetDeadband(v)
	})
}

func (s *Server) handlePostDuration(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetDuration(v)
	})
}

func (s *Server) handlePostAmbient(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetAmbient(v)
	})
}

func (s *Server) handlePostDisturbances(w http.ResponseWriter, r *http.Request) {
	// body: {"value": "600,-2.0,40;1800,-1.5,30"}
	postValue(s, w, r, func(v string) error {
		sched, err := sim.ParseSchedule(v)
		if err != nil {
			return err
		}
		s.svc.SetSchedule(sched)
		return nil
	})
}

// ---- generic helpers ----

func (s *Server) respondSnapshot(w http.ResponseWriter) {
	dto := toDTO(s.svc.Get())
	dto.DeviceID = s.deviceID
	writeJSON(w, http.StatusOK, dto)
}

func postValue[T any](s *Server, w http.ResponseWriter, r *http.Request, apply func(T) error) {
	dec := json.NewDecoder(r.Body)
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	if err := apply(*req.Value); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondSnapshot(w)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
