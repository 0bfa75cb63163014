package sim

import (
	"testing"
)

func TestDisturbanceActive(t *testing.T) {
	d := Disturbance{Start: 600, Magnitude: -2, Duration: 40}
	tests := []struct {
		name string
		t    float64
		want bool
	}{
		{"before window", 599, false},
		{"left edge inclusive", 600, true},
		{"inside window", 620, true},
		{"last instant", 639.999, true},
		{"right edge exclusive", 640, false},
		{"after window", 700, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Active(tt.t); got != tt.want {
				t.Errorf("Active(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestScheduleTotalAt(t *testing.T) {
	sched := Schedule{
		{Start: 0, Magnitude: -1, Duration: 100},
		{Start: 50, Magnitude: -2, Duration: 100},
		{Start: 300, Magnitude: 4, Duration: 10},
	}
	tests := []struct {
		name string
		t    float64
		want float64
	}{
		{"first window only", 10, -1},
		{"overlap sums", 60, -3},
		{"second window only", 120, -2},
		{"gap", 200, 0},
		{"positive window", 305, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sched.TotalAt(tt.t); got != tt.want {
				t.Errorf("TotalAt(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Schedule
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"blank", "   ", nil, false},
		{"single", "600,-2.0,40", Schedule{{600, -2, 40}}, false},
		{
			"air fryer default",
			"600,-2.0,40;1800,-1.5,30;2700,-0.8,25",
			Schedule{{600, -2, 40}, {1800, -1.5, 30}, {2700, -0.8, 25}},
			false,
		},
		{"whitespace tolerated", " 600 , -2.0 , 40 ; 1800,-1.5,30 ", Schedule{{600, -2, 40}, {1800, -1.5, 30}}, false},
		{"trailing semicolon", "600,-2.0,40;", Schedule{{600, -2, 40}}, false},
		{"missing field", "600,-2.0", nil, true},
		{"extra field", "600,-2.0,40,1", nil, true},
		{"not a number", "600,cold,40", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSchedule(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseSchedule(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseSchedule(%q)[%d] = %v, want %v", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestScheduleString(t *testing.T) {
	sched := Schedule{{600, -2, 40}, {1800, -1.5, 30}}
	want := "600,-2,40;1800,-1.5,30"
	if got := sched.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	reparsed, err := ParseSchedule(sched.String())
	if err != nil {
		t.Fatalf("ParseSchedule(String()) error = %v", err)
	}
	if len(reparsed) != len(sched) {
		t.Fatalf("round trip lost entries: %v", reparsed)
	}
	for i := range sched {
		if reparsed[i] != sched[i] {
			t.Errorf("round trip [%d] = %v, want %v", i, reparsed[i], sched[i])
		}
	}
}
