// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package isotime

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339", "2024-05-01T12:30:45Z", time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)},
		{"offset", "2024-05-01T14:30:45+02:00", time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)},
		{"naive micros", "2024-05-01T12:30:45.123456", time.Date(2024, 5, 1, 12, 30, 45, 123456000, time.UTC)},
		{"naive seconds", "2024-05-01T12:30:45", time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)},
		{"space separator", "2024-05-01 12:30:45.5", time.Date(2024, 5, 1, 12, 30, 45, 500000000, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "yesterday", "2024-13-01T00:00:00"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) error = nil, want error", in)
		}
	}
}

func TestTime_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var v struct {
		At   Time  `json:"at"`
		Null *Time `json:"null"`
	}
	if err := json.Unmarshal([]byte(`{"at":"2024-05-01T12:30:45.123456","null":null}`), &v); err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 5, 1, 12, 30, 45, 123456000, time.UTC)
	if !v.At.Equal(want) {
		t.Errorf("At = %v, want %v", v.At.Time, want)
	}
	if v.Null != nil {
		t.Errorf("Null = %v, want nil", v.Null)
	}

	if err := json.Unmarshal([]byte(`{"at":"not a time"}`), &v); err == nil {
		t.Error("Unmarshal(bad time) error = nil, want error")
	}
}
