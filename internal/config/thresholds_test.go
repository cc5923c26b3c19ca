package config

import "testing"

func TestThresholds_SetMatch(t *testing.T) {
	tests := []struct {
		name  string
		start Thresholds
		v     int
		want  Thresholds
	}{
		{"within bounds", Thresholds{95, 88}, 93, Thresholds{93, 88}},
		{"clamped low", Thresholds{95, 88}, 40, Thresholds{90, 88}},
		{"clamped high", Thresholds{95, 88}, 140, Thresholds{100, 88}},
		{"pushes review down", Thresholds{95, 92}, 91, Thresholds{91, 90}},
		{"equal pushes review down", Thresholds{95, 92}, 92, Thresholds{92, 91}},
		{"review recap", Thresholds{97, 96}, 100, Thresholds{100, 96}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start
			got.SetMatch(tt.v)
			if got != tt.want {
				t.Errorf("SetMatch(%d) from %+v = %+v, want %+v", tt.v, tt.start, got, tt.want)
			}
			if err := got.Validate(); err != nil {
				t.Errorf("Validate() after SetMatch = %v", err)
			}
		})
	}
}

func TestThresholds_SetReview(t *testing.T) {
	tests := []struct {
		name  string
		start Thresholds
		v     int
		want  Thresholds
	}{
		{"within bounds", Thresholds{95, 88}, 85, Thresholds{95, 85}},
		{"clamped low", Thresholds{95, 88}, 10, Thresholds{95, 80}},
		{"clamped high", Thresholds{100, 88}, 99, Thresholds{100, 96}},
		{"pushes match up", Thresholds{92, 88}, 94, Thresholds{95, 94}},
		{"equal pushes match up", Thresholds{92, 88}, 92, Thresholds{93, 92}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start
			got.SetReview(tt.v)
			if got != tt.want {
				t.Errorf("SetReview(%d) from %+v = %+v, want %+v", tt.v, tt.start, got, tt.want)
			}
			if err := got.Validate(); err != nil {
				t.Errorf("Validate() after SetReview = %v", err)
			}
		})
	}
}

func TestThresholds_SettersKeepOrder(t *testing.T) {
	for m := 0; m <= 110; m++ {
		for r := 70; r <= 100; r++ {
			th := DefaultThresholds()
			th.SetMatch(m)
			th.SetReview(r)
			if th.Review >= th.Match {
				t.Fatalf("SetMatch(%d), SetReview(%d) = %+v: review not below match", m, r, th)
			}
		}
	}
}

func TestThresholds_ValidateAllowsTie(t *testing.T) {
	if err := (Thresholds{Match: 92, Review: 92}).Validate(); err != nil {
		t.Errorf("Validate() with review == match = %v", err)
	}
	if err := (Thresholds{Match: 92, Review: 93}).Validate(); err == nil {
		t.Error("Validate() with review > match: expected error")
	}
}
