package params

import "testing"

func TestSetDegradationClamps(t *testing.T) {
	cases := map[int]int{
		-20: 0,
		0:   0,
		55:  55,
		100: 100,
		250: 100,
	}
	c := New(0, 0)
	for in, want := range cases {
		c.SetDegradation(in)
		if got := c.Degradation(); got != want {
			t.Fatalf("SetDegradation(%d): got %d want %d", in, got, want)
		}
	}
}

func TestNudgeDegradationClamps(t *testing.T) {
	c := New(0, 95)
	if got := c.NudgeDegradation(10); got != 100 {
		t.Fatalf("nudge over top: got %d want 100", got)
	}
	if got := c.NudgeDegradation(-300); got != 0 {
		t.Fatalf("nudge under bottom: got %d want 0", got)
	}
}

func TestSampleNormalizesDegradation(t *testing.T) {
	c := New(2, 42)
	s := c.Sample()
	if s.Mode != 2 {
		t.Fatalf("mode: got %d want 2", s.Mode)
	}
	if s.Degradation != 0.42 {
		t.Fatalf("degradation: got %f want 0.42", s.Degradation)
	}
}

func TestSampleBypassZeroesDegradation(t *testing.T) {
	c := New(0, 80)
	c.SetBypassed(true)
	s := c.Sample()
	if !s.Bypassed {
		t.Fatalf("expected bypassed snapshot")
	}
	if s.Degradation != 0 {
		t.Fatalf("bypassed degradation: got %f want 0", s.Degradation)
	}
	if c.Degradation() != 80 {
		t.Fatalf("stored amount should survive bypass, got %d", c.Degradation())
	}
}

func TestToggleBypassed(t *testing.T) {
	c := New(0, 0)
	if got := c.ToggleBypassed(); !got {
		t.Fatalf("first toggle: got %v want true", got)
	}
	if got := c.ToggleBypassed(); got {
		t.Fatalf("second toggle: got %v want false", got)
	}
}
