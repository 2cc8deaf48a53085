package ratelimit

import "testing"

func TestNew_FloorsBurstAtOne(t *testing.T) {
	// Anything under 10 passes/min would truncate the burst to zero and
	// starve every Wait call without the floor.
	l := New(5)
	if !l.Allow() {
		t.Error("first pass not allowed at 5 passes/min")
	}
}

func TestNew_BurstScalesWithRate(t *testing.T) {
	l := New(600)
	for i := 0; i < 60; i++ {
		if !l.Allow() {
			t.Fatalf("pass %d not allowed within the burst", i)
		}
	}
}
