package random

import "testing"

func TestNewSeed(t *testing.T) {
	a1, a2, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed() error = %v", err)
	}
	b1, b2, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed() error = %v", err)
	}
	if a1 == b1 && a2 == b2 {
		t.Error("NewSeed() returned the same pair twice")
	}
}
