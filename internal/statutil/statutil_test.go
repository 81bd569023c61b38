package statutil

import "testing"

func TestEWMA_UpdateConverges(t *testing.T) {
	e := NewEWMA(0.5)
	v := e.Update(10.0)
	if v != 5.0 {
		t.Fatalf("expected 5.0 after first update, got %v", v)
	}
	v = e.Update(10.0)
	if v != 7.5 {
		t.Fatalf("expected 7.5 after second update, got %v", v)
	}
}

func TestEWMA_PanicsOutOfRange(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for alpha out of [0,1]")
		}
	}()
	NewEWMA(1.5)
}

func TestWeightedSum(t *testing.T) {
	got := WeightedSum([]float64{1, 2, 3}, []float64{0.5, 0.25, 0.25})
	want := 1*0.5 + 2*0.25 + 3*0.25
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-1, 0, 1) != 0 {
		t.Error("expected clamp to floor at 0")
	}
	if Clamp(5, 0, 1) != 1 {
		t.Error("expected clamp to ceiling at 1")
	}
	if Clamp(0.5, 0, 1) != 0.5 {
		t.Error("expected in-range value to pass through")
	}
}

func TestMean(t *testing.T) {
	if Mean(nil) != 0 {
		t.Error("expected Mean of empty slice to be 0")
	}
	if Mean([]float64{1, 2, 3}) != 2 {
		t.Error("expected Mean([1,2,3]) == 2")
	}
}
