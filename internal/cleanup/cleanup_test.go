package cleanup

import (
	"errors"
	"testing"
)

func TestRunExecutesInOrder(t *testing.T) {
	Reset()
	var order []int
	Register(func() error { order = append(order, 1); return nil })
	Register(func() error { order = append(order, 2); return nil })
	if err := Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("got %v", order)
	}
}

func TestRunStopsAtFirstError(t *testing.T) {
	Reset()
	ran := false
	Register(func() error { return errors.New("boom") })
	Register(func() error { ran = true; return nil })
	if err := Run(); err == nil {
		t.Fatal("expected an error")
	}
	if ran {
		t.Error("expected the second hook to be skipped after the first failed")
	}
}

func TestRegisterAfterRunPanics(t *testing.T) {
	Reset()
	Run()
	defer func() {
		if recover() == nil {
			t.Error("expected a panic registering after Run")
		}
	}()
	Register(func() error { return nil })
}
