package cleanup

import (
	"errors"
	"strings"
	"testing"
)

func TestRunAllLIFOAndOnce(t *testing.T) {
	var order []string
	Register("first", func() error { order = append(order, "first"); return nil })
	Register("second", func() error { order = append(order, "second"); return nil })
	Register("nil", nil)

	if err := RunAll(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(order, ",") != "second,first" {
		t.Fatalf("order = %v", order)
	}
	if err := RunAll(); err != nil || len(order) != 2 {
		t.Fatalf("hooks ran twice: %v %v", order, err)
	}
}

func TestRunAllJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	Register("listener", func() error { return boom })
	Register("ok", func() error { return nil })

	err := RunAll()
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if !strings.Contains(err.Error(), "listener") {
		t.Fatalf("hook name missing: %v", err)
	}
}
