package runtime

import "testing"

func TestHooksDispatchInRegistrationOrder(t *testing.T) {
	var h Hooks
	var calls []string

	h.OnNewMap(func() { calls = append(calls, "map-1") })
	h.OnNewMap(func() { calls = append(calls, "map-2") })
	h.OnNewMapLoaded(func() { calls = append(calls, "loaded") })
	h.OnReset(func() { calls = append(calls, "reset") })
	h.OnTick(func(dt float64) {
		if dt != 0.05 {
			t.Errorf("tick delta = %v, want 0.05", dt)
		}
		calls = append(calls, "tick")
	})

	h.DispatchNewMap()
	h.DispatchNewMapLoaded()
	h.DispatchTick(0.05)
	h.DispatchReset()

	want := []string{"map-1", "map-2", "loaded", "tick", "reset"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestHooksIsolatePanics(t *testing.T) {
	var h Hooks
	ran := false

	h.OnTick(func(float64) { panic("bad handler") })
	h.OnTick(func(float64) { ran = true })

	h.DispatchTick(1)
	if !ran {
		t.Fatal("handler after a panicking handler did not run")
	}
}

func TestHooksClear(t *testing.T) {
	var h Hooks
	ran := false
	h.OnReset(func() { ran = true })
	h.Clear()
	h.DispatchReset()
	if ran {
		t.Fatal("handler ran after Clear")
	}
}

func TestSafeCallWithErrorReturnsPanicError(t *testing.T) {
	err := SafeCallWithError("test", func() error { panic("oops") })
	var panicErr *PanicError
	if !asPanic(err, &panicErr) {
		t.Fatalf("error = %v, want *PanicError", err)
	}
	if panicErr.Value != "oops" {
		t.Errorf("panic value = %v, want oops", panicErr.Value)
	}
	if ok := SafeCall("test", func() { panic("again") }); ok {
		t.Error("SafeCall() = true for a panicking function")
	}
}

func asPanic(err error, target **PanicError) bool {
	p, ok := err.(*PanicError)
	if ok {
		*target = p
	}
	return ok
}
