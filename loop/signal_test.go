package loop

import (
	"testing"
)

func TestSignalDirectDelivery(t *testing.T) {
	var sig Signal[int]
	var got []int
	sig.Connect(func(v int) { got = append(got, v) })
	sig.Connect(func(v int) { got = append(got, v*10) })

	sig.Emit(3)

	if len(got) != 2 || got[0] != 3 || got[1] != 30 {
		t.Errorf("direct delivery got %v", got)
	}
}

func TestSignalQueuedDelivery(t *testing.T) {
	l := newRunningLoop(t)

	var sig Signal[string]
	var got []string
	sig.ConnectQueued(l, func(v string) { got = append(got, v) })

	// Emitted from this thread, delivered on the loop thread, in order.
	sig.Emit("a")
	sig.Emit("b")
	barrier(t, l)

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("queued delivery got %v", got)
	}
}

func TestSignalQueuedAfterExitDiscarded(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatalf("creating loop: %s", err)
	}
	l.RunThread()

	var sig Signal[int]
	ran := false
	sig.ConnectQueued(l, func(int) { ran = true })

	l.Exit()
	l.Wait()
	sig.Emit(1)
	if ran {
		t.Errorf("queued listener ran after loop exit")
	}
	l.Close()
}
