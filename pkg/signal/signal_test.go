package signal

import "testing"

func TestEmitReachesAllSubscribersInOrder(t *testing.T) {
	var s Signal[int]
	var got []int
	s.Subscribe(func(v int) { got = append(got, v) })
	s.Subscribe(func(v int) { got = append(got, v*10) })
	s.Emit(3)
	if len(got) != 2 || got[0] != 3 || got[1] != 30 {
		t.Errorf("got %v, want [3 30]", got)
	}
}

func TestEmitWithoutSubscribersIsSafe(t *testing.T) {
	var s Signal[string]
	s.Emit("nobody home")
}

func TestSubscribeDuringLifetime(t *testing.T) {
	var s Signal[int]
	count := 0
	s.Emit(1) // before any subscriber
	s.Subscribe(func(int) { count++ })
	s.Emit(2)
	s.Emit(3)
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
