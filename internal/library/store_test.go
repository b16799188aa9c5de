package library

import "testing"

func TestStore(t *testing.T) {
	t.Run("get and set", func(t *testing.T) {
		s := NewStore(42)
		if s.GetState() != 42 {
			t.Errorf("initial state = %d", s.GetState())
		}

		if ok := s.SetState(func(v int) int { return v + 1 }); !ok {
			t.Error("SetState on open store should apply")
		}
		if s.GetState() != 43 {
			t.Errorf("state after set = %d", s.GetState())
		}
	})

	t.Run("subscribers notified", func(t *testing.T) {
		s := NewStore(0)

		var seen []int
		unsub := s.Subscribe(func(v int) { seen = append(seen, v) })

		s.SetState(func(int) int { return 1 })
		s.SetState(func(int) int { return 2 })
		unsub()
		s.SetState(func(int) int { return 3 })
		unsub() // safe to call again

		if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
			t.Errorf("seen = %v, want [1 2]", seen)
		}
	})

	t.Run("closed store discards late writes", func(t *testing.T) {
		s := NewStore("initial")

		notified := false
		s.Subscribe(func(string) { notified = true })

		s.Close()
		if ok := s.SetState(func(string) string { return "late result" }); ok {
			t.Error("SetState after Close should report not applied")
		}
		if s.GetState() != "initial" {
			t.Errorf("state mutated after close: %s", s.GetState())
		}
		if notified {
			t.Error("subscriber ran after close")
		}
		if !s.Closed() {
			t.Error("Closed() should report true")
		}
	})
}
