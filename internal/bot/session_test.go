package bot

import "testing"

func TestSessionStore(t *testing.T) {
	t.Run("unknown user is StateNone", func(t *testing.T) {
		s := NewSessionStore(10)
		if st := s.Get(1); st.Kind != StateNone {
			t.Fatalf("state = %+v, want StateNone", st)
		}
	})

	t.Run("set get clear", func(t *testing.T) {
		s := NewSessionStore(10)
		s.Set(1, State{Kind: StateAwaitLink, Platform: "terabox"})
		st := s.Get(1)
		if st.Kind != StateAwaitLink || st.Platform != "terabox" {
			t.Fatalf("state = %+v", st)
		}
		s.Clear(1)
		if st := s.Get(1); st.Kind != StateNone {
			t.Fatalf("state after clear = %+v", st)
		}
	})

	t.Run("bounded with eviction", func(t *testing.T) {
		s := NewSessionStore(3)
		for id := int64(1); id <= 4; id++ {
			s.Set(id, State{Kind: StateAwaitUTR})
		}
		if s.Len() != 3 {
			t.Fatalf("len = %d, want 3", s.Len())
		}
	})

	t.Run("updating an existing user never evicts", func(t *testing.T) {
		s := NewSessionStore(2)
		s.Set(1, State{Kind: StateAwaitLink, Platform: "youtube"})
		s.Set(2, State{Kind: StateAwaitUTR})
		s.Set(1, State{Kind: StateAwaitLink, Platform: "instagram"})
		if s.Len() != 2 {
			t.Fatalf("len = %d, want 2", s.Len())
		}
		if st := s.Get(2); st.Kind != StateAwaitUTR {
			t.Fatalf("existing entry lost: %+v", st)
		}
	})
}
