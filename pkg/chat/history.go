package chat

// History is the ordered, append-only log of turns for one interactive
// session. Insertion order is conversation order.
//
// A History is owned by exactly one session and is not safe for concurrent
// use; callers serialize access (see pkg/session).
type History struct {
	turns []Turn
}

// NewHistory returns a history that already contains the seed pair.
func NewHistory() *History {
	h := &History{}
	h.Initialize()
	return h
}

// Initialize seeds an empty history with the persona pair. It never resets a
// history that already has turns.
func (h *History) Initialize() {
	if len(h.turns) > 0 {
		return
	}
	h.turns = append(h.turns, SeedTurns()...)
}

// Append adds a turn to the end of the history. The turn must carry a valid
// role and non-empty text. There is no size cap.
func (h *History) Append(t Turn) error {
	if err := t.Validate(); err != nil {
		return err
	}
	h.turns = append(h.turns, t)
	return nil
}

// All returns a copy of the full ordered sequence of turns.
func (h *History) All() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of turns recorded.
func (h *History) Len() int {
	return len(h.turns)
}

// Last returns the most recent turn. ok is false for an empty history.
func (h *History) Last() (Turn, bool) {
	if len(h.turns) == 0 {
		return Turn{}, false
	}
	return h.turns[len(h.turns)-1], true
}
