package automation

import "sync"

// State is the automation-side view of one draft key.
type State string

const (
	StateAbsent   State = "absent"
	StateOpening  State = "opening"
	StateOpen     State = "open"
	StateMutating State = "mutating"
	StateSaving   State = "saving"
	StateSaved    State = "saved"
	StateClosing  State = "closing"
)

// Lifecycle tracks the last known state of every draft key handled by an
// Automator. It records what this side did; the remote application may
// discard a draft at any time, which is noticed on the next call.
type Lifecycle struct {
	mu      sync.Mutex
	states  map[DraftKey]State
	opening int
}

// NewLifecycle returns an empty tracker.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{states: make(map[DraftKey]State)}
}

// State returns the state of key; unknown keys are absent.
func (l *Lifecycle) State(key DraftKey) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.states[key]; ok {
		return s
	}
	return StateAbsent
}

// Opening reports whether an open is in flight.
func (l *Lifecycle) Opening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opening > 0
}

// Tracked returns the keys not known to be absent.
func (l *Lifecycle) Tracked() map[DraftKey]State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[DraftKey]State, len(l.states))
	for k, s := range l.states {
		out[k] = s
	}
	return out
}

func (l *Lifecycle) beginOpen() {
	l.mu.Lock()
	l.opening++
	l.mu.Unlock()
}

func (l *Lifecycle) endOpen() {
	l.mu.Lock()
	l.opening--
	l.mu.Unlock()
}

func (l *Lifecycle) set(key DraftKey, s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s == StateAbsent {
		delete(l.states, key)
		return
	}
	l.states[key] = s
}
