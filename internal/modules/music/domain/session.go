package domain

// SessionState is the playback lifecycle state of one guild's session.
//
// Idle -> Connecting -> Playing <-> Paused
// Playing -> Draining (queue emptied, idle timer armed) -> Idle on fire,
// or back to Playing if a new play request arrives first.
type SessionState int

const (
	// StateIdle means no voice connection and an empty queue.
	StateIdle SessionState = iota
	// StateConnecting means a channel join has been requested.
	StateConnecting
	// StatePlaying means a stream is active.
	StatePlaying
	// StatePaused means the stream is suspended and resumable.
	StatePaused
	// StateDraining means the queue emptied and the idle timer is armed;
	// the voice connection is still held.
	StateDraining
)

// String returns a human-readable representation of the session state.
func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateDraining:
		return "draining"
	default:
		return "idle"
	}
}
