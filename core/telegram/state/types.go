package state

// State names a step of a conversation.
type State string

// StateIdle means no conversation is in progress.
const StateIdle State = "idle"

// Session is one user's conversation step plus the values collected so far.
type Session struct {
	State State
	Data  map[string]string
}

// Idle reports whether s carries nothing worth keeping.
func (s Session) Idle() bool {
	return (s.State == "" || s.State == StateIdle) && len(s.Data) == 0
}

func (s Session) clone() Session {
	out := Session{State: s.State, Data: make(map[string]string, len(s.Data))}
	if out.State == "" {
		out.State = StateIdle
	}
	for k, v := range s.Data {
		out.Data[k] = v
	}
	return out
}

// Manager keeps sessions by user id. Implementations are safe for concurrent use.
type Manager interface {
	// Get returns a copy of the session; unknown users are idle.
	Get(userID int64) Session
	// Put replaces the session. An idle, empty session is dropped.
	Put(userID int64, s Session)
	// Clear drops the session.
	Clear(userID int64)
	// Lock serializes work for one user and returns the matching unlock.
	Lock(userID int64) (unlock func())
}
