package rtsp

import "sync"

// ClientTable is the shared-resource client table (spec.md §5): a mutex-
// guarded map of active sessions. Holders may only append/remove, snapshot,
// or update scalar session state — no I/O happens while the lock is held.
type ClientTable struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewClientTable constructs an empty table.
func NewClientTable() *ClientTable {
	return &ClientTable{sessions: make(map[string]*Session)}
}

// Add registers a newly accepted session.
func (t *ClientTable) Add(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[s.ID] = s
}

// Remove deregisters a session (TEARDOWN or peer disconnect).
func (t *ClientTable) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, id)
}

// Get returns the session for id, if any.
func (t *ClientTable) Get(id string) (*Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[id]
	return s, ok
}

// SnapshotPlaying returns the current list of PLAYING sessions, matching
// the Stream Pump's per-cycle discipline step 5 (spec.md §4.6): take the
// snapshot under the lock, then release it before any I/O.
func (t *ClientTable) SnapshotPlaying() []*Session {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		if s.State == StatePlaying {
			out = append(out, s)
		}
	}
	return out
}

// Count returns the number of active sessions.
func (t *ClientTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// UpdateState transitions the session identified by id under the table
// lock, the only place session.State is allowed to change.
func (t *ClientTable) UpdateState(id string, newState State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[id]; ok {
		s.State = newState
	}
}

// AdvanceDelivered advances a PLAYING session's rtp_seq/rtp_ts after a
// successful dispatch, matching step 7 of the Stream Pump's per-cycle
// discipline: state advances only if at least one fragment transmitted.
func (t *ClientTable) AdvanceDelivered(id string, fragmentsSent int, tsIncrement uint32) {
	if fragmentsSent == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[id]; ok {
		s.RTPSeq += uint16(fragmentsSent)
		s.RTPTS += tsIncrement
	}
}
