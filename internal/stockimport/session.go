package stockimport

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the interactive correction buffer for one in-progress import.
// It owns the classified row set, keyed by line number, plus the inventory
// snapshot and supplier fixed at session start. Nothing here touches the
// store; the buffer is discarded wholesale to cancel an import.
type Session struct {
	ID           string
	SupplierName string
	SupplierID   int64
	File         ParsedFile
	Mapping      ColumnMapping
	Snapshot     Snapshot
	Rows         map[int]*ImportRow

	CreatedAt  time.Time
	LastActive time.Time
}

// RowsInOrder returns the rows sorted by line number.
func (s *Session) RowsInOrder() []ImportRow {
	lines := make([]int, 0, len(s.Rows))
	for line := range s.Rows {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	rows := make([]ImportRow, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, *s.Rows[line])
	}
	return rows
}

// Counts tallies valid versus errored rows for the user-facing summary.
func (s *Session) Counts() (valid, errored int) {
	for _, row := range s.Rows {
		if row.Accepted() {
			valid++
		} else {
			errored++
		}
	}
	return valid, errored
}

// AcceptedRows returns the commit candidates in line order.
func (s *Session) AcceptedRows() []ImportRow {
	rows := s.RowsInOrder()
	accepted := rows[:0]
	for _, row := range rows {
		if row.Accepted() {
			accepted = append(accepted, row)
		}
	}
	return accepted
}

// SessionStore keeps import sessions in memory. Reconciliation and correction
// are synchronous in-memory operations, so a mutex-guarded map is all the
// isolation the interactive phase needs; idle sessions are purged after the
// TTL on every access.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore constructs the store. A zero ttl disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Put registers a new session and assigns its ID.
func (st *SessionStore) Put(session *Session) string {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.purgeLocked()
	session.ID = uuid.NewString()
	session.CreatedAt = st.now()
	session.LastActive = session.CreatedAt
	st.sessions[session.ID] = session
	return session.ID
}

// With runs fn against a session while holding the store lock, keeping every
// row mutation serialized. The session's idle clock is reset on access.
func (st *SessionStore) With(id string, fn func(*Session) error) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.purgeLocked()
	session, ok := st.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	session.LastActive = st.now()
	return fn(session)
}

// Delete discards a session. Cancelling an import is exactly this: nothing is
// observable externally until commit runs.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len reports the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.purgeLocked()
	return len(st.sessions)
}

func (st *SessionStore) purgeLocked() {
	if st.ttl <= 0 {
		return
	}
	cutoff := st.now().Add(-st.ttl)
	for id, session := range st.sessions {
		if session.LastActive.Before(cutoff) {
			delete(st.sessions, id)
		}
	}
}
