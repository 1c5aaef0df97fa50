/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

// Session ties a client-held token to the room it last joined.
type Session struct {
	Token    string
	RoomCode string
	Name     string
}

// SessionStore maps session tokens to sessions. It is owned by the engine
// loop and is never touched from another goroutine.
type SessionStore struct {
	sessions map[string]Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]Session),
	}
}

func (s *SessionStore) Get(token string) (Session, bool) {
	sess, ok := s.sessions[token]
	return sess, ok
}

func (s *SessionStore) Put(token, roomCode, name string) {
	s.sessions[token] = Session{
		Token:    token,
		RoomCode: roomCode,
		Name:     name,
	}
}

func (s *SessionStore) Delete(token string) {
	delete(s.sessions, token)
}

// DeleteRoom discards every session pointing at code.
func (s *SessionStore) DeleteRoom(code string) int {
	n := 0
	for token, sess := range s.sessions {
		if sess.RoomCode == code {
			delete(s.sessions, token)
			n++
		}
	}
	return n
}

func (s *SessionStore) Len() int {
	return len(s.sessions)
}
