/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

import (
	"strings"
	"time"

	nanoid "github.com/jaevor/go-nanoid"
)

const (
	// CodeAlphabet omits I, O, 0 and 1 so codes survive being read aloud.
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 4
)

// Registry holds every live room, keyed by uppercase code.
type Registry struct {
	rooms   map[string]*Room
	newCode func() string
}

// NewRegistry returns a registry that draws room codes from gen, or from a
// crypto-random generator over CodeAlphabet when gen is nil.
func NewRegistry(gen func() string) (*Registry, error) {
	if gen == nil {
		var err error
		gen, err = nanoid.CustomASCII(CodeAlphabet, CodeLength)
		if err != nil {
			return nil, err
		}
	}

	return &Registry{
		rooms:   make(map[string]*Room),
		newCode: gen,
	}, nil
}

// NormalizeCode makes user-typed codes comparable to stored ones.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// uniqueCode retries until the generator yields a code no live room uses.
func (reg *Registry) uniqueCode() string {
	for {
		code := NormalizeCode(reg.newCode())
		if _, exists := reg.rooms[code]; !exists {
			return code
		}
	}
}

// Create opens a lobby with host as its only player.
func (reg *Registry) Create(host *Player, now time.Time) *Room {
	room := newRoom(reg.uniqueCode(), host, now)
	reg.rooms[room.Code] = room
	return room
}

func (reg *Registry) Get(code string) (*Room, bool) {
	room, ok := reg.rooms[NormalizeCode(code)]
	return room, ok
}

// FindBySession returns the room where token still holds a seat. Kicked
// slots keep their token but no longer count as a seat.
func (reg *Registry) FindBySession(token string) (*Room, int) {
	if token == "" {
		return nil, -1
	}
	for _, room := range reg.rooms {
		if i := room.indexOfSession(token); i >= 0 && !room.Players[i].Kicked {
			return room, i
		}
	}
	return nil, -1
}

// FindByConn returns the room a live connection is bound to.
func (reg *Registry) FindByConn(conn string) (*Room, int) {
	for _, room := range reg.rooms {
		if i := room.indexOfConn(conn); i >= 0 {
			return room, i
		}
	}
	return nil, -1
}

func (reg *Registry) Delete(code string) {
	delete(reg.rooms, NormalizeCode(code))
}

func (reg *Registry) Len() int {
	return len(reg.rooms)
}

// idleSince lists rooms whose last activity is before cutoff.
func (reg *Registry) idleSince(cutoff time.Time) []*Room {
	var idle []*Room
	for _, room := range reg.rooms {
		if room.lastActive.Before(cutoff) {
			idle = append(idle, room)
		}
	}
	return idle
}
