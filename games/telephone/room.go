/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

import (
	"time"
)

// Phase is the top-level state of a room.
type Phase string

const (
	PhaseLobby   Phase = "lobby"
	PhaseTopics  Phase = "topics"
	PhasePlaying Phase = "playing"
	PhaseReveal  Phase = "reveal"
)

const (
	// MinPlayers is the smallest roster that can start a game.
	MinPlayers = 3
	// MaxPlayers is the hard cap on a room's roster.
	MaxPlayers = 8
)

// Player is one roster slot. Conn is empty while the player is offline.
type Player struct {
	Session string
	Conn    string
	Name    string
	Online  bool
	Kicked  bool
}

// Room is the aggregate every handler mutates.
type Room struct {
	Code    string
	Host    string // session token of the host
	Players []*Player
	Phase   Phase

	Topics      map[int]string
	Chains      []Chain
	Round       int
	TotalRounds int
	Submitted   map[string]bool // session token -> submitted this round

	Reveal Reveal

	createdAt  time.Time
	lastActive time.Time
}

func newRoom(code string, host *Player, now time.Time) *Room {
	return &Room{
		Code:       code,
		Host:       host.Session,
		Players:    []*Player{host},
		Phase:      PhaseLobby,
		Topics:     make(map[int]string),
		Submitted:  make(map[string]bool),
		createdAt:  now,
		lastActive: now,
	}
}

func (r *Room) isHost(p *Player) bool {
	return p != nil && p.Session == r.Host
}

func (r *Room) hostPlayer() *Player {
	for _, p := range r.Players {
		if p.Session == r.Host {
			return p
		}
	}
	return nil
}

func (r *Room) indexOfSession(token string) int {
	for i, p := range r.Players {
		if p.Session == token {
			return i
		}
	}
	return -1
}

func (r *Room) indexOfConn(conn string) int {
	if conn == "" {
		return -1
	}
	for i, p := range r.Players {
		if p.Conn == conn {
			return i
		}
	}
	return -1
}

func (r *Room) playerByConn(conn string) *Player {
	if i := r.indexOfConn(conn); i >= 0 {
		return r.Players[i]
	}
	return nil
}

func (r *Room) onlineCount() int {
	n := 0
	for _, p := range r.Players {
		if p.Online {
			n++
		}
	}
	return n
}

// activeCount counts players that have not been kicked or left mid-game.
func (r *Room) activeCount() int {
	n := 0
	for _, p := range r.Players {
		if !p.Kicked {
			n++
		}
	}
	return n
}

// electHost keeps the current host if still eligible, otherwise hands
// authority to the first remaining non-kicked player.
func (r *Room) electHost() bool {
	if h := r.hostPlayer(); h != nil && !h.Kicked {
		return false
	}
	for _, p := range r.Players {
		if !p.Kicked {
			r.Host = p.Session
			return true
		}
	}
	r.Host = ""
	return false
}

// removeAt drops a roster entry. Only valid while the rotation is not in use.
func (r *Room) removeAt(i int) *Player {
	p := r.Players[i]
	r.Players = append(r.Players[:i], r.Players[i+1:]...)
	return p
}

// dropKicked removes every flagged entry before the roster is reused for a
// fresh rotation.
func (r *Room) dropKicked() []*Player {
	var dropped []*Player
	kept := r.Players[:0]
	for _, p := range r.Players {
		if p.Kicked {
			dropped = append(dropped, p)
			continue
		}
		kept = append(kept, p)
	}
	r.Players = kept
	return dropped
}

func (r *Room) resetGame() {
	r.Topics = make(map[int]string)
	r.Chains = nil
	r.Round = 0
	r.TotalRounds = 0
	r.Submitted = make(map[string]bool)
	r.Reveal = Reveal{}
}

func (r *Room) touch(now time.Time) {
	r.lastActive = now
}
