/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

import (
	"context"
	"strings"

	"github.com/jonboulle/clockwork"
)

func (e *Engine) createRoom(conn string, msg ClientMessage) {
	name := strings.TrimSpace(msg.DisplayName)
	if name == "" {
		e.reply(conn, msg, RoomReply{Error: ErrNameRequired.Error()})
		return
	}

	token := msg.SessionToken
	if token == "" {
		token = newToken()
	}

	e.abandon(token)
	e.release(conn, nil)

	host := &Player{
		Session: token,
		Conn:    conn,
		Name:    name,
		Online:  true,
	}
	room := e.rooms.Create(host, e.clock.Now())
	e.sessions.Put(token, room.Code, name)

	e.log.Info().Str("room", room.Code).Str("player", name).Msg("room created")

	e.reply(conn, msg, RoomReply{Success: true, RoomCode: room.Code, SessionToken: token})
	e.broadcastRoomState(room)
}

func (e *Engine) joinRoom(conn string, msg ClientMessage) {
	name := strings.TrimSpace(msg.DisplayName)
	if name == "" {
		e.reply(conn, msg, RoomReply{Error: ErrNameRequired.Error()})
		return
	}

	room, ok := e.rooms.Get(msg.RoomCode)
	if !ok {
		e.reply(conn, msg, RoomReply{Error: ErrRoomNotFound.Error()})
		return
	}

	token := msg.SessionToken
	if token == "" {
		token = newToken()
	}

	// A client that is already seated here just gets its seat back.
	if idx := room.indexOfSession(token); idx >= 0 && !room.Players[idx].Kicked {
		e.resume(conn, room, idx, RoomReply{Success: true, RoomCode: room.Code, SessionToken: token}, msg)
		return
	}

	if room.Phase != PhaseLobby {
		e.rejoin(conn, msg, room, name, token)
		return
	}

	if len(room.Players) >= e.maxPlayers {
		e.reply(conn, msg, RoomReply{Error: ErrRoomFull.Error()})
		return
	}
	for _, p := range room.Players {
		if p.Name == name {
			e.reply(conn, msg, RoomReply{Error: ErrNameTaken.Error()})
			return
		}
	}

	e.abandon(token)
	e.release(conn, nil)

	room.Players = append(room.Players, &Player{
		Session: token,
		Conn:    conn,
		Name:    name,
		Online:  true,
	})
	room.touch(e.clock.Now())
	e.sessions.Put(token, room.Code, name)

	e.log.Info().Str("room", room.Code).Str("player", name).Msg("player joined")

	e.reply(conn, msg, RoomReply{Success: true, RoomCode: room.Code, SessionToken: token})
	e.broadcastRoomState(room)
}

// rejoin hands a mid-game seat to a new connection that presents the display
// name of an offline, non-kicked player. Names are only unique as of lobby
// join, so the first match wins.
func (e *Engine) rejoin(conn string, msg ClientMessage, r *Room, name, token string) {
	idx := -1
	for i, p := range r.Players {
		if p.Name == name && !p.Online && !p.Kicked {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.reply(conn, msg, RoomReply{Error: ErrGameInProgress.Error()})
		return
	}

	e.abandon(token)

	p := r.Players[idx]
	old := p.Session

	e.cancelGrace(old)
	e.sessions.Delete(old)

	if r.Host == old {
		r.Host = token
	}
	if r.Submitted[old] {
		delete(r.Submitted, old)
		r.Submitted[token] = true
	}

	p.Session = token
	e.sessions.Put(token, r.Code, p.Name)

	e.log.Info().Str("room", r.Code).Str("player", name).Msg("player rejoined by name")

	e.resume(conn, r, idx, RoomReply{Success: true, RoomCode: r.Code, SessionToken: token}, msg)
}

func (e *Engine) reconnect(conn string, msg ClientMessage) {
	sess, ok := e.sessions.Get(msg.SessionToken)
	if !ok {
		e.reply(conn, msg, ReconnectReply{})
		return
	}

	room, ok := e.rooms.Get(sess.RoomCode)
	if !ok {
		e.sessions.Delete(sess.Token)
		e.reply(conn, msg, ReconnectReply{})
		return
	}

	idx := room.indexOfSession(sess.Token)
	if idx < 0 || room.Players[idx].Kicked {
		e.reply(conn, msg, ReconnectReply{})
		return
	}

	e.log.Info().Str("room", room.Code).Str("player", sess.Name).Msg("player reconnected")

	e.resume(conn, room, idx, ReconnectReply{
		Success:     true,
		RoomCode:    room.Code,
		DisplayName: room.Players[idx].Name,
		Phase:       room.Phase,
	}, msg)
}

// resume binds conn to the player at idx and brings that one client up to
// date with the room.
func (e *Engine) resume(conn string, r *Room, idx int, reply any, msg ClientMessage) {
	p := r.Players[idx]

	e.cancelGrace(p.Session)
	e.release(conn, p)

	p.Conn = conn
	p.Online = true
	r.touch(e.clock.Now())

	e.reply(conn, msg, reply)

	e.broadcastAll(r, PresenceMessage{
		Type:        "playerReconnected",
		Name:        p.Name,
		OnlineCount: r.onlineCount(),
	})
	e.broadcastPlayersStatus(r)

	e.restoreView(r, idx)
}

// restoreView rebuilds the screen the player at idx should be looking at
// from the room's current state.
func (e *Engine) restoreView(r *Room, idx int) {
	p := r.Players[idx]

	switch r.Phase {
	case PhaseLobby:
		e.broadcastRoomState(r)

	case PhaseTopics:
		if _, done := r.Topics[idx]; done {
			e.sendTo(p, TopicSubmittedMessage{Type: "topicSubmitted"})
			e.sendTo(p, ProgressMessage{
				Type:      "topicProgress",
				Submitted: r.topicCount(),
				Total:     len(r.Players),
			})
			return
		}
		e.sendTo(p, EnterTopicMessage{Type: "enterTopic", IsHost: r.isHost(p)})

	case PhasePlaying:
		if r.Submitted[p.Session] {
			e.sendTo(p, e.roundProgress(r, "waitingForOthers"))
			return
		}
		e.sendTo(p, e.prompt(r, idx))

	case PhaseReveal:
		e.revealView(r, p)
	}
}

// release unbinds conn from whichever player holds it, other than keep, as
// though that player had disconnected.
func (e *Engine) release(conn string, keep *Player) {
	room, idx := e.rooms.FindByConn(conn)
	if room == nil || room.Players[idx] == keep {
		return
	}
	e.disconnect(conn)
}

// abandon takes token out of any room it is still seated in, so a client
// is only ever in one room.
func (e *Engine) abandon(token string) {
	room, idx := e.rooms.FindBySession(token)
	if room == nil || room.Players[idx].Kicked {
		return
	}
	e.depart(room, idx, room.Phase == PhaseLobby || room.Phase == PhaseReveal)
}

func (e *Engine) disconnect(conn string) {
	room, idx := e.rooms.FindByConn(conn)
	if room == nil {
		e.log.Debug().Str("conn", conn).Msg("disconnect from connection outside any room")
		return
	}

	p := room.Players[idx]
	p.Conn = ""
	p.Online = false

	e.log.Info().Str("room", room.Code).Str("player", p.Name).Msg("player went offline")

	e.broadcastAll(room, PresenceMessage{
		Type:        "playerWentOffline",
		Name:        p.Name,
		OnlineCount: room.onlineCount(),
	})
	e.broadcastPlayersStatus(room)

	if room.Phase == PhaseLobby {
		e.scheduleGrace(p.Session)
	}
}

// scheduleGrace arranges for an offline lobby player to be dropped once the
// grace period runs out.
func (e *Engine) scheduleGrace(token string) {
	e.cancelGrace(token)

	var t clockwork.Timer
	t = e.clock.AfterFunc(e.gracePeriod, func() {
		_ = e.do(context.Background(), func() {
			if e.grace[token] != t {
				return
			}
			delete(e.grace, token)
			e.expireGrace(token)
		})
	})
	e.grace[token] = t
}

func (e *Engine) cancelGrace(token string) {
	if t, ok := e.grace[token]; ok {
		t.Stop()
		delete(e.grace, token)
	}
}

// expireGrace drops the player only if nothing changed while the timer ran.
func (e *Engine) expireGrace(token string) {
	room, idx := e.rooms.FindBySession(token)
	if room == nil || room.Phase != PhaseLobby || room.Players[idx].Online {
		return
	}

	e.log.Info().Str("room", room.Code).Str("player", room.Players[idx].Name).Msg("grace period expired, player removed")

	e.depart(room, idx, true)
}

// leave removes the player in lobby and reveal. During topics and playing the
// slot is flagged instead so the rotation keeps its shape.
func (e *Engine) leave(conn string, msg ClientMessage, r *Room, idx int) {
	e.log.Info().Str("room", r.Code).Str("player", r.Players[idx].Name).Msg("player left")

	e.depart(r, idx, r.Phase == PhaseLobby || r.Phase == PhaseReveal)
	e.reply(conn, msg, LeaveReply{OK: true})
}

func (e *Engine) kick(conn string, msg ClientMessage, r *Room, idx int) {
	if !r.isHost(r.Players[idx]) {
		e.reply(conn, msg, KickReply{Msg: ErrNotHost.Error()})
		return
	}

	target := r.indexOfSession(msg.Target)
	if target < 0 || r.Players[target].Kicked {
		e.reply(conn, msg, KickReply{Msg: ErrPlayerNotFound.Error()})
		return
	}
	if r.Players[target].Online {
		e.reply(conn, msg, KickReply{Msg: ErrPlayerOnline.Error()})
		return
	}

	e.log.Info().Str("room", r.Code).Str("player", r.Players[target].Name).Msg("player kicked")

	e.reply(conn, msg, KickReply{OK: true})
	e.depart(r, target, r.Phase == PhaseLobby)
}

// depart takes the player at idx out of the game. With remove set the slot
// is deleted outright; otherwise it is flagged kicked so the rotation keeps
// its shape, and anything the player still owed is filled in for them.
func (e *Engine) depart(r *Room, idx int, remove bool) {
	p := r.Players[idx]
	phase := r.Phase

	e.cancelGrace(p.Session)
	e.sessions.Delete(p.Session)

	if remove {
		r.removeAt(idx)
	} else {
		p.Kicked = true
		p.Conn = ""
		p.Online = false
	}

	if r.activeCount() == 0 {
		e.closeRoom(r)
		return
	}

	// The host must be settled before any auto-fill can reach the reveal.
	changed := r.electHost()
	if changed {
		e.log.Info().Str("room", r.Code).Str("host", r.hostPlayer().Name).Msg("host reassigned")
	}

	if !remove {
		e.fillFor(r, idx)
	}

	e.broadcastRoster(r)

	if changed && phase == PhaseReveal {
		for _, q := range r.Players {
			e.revealView(r, q)
		}
	}
}

// fillFor submits a placeholder for whatever the player at idx has not yet
// provided, through the same path as a real submission.
func (e *Engine) fillFor(r *Room, idx int) {
	switch r.Phase {
	case PhaseTopics:
		if e.recordTopic(r, idx, LeftTopic) {
			e.afterTopic(r)
		}
	case PhasePlaying:
		if !r.Submitted[r.Players[idx].Session] {
			e.recordSubmission(r, idx, placeholder(roundKind(r.Round)))
		}
	}
}

func (e *Engine) closeRoom(r *Room) {
	for _, p := range r.Players {
		e.cancelGrace(p.Session)
	}
	dropped := e.sessions.DeleteRoom(r.Code)
	e.rooms.Delete(r.Code)

	e.log.Info().
		Str("room", r.Code).
		Dur("age", e.clock.Since(r.createdAt)).
		Int("sessions", dropped).
		Int("rooms", e.rooms.Len()).
		Msg("room closed")
}

func (e *Engine) newGame(r *Room, idx int) {
	if !r.isHost(r.Players[idx]) || r.Phase == PhaseLobby {
		e.log.Debug().Str("room", r.Code).Msg("dropped newGame")
		return
	}

	r.dropKicked()
	r.electHost()

	if len(r.Players) < MinPlayers {
		e.enterLobby(r)
		return
	}

	e.enterTopics(r)

	e.log.Info().Str("room", r.Code).Int("players", len(r.Players)).Msg("new game started")

	e.broadcastEnterTopic(r)
}

func (e *Engine) backToLobby(r *Room, idx int) {
	if !r.isHost(r.Players[idx]) {
		e.log.Debug().Str("room", r.Code).Msg("dropped backToLobby from non-host")
		return
	}

	r.dropKicked()
	r.electHost()
	e.enterLobby(r)
}

// enterLobby resets the room for a new roster. Players still offline get the
// usual lobby grace period.
func (e *Engine) enterLobby(r *Room) {
	r.resetGame()
	r.Phase = PhaseLobby

	for _, p := range r.Players {
		if !p.Online {
			e.scheduleGrace(p.Session)
		}
	}

	e.broadcastRoomState(r)
}
