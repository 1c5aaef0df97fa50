/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package telephone runs rooms of the draw-and-guess relay game: players
// each seed a chain with a topic, then take turns drawing the last guess or
// guessing the last drawing on a neighbour's chain until every chain has
// passed through every player, after which the host plays the chains back.
//
// Every mutation happens on the single goroutine running Engine.Run, so no
// room state is ever locked.
package telephone

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Channel delivers outbound messages to a single connection. Send must not
// block; connections that cannot take a message simply miss it.
type Channel interface {
	Send(conn string, msg any)
}

// Options configure an Engine.
type Options struct {
	Out Channel
	Log zerolog.Logger

	// Clock defaults to the real clock.
	Clock clockwork.Clock

	// GracePeriod is how long a player who drops out of the lobby keeps
	// their slot. Defaults to one minute.
	GracePeriod time.Duration

	// IdleTimeout reaps rooms with no activity for this long. Zero disables
	// the reaper.
	IdleTimeout time.Duration

	// MaxPlayers caps room size; values outside [MinPlayers, MaxPlayers]
	// fall back to MaxPlayers.
	MaxPlayers int

	// CodeGenerator overrides room code generation.
	CodeGenerator func() string
}

type request struct {
	conn string
	msg  ClientMessage
	done chan struct{}
}

type call struct {
	fn   func()
	done chan struct{}
}

// Engine owns every room and session in the process.
type Engine struct {
	out         Channel
	log         zerolog.Logger
	clock       clockwork.Clock
	gracePeriod time.Duration
	idleTimeout time.Duration
	maxPlayers  int

	rooms    *Registry
	sessions *SessionStore
	grace    map[string]clockwork.Timer // session token -> pending lobby removal

	requests chan request
	closes   chan request
	calls    chan call
	stopped  chan struct{}
}

func New(opts Options) (*Engine, error) {
	rooms, err := NewRegistry(opts.CodeGenerator)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		out:         opts.Out,
		log:         opts.Log,
		clock:       opts.Clock,
		gracePeriod: opts.GracePeriod,
		idleTimeout: opts.IdleTimeout,
		maxPlayers:  opts.MaxPlayers,
		rooms:       rooms,
		sessions:    NewSessionStore(),
		grace:       make(map[string]clockwork.Timer),
		requests:    make(chan request),
		closes:      make(chan request),
		calls:       make(chan call),
		stopped:     make(chan struct{}),
	}

	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.gracePeriod <= 0 {
		e.gracePeriod = time.Minute
	}
	if e.maxPlayers < MinPlayers || e.maxPlayers > MaxPlayers {
		e.maxPlayers = MaxPlayers
	}
	if e.out == nil {
		e.out = discard{}
	}

	return e, nil
}

type discard struct{}

func (discard) Send(string, any) {}

// Run processes events until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.stopped)

	var reap <-chan time.Time
	if e.idleTimeout > 0 {
		ticker := e.clock.NewTicker(e.idleTimeout / 2)
		defer ticker.Stop()
		reap = ticker.Chan()
	}

	e.log.Debug().Msg("engine started")

	for {
		select {
		case <-ctx.Done():
			for token, t := range e.grace {
				t.Stop()
				delete(e.grace, token)
			}
			e.log.Debug().Int("rooms", e.rooms.Len()).Int("sessions", e.sessions.Len()).Msg("engine stopped")
			return nil

		case req := <-e.requests:
			e.dispatch(req.conn, req.msg)
			close(req.done)

		case req := <-e.closes:
			e.disconnect(req.conn)
			close(req.done)

		case c := <-e.calls:
			c.fn()
			close(c.done)

		case <-reap:
			e.reapIdle()
		}
	}
}

func (e *Engine) enqueue(ctx context.Context, ch chan request, conn string, msg ClientMessage) error {
	req := request{conn: conn, msg: msg, done: make(chan struct{})}

	select {
	case ch <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrStopped
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle processes one client message, returning once it and every message
// it caused have been handed to the Channel.
func (e *Engine) Handle(ctx context.Context, conn string, msg ClientMessage) error {
	return e.enqueue(ctx, e.requests, conn, msg)
}

// Disconnect tells the engine that conn's transport closed.
func (e *Engine) Disconnect(ctx context.Context, conn string) error {
	return e.enqueue(ctx, e.closes, conn, ClientMessage{})
}

// do runs fn on the event loop.
func (e *Engine) do(ctx context.Context, fn func()) error {
	c := call{fn: fn, done: make(chan struct{})}

	select {
	case e.calls <- c:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrStopped
	}

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RoomExists reports whether code names a live room.
func (e *Engine) RoomExists(ctx context.Context, code string) bool {
	var exists bool
	if err := e.do(ctx, func() {
		_, exists = e.rooms.Get(code)
	}); err != nil {
		return false
	}
	return exists
}

func (e *Engine) dispatch(conn string, msg ClientMessage) {
	switch msg.Type {
	case MsgCreateRoom:
		e.createRoom(conn, msg)
		return
	case MsgJoinRoom:
		e.joinRoom(conn, msg)
		return
	case MsgReconnectSession:
		e.reconnect(conn, msg)
		return
	}

	room, idx := e.rooms.FindByConn(conn)
	if room == nil {
		switch msg.Type {
		case MsgStartGame:
			e.reply(conn, msg, StartGameReply{Error: ErrRoomNotFound.Error()})
		case MsgLeaveRoom:
			e.reply(conn, msg, LeaveReply{})
		case MsgKickPlayer:
			e.reply(conn, msg, KickReply{Msg: ErrRoomNotFound.Error()})
		default:
			e.log.Debug().Str("conn", conn).Str("type", msg.Type).Msg("dropped message from connection outside any room")
		}
		return
	}

	room.touch(e.clock.Now())

	switch msg.Type {
	case MsgStartGame:
		e.startGame(conn, msg, room, idx)
	case MsgSubmitTopic:
		e.submitTopic(room, idx, msg.Text)
	case MsgSubmitDrawing:
		e.submitEntry(room, idx, KindDrawing, msg.Image)
	case MsgSubmitGuess:
		e.submitEntry(room, idx, KindGuess, msg.Text)
	case MsgStartReveal:
		e.startReveal(room, idx)
	case MsgNextRevealStep:
		e.nextRevealStep(room, idx)
	case MsgNextChain:
		e.nextChain(room, idx)
	case MsgNewGame:
		e.newGame(room, idx)
	case MsgBackToLobby:
		e.backToLobby(room, idx)
	case MsgLeaveRoom:
		e.leave(conn, msg, room, idx)
	case MsgKickPlayer:
		e.kick(conn, msg, room, idx)
	default:
		e.log.Debug().Str("room", room.Code).Str("type", msg.Type).Msg("ignored unknown message type")
	}
}

// reply answers msg if the client asked for an answer.
func (e *Engine) reply(conn string, msg ClientMessage, data any) {
	e.out.Send(conn, ReplyMessage{
		Type: "reply",
		ID:   msg.ID,
		Data: data,
	})
}

func (e *Engine) sendTo(p *Player, msg any) {
	if p == nil || p.Conn == "" {
		return
	}
	e.out.Send(p.Conn, msg)
}

// broadcast sends each connected player the message build returns for them.
func (e *Engine) broadcast(r *Room, build func(p *Player) any) {
	for _, p := range r.Players {
		if p.Conn == "" {
			continue
		}
		e.out.Send(p.Conn, build(p))
	}
}

func (e *Engine) broadcastAll(r *Room, msg any) {
	e.broadcast(r, func(*Player) any { return msg })
}

func playerViews(r *Room) []PlayerView {
	views := make([]PlayerView, 0, len(r.Players))
	for _, p := range r.Players {
		views = append(views, PlayerView{
			SessionToken: p.Session,
			Name:         p.Name,
			Online:       p.Online,
			Kicked:       p.Kicked,
		})
	}
	return views
}

func hostName(r *Room) string {
	if h := r.hostPlayer(); h != nil {
		return h.Name
	}
	return ""
}

func (e *Engine) roomState(r *Room, p *Player) RoomStateMessage {
	return RoomStateMessage{
		Type:     "roomState",
		Code:     r.Code,
		Players:  playerViews(r),
		HostName: hostName(r),
		Phase:    r.Phase,
		IsHost:   r.isHost(p),
	}
}

func (e *Engine) broadcastRoomState(r *Room) {
	e.broadcast(r, func(p *Player) any { return e.roomState(r, p) })
}

func (e *Engine) broadcastPlayersStatus(r *Room) {
	players, host := playerViews(r), hostName(r)
	e.broadcast(r, func(p *Player) any {
		return PlayersStatusMessage{
			Type:     "playersStatus",
			Players:  players,
			HostName: host,
			IsHost:   r.isHost(p),
		}
	})
}

// broadcastRoster picks the roster message that matches the room's phase.
func (e *Engine) broadcastRoster(r *Room) {
	if r.Phase == PhaseLobby {
		e.broadcastRoomState(r)
		return
	}
	e.broadcastPlayersStatus(r)
}

// newToken backs up clients that did not generate their own session token.
func newToken() string {
	return uuid.NewString()
}

// reapIdle closes rooms nobody has touched within the idle timeout.
func (e *Engine) reapIdle() {
	cutoff := e.clock.Now().Add(-e.idleTimeout)

	for _, room := range e.rooms.idleSince(cutoff) {
		e.broadcastAll(room, SimpleMessage{
			Type:    "roomClosed",
			Message: "This room was closed after a period of inactivity.",
		})
		for _, p := range room.Players {
			e.cancelGrace(p.Session)
		}
		dropped := e.sessions.DeleteRoom(room.Code)
		e.rooms.Delete(room.Code)

		e.log.Info().
			Str("room", room.Code).
			Dur("age", e.clock.Since(room.createdAt)).
			Int("sessions", dropped).
			Int("rooms", e.rooms.Len()).
			Msg("reaped idle room")
	}
}
