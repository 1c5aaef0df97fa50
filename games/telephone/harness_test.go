package telephone

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type sent struct {
	conn string
	msg  any
}

// recorder is a Channel that remembers everything it was asked to send.
type recorder struct {
	mu   sync.Mutex
	msgs []sent
}

func (r *recorder) Send(conn string, msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = append(r.msgs, sent{conn: conn, msg: msg})
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = nil
}

// to returns every message sent to conn, oldest first.
func (r *recorder) to(conn string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []any
	for _, s := range r.msgs {
		if s.conn == conn {
			out = append(out, s.msg)
		}
	}
	return out
}

// ofType returns every message of the given type sent to conn.
func (r *recorder) ofType(conn, typ string) []any {
	var out []any
	for _, m := range r.to(conn) {
		if msgType(m) == typ {
			out = append(out, m)
		}
	}
	return out
}

// anyOfType counts messages of typ sent to anyone.
func (r *recorder) anyOfType(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, s := range r.msgs {
		if msgType(s.msg) == typ {
			n++
		}
	}
	return n
}

func msgType(m any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	var head struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(b, &head)
	return head.Type
}

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

type harness struct {
	t     *testing.T
	e     *Engine
	out   *recorder
	clock fakeClock
	logs  *bytes.Buffer
	ids   int
}

// newHarness starts an engine on a fake clock. Room codes come from codes in
// order, then fall back to "ZZZZ".
func newHarness(t *testing.T, opts Options, codes ...string) *harness {
	t.Helper()

	clock := clockwork.NewFakeClock()
	out := &recorder{}

	// Only the event loop writes logs; tests read them after a sync.
	logs := &bytes.Buffer{}

	var mu sync.Mutex
	opts.Out = out
	opts.Log = zerolog.New(logs)
	opts.Clock = clock
	opts.CodeGenerator = func() string {
		mu.Lock()
		defer mu.Unlock()

		if len(codes) == 0 {
			return "ZZZZ"
		}
		code := codes[0]
		codes = codes[1:]
		return code
	}

	e, err := New(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = e.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	h := &harness{t: t, e: e, out: out, clock: clock, logs: logs}
	h.inspect(func(*Engine) {})

	return h
}

func conn(name string) string  { return "conn-" + name }
func token(name string) string { return "token-" + name }

// send delivers msg from conn and returns the id it was sent with.
func (h *harness) send(from string, msg ClientMessage) int {
	h.t.Helper()

	h.ids++
	msg.ID = h.ids
	require.NoError(h.t, h.e.Handle(context.Background(), from, msg))
	return msg.ID
}

func (h *harness) disconnect(name string) {
	h.t.Helper()
	require.NoError(h.t, h.e.Disconnect(context.Background(), conn(name)))
}

// inspect runs fn on the event loop so tests can read engine state safely.
func (h *harness) inspect(fn func(e *Engine)) {
	h.t.Helper()
	require.NoError(h.t, h.e.do(context.Background(), func() { fn(h.e) }))
}

// reply returns the data of the reply to request id on conn.
func (h *harness) reply(to string, id int) any {
	h.t.Helper()

	for _, m := range h.out.to(to) {
		if r, ok := m.(ReplyMessage); ok && r.ID == id {
			return r.Data
		}
	}
	h.t.Fatalf("no reply %d sent to %s", id, to)
	return nil
}

func (h *harness) create(name string) string {
	h.t.Helper()

	id := h.send(conn(name), ClientMessage{Type: MsgCreateRoom, DisplayName: name, SessionToken: token(name)})
	r := h.reply(conn(name), id).(RoomReply)
	require.True(h.t, r.Success, r.Error)
	return r.RoomCode
}

func (h *harness) join(name, code string) RoomReply {
	h.t.Helper()

	id := h.send(conn(name), ClientMessage{Type: MsgJoinRoom, DisplayName: name, RoomCode: code, SessionToken: token(name)})
	return h.reply(conn(name), id).(RoomReply)
}

// lobby creates a room hosted by the first name and seats the rest.
func (h *harness) lobby(names ...string) string {
	h.t.Helper()

	code := h.create(names[0])
	for _, name := range names[1:] {
		r := h.join(name, code)
		require.True(h.t, r.Success, r.Error)
	}
	return code
}

func (h *harness) startGame(host string) StartGameReply {
	h.t.Helper()

	id := h.send(conn(host), ClientMessage{Type: MsgStartGame})
	return h.reply(conn(host), id).(StartGameReply)
}

// playing seats names, starts the game, and submits a topic for each.
func (h *harness) playing(names ...string) string {
	h.t.Helper()

	code := h.lobby(names...)
	require.True(h.t, h.startGame(names[0]).Success)
	for _, name := range names {
		h.send(conn(name), ClientMessage{Type: MsgSubmitTopic, Text: "topic " + name})
	}
	return code
}

// submit sends whatever the current round asks of name.
func (h *harness) submit(name string, round int) {
	h.t.Helper()

	if round%2 == 0 {
		h.send(conn(name), ClientMessage{Type: MsgSubmitDrawing, Image: "drawing " + name})
		return
	}
	h.send(conn(name), ClientMessage{Type: MsgSubmitGuess, Text: "guess " + name})
}

// revealed plays a full game to the reveal phase.
func (h *harness) revealed(names ...string) string {
	h.t.Helper()

	code := h.playing(names...)
	for round := 0; round < len(names)-1; round++ {
		for _, name := range names {
			h.submit(name, round)
		}
	}
	return code
}

func (h *harness) room(code string) *Room {
	h.t.Helper()

	var room *Room
	h.inspect(func(e *Engine) {
		room, _ = e.rooms.Get(code)
	})
	return room
}

// lastOf returns the newest of msgs as a T.
func lastOf[T any](t *testing.T, msgs []any) T {
	t.Helper()

	require.NotEmpty(t, msgs)
	m, ok := msgs[len(msgs)-1].(T)
	require.True(t, ok, "unexpected message %T", msgs[len(msgs)-1])
	return m
}

// check evaluates cond on the event loop without failing the test, for use
// inside require.Eventually.
func (h *harness) check(cond func(e *Engine) bool) bool {
	var ok bool
	if err := h.e.do(context.Background(), func() { ok = cond(h.e) }); err != nil {
		return false
	}
	return ok
}

// logged returns the newest log entry with the given message.
func (h *harness) logged(msg string) map[string]any {
	h.t.Helper()

	var found map[string]any
	h.inspect(func(*Engine) {
		for _, line := range bytes.Split(h.logs.Bytes(), []byte("\n")) {
			var entry map[string]any
			if json.Unmarshal(line, &entry) == nil && entry["message"] == msg {
				found = entry
			}
		}
	})
	require.NotNil(h.t, found, "nothing logged as %q", msg)
	return found
}
