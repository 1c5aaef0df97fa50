// Sketchrelay telephone game transport
//
// Players each write a topic, then alternate drawing the last guess and
// guessing the last drawing on a neighbour's chain until every chain has
// been through every player. The host then plays each chain back step by
// step on every screen.
//
// Features:
// - One websocket per browser tab at /ws; rooms are addressed by 4-char code
// - JSON messages in both directions; requests carrying an id get a reply
// - Session token cookie so a refreshed tab can reclaim its seat
// - /join/:code share links and /qr/:code PNG QR codes, backed by go-qrcode
// - Game rules live in games/telephone; this file only moves bytes

package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/sketchrelay/games/telephone"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

const (
	// Drawings arrive as data URLs.
	maxMessageSize = 5_000_000

	sendBuffer = 32
)

type Client struct {
	conn *websocket.Conn
	send chan any
	id   string
}

// Hub tracks live sockets by connection id and implements telephone.Channel.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*Client
	log     zerolog.Logger
}

func newHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		log:     logger,
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.id] = c
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

// Send queues msg for conn. A client whose buffer is full is dropped.
func (h *Hub) Send(conn string, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[conn]
	if !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		h.log.Warn().Str("conn", conn).Msg("GAMES: Send buffer full, dropping client")
		delete(h.clients, conn)
		close(c.send)
	}
}

func (h *Hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const sessionCookieName = "sketchrelay_session"

// getOrSetSessionToken hands the page a default session token. The client
// may still send its own.
func getOrSetSessionToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	token := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})

	return token
}

func serveWS(ctx context.Context, logger zerolog.Logger, hub *Hub, game *telephone.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Debug().Err(err).Str("remote", realIP(r)).Msg("GAMES: Websocket upgrade failed")
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, sendBuffer),
			id:   uuid.NewString(),
		}

		hub.add(client)

		logger.Debug().Str("conn", client.id).Str("remote", realIP(r)).Int("clients", hub.count()).Msg("GAMES: Client connected")

		go client.writePump()
		client.readPump(ctx, logger, hub, game)
	}
}

func (c *Client) readPump(ctx context.Context, logger zerolog.Logger, hub *Hub, game *telephone.Engine) {
	defer func() {
		hub.remove(c)
		if err := game.Disconnect(ctx, c.id); err != nil && !errors.Is(err, telephone.ErrStopped) {
			logger.Debug().Err(err).Str("conn", c.id).Msg("GAMES: Disconnect not delivered")
		}
		_ = c.conn.Close()

		logger.Debug().Str("conn", c.id).Msg("GAMES: Client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		var msg telephone.ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		if err := game.Handle(ctx, c.id, msg); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// joinURL is the link a QR code or share button points other players at.
func joinURL(r *http.Request, prefix, code string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + prefix + "/join/" + code
}

// QR handler: generates a PNG QR code for a room's join link using go-qrcode.
func serveQR(ctx context.Context, cfg *Config, game *telephone.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := telephone.NormalizeCode(ps.ByName("code"))
		if code == "" || !game.RoomExists(ctx, code) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(joinURL(r, cfg.prefix, code), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

// redirectJoin sends a scanned share link to the page with the code filled in.
func redirectJoin(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := telephone.NormalizeCode(ps.ByName("code"))
		if len(code) != telephone.CodeLength || strings.Trim(code, telephone.CodeAlphabet) != "" {
			http.Redirect(w, r, cfg.prefix+"/", http.StatusTemporaryRedirect)
			return
		}

		http.Redirect(w, r, cfg.prefix+"/?room="+code, http.StatusTemporaryRedirect)
	}
}

// registerTelephoneGame sets up routes so that:
//   - /                → HTML client
//   - /assets/*        → client scripts and styles
//   - /ws              → WebSocket for every room
//   - /join/:code      → redirect to the client with the room code filled in
//   - /qr/:code        → PNG QR code of the join link
func registerTelephoneGame(ctx context.Context, cfg *Config, logger zerolog.Logger, mux *httprouter.Router, errs chan<- error) (*telephone.Engine, error) {
	hub := newHub(logger)

	game, err := telephone.New(telephone.Options{
		Out:         hub,
		Log:         logger.With().Str("component", "engine").Logger(),
		GracePeriod: cfg.gracePeriod,
		IdleTimeout: cfg.roomTimeout,
		MaxPlayers:  cfg.maxPlayers,
	})
	if err != nil {
		return nil, err
	}

	mux.GET(cfg.prefix+"/", serveHomePage(cfg, errs))

	mux.GET(cfg.prefix+"/assets/*asset", serveAssets(cfg, errs))

	mux.GET(cfg.prefix+"/ws", serveWS(ctx, logger, hub, game))

	mux.GET(cfg.prefix+"/join/:code", redirectJoin(cfg))

	mux.GET(cfg.prefix+"/qr/:code", serveQR(ctx, cfg, game))

	return game, nil
}
