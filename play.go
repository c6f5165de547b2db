/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/Seednode/nameher/game"
	"github.com/Seednode/nameher/names"
)

const (
	playerCookieName = "nameher_id"
	qrSize           = 320
)

// ClientMessage is anything a browser sends over the game socket.
type ClientMessage struct {
	Type string `json:"type"` // "start", "edit", "submit", "reset"
	Mode int    `json:"mode,omitempty"`
	Slot int    `json:"slot"`
	Name string `json:"name,omitempty"`
}

// SessionStateMessage carries a full snapshot, or nil before the first start.
type SessionStateMessage struct {
	Type    string         `json:"type"` // "session_state"
	Modes   []int          `json:"modes"`
	Session *game.Snapshot `json:"session"`
}

// SlotResultMessage reports the outcome of an edit or submit.
type SlotResultMessage struct {
	Type  string    `json:"type"` // "slot_result"
	Slot  game.Slot `json:"slot"`
	Error string    `json:"error,omitempty"`
}

// SimpleMessage is for generic notifications.
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type request struct {
	client *Client
	msg    ClientMessage
}

// Hub owns one shared game session and the sockets watching it.
type Hub struct {
	id       string
	cfg      *Config
	pipeline game.Classifier
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	register chan *Client
	unreg    chan *Client
	requests chan request

	mu         sync.Mutex
	clients    map[*Client]bool
	session    *game.Session
	revision   uint64
	createdAt  time.Time
	lastActive time.Time
}

func newHub(cfg *Config, gameID string, pipeline game.Classifier) *Hub {
	now := time.Now()
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		id:         gameID,
		cfg:        cfg,
		pipeline:   pipeline,
		logger:     cfg.log().Named("game").With(zap.String("game", gameID)),
		ctx:        ctx,
		cancel:     cancel,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		requests:   make(chan request),
		clients:    make(map[*Client]bool),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true
			msg := h.stateMessageLocked()
			h.sendLocked(c, msg)
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case req := <-h.requests:
			h.touch()
			h.handle(req)
		}
	}
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()
}

func (h *Hub) currentSession() *game.Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.session
}

func (h *Hub) stateMessageLocked() SessionStateMessage {
	msg := SessionStateMessage{Type: "session_state", Modes: game.Modes}
	if h.session != nil {
		snap := h.session.Snapshot()
		msg.Session = &snap
	}

	return msg
}

// handle runs on the hub goroutine. Lookups are started in their own
// goroutine so a slow one never stalls the socket loop.
func (h *Hub) handle(req request) {
	c, msg := req.client, req.msg
	sess := h.currentSession()

	switch msg.Type {
	case "start":
		if sess == nil {
			s, err := game.NewSession(msg.Mode, h.pipeline,
				game.WithLogger(h.logger),
				game.OnChange(h.broadcastState),
			)
			if err != nil {
				h.sendTo(c, SimpleMessage{Type: "error", Message: err.Error()})
				return
			}

			h.mu.Lock()
			h.session = s
			h.mu.Unlock()

			logf(h.cfg, "GAMES: Started %d-name session in %s", msg.Mode, h.id)
			h.broadcastState(s.Snapshot())

			return
		}

		if err := sess.Reset(msg.Mode); err != nil {
			h.sendTo(c, SimpleMessage{Type: "error", Message: err.Error()})
		}

	case "reset":
		if sess == nil {
			return
		}
		_ = sess.Reset(0)

	case "edit":
		if sess == nil {
			return
		}
		if slot, err := sess.Edit(msg.Slot, msg.Name); err != nil {
			h.sendTo(c, SlotResultMessage{Type: "slot_result", Slot: slot, Error: err.Error()})
		}

	case "submit":
		if sess == nil {
			h.sendTo(c, SimpleMessage{Type: "error", Message: "no session started"})
			return
		}
		go h.submit(c, sess, msg)
	}
}

func (h *Hub) submit(c *Client, sess *game.Session, msg ClientMessage) {
	slot, err := sess.Submit(h.ctx, msg.Slot, msg.Name)

	switch {
	case errors.Is(err, game.ErrStale):
		return
	case err != nil:
		h.sendTo(c, SlotResultMessage{Type: "slot_result", Slot: slot, Error: err.Error()})
		return
	}

	if slot.Status == game.StatusValid {
		logf(h.cfg, "GAMES: Accepted %q as %q in %s", msg.Name, slot.Match, h.id)
	}

	h.broadcast(SlotResultMessage{Type: "slot_result", Slot: slot})
}

// broadcastState is the session change callback. Snapshots are published
// after the session lock is released, so one older than the last sent is
// dropped.
func (h *Hub) broadcastState(snap game.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if snap.Revision <= h.revision {
		return
	}
	h.revision = snap.Revision

	msg := SessionStateMessage{Type: "session_state", Modes: game.Modes, Session: &snap}
	for c := range h.clients {
		h.sendLocked(c, msg)
	}
}

func (h *Hub) broadcast(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.sendLocked(c, msg)
	}
}

func (h *Hub) sendTo(c *Client, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c] {
		h.sendLocked(c, msg)
	}
}

// sendLocked drops clients that cannot keep up.
func (h *Hub) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// closeAll disconnects all clients of this hub and cancels in-flight lookups.
func (h *Hub) closeAll() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// getOrSetPlayerID returns the opaque per-browser id used as the score
// submission fingerprint.
func getOrSetPlayerID(cfg *Config, w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		cfg.log().Error("generating player id", zap.Error(err))
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.scheme() == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
	})

	return id
}

// GameManager holds a set of hubs keyed by game ID.
type GameManager struct {
	mu          sync.Mutex
	cfg         *Config
	pipeline    game.Classifier
	hubs        map[string]*Hub
	idleTimeout time.Duration
	done        chan struct{}
}

func newGameManager(cfg *Config, pipeline game.Classifier) *GameManager {
	gm := &GameManager{
		cfg:         cfg,
		pipeline:    pipeline,
		hubs:        make(map[string]*Hub),
		idleTimeout: cfg.sessionTimeout,
		done:        make(chan struct{}),
	}
	if gm.idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(gm.cfg, gameID, gm.pipeline)
	gm.hubs[gameID] = hub
	go hub.run()
	return hub
}

// newGameID generates a crypto-random game ID that doesn't collide with a
// live game.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reap removes hubs idle since before cutoff and returns how many it closed.
func (gm *GameManager) reap(cutoff time.Time) int {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	var reaped int
	for id, hub := range gm.hubs {
		hub.mu.Lock()
		last := hub.lastActive
		hub.mu.Unlock()

		if last.Before(cutoff) {
			delete(gm.hubs, id)
			go hub.closeAll()
			reaped++
		}
	}

	return reaped
}

func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-gm.done:
			return
		case <-ticker.C:
			if n := gm.reap(time.Now().Add(-gm.idleTimeout)); n > 0 {
				logf(gm.cfg, "GAMES: Reaped %d idle sessions", n)
			}
		}
	}
}

// close stops the reaper and every hub.
func (gm *GameManager) close() {
	close(gm.done)
	gm.reap(time.Now().Add(time.Hour))
}

func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(cfg, w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub := gm.getHub(gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.log().Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			playerID: playerID,
		}

		select {
		case hub.register <- client:
		case <-hub.ctx.Done():
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.ctx.Done():
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		msg.Name = strings.TrimSpace(msg.Name)

		switch msg.Type {
		case "start", "edit", "submit", "reset":
			select {
			case h.requests <- request{client: c, msg: msg}:
			case <-h.ctx.Done():
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// qrHandler renders a PNG QR code for the current game URL.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if ps.ByName("gameid") == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		scheme := cfg.scheme()
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

//go:embed assets/play.html
var playHTML []byte

func servePlayPage(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(cfg, w, r)

		_, _ = w.Write(playHTML)
	}
}

// redirectNewGame sends the browser to a freshly allocated game ID.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerPlay sets up routes so that:
//   - $path              → redirects to a new random game
//   - $path/:gameid      → HTML client
//   - $path/:gameid/ws   → WebSocket for that game
//   - $path/:gameid/qr   → PNG QR code for that game URL
func registerPlay(cfg *Config, path string, mux *httprouter.Router, pipeline *names.Pipeline) *GameManager {
	gm := newGameManager(cfg, pipeline)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))
	mux.GET(cfg.prefix+path+"/:gameid", servePlayPage(cfg))
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))
	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler(cfg))

	return gm
}
